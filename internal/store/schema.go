package store

import (
	"github.com/gabrielpoca/journal/internal/models"
	"github.com/gabrielpoca/journal/internal/store/migrate"
)

// Collection names. These double as local table names and as the
// discriminator-filtered views replicated on the remote side.
const (
	CollectionEntries  = "entries"
	CollectionSettings = "settings"
)

// Current document schema versions per collection.
const (
	EntriesVersion  = 4
	SettingsVersion = 3
)

// Collections lists the store's collections in replication order.
func Collections() []string {
	return []string{CollectionSettings, CollectionEntries}
}

func copyDoc(doc migrate.Doc) migrate.Doc {
	out := make(migrate.Doc, len(doc)+2)
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// entrySteps is the full migration chain of the entries collection. Identity
// steps are explicit so version numbering stays contiguous.
func entrySteps() map[int]migrate.Step {
	return map[int]migrate.Step{
		1: migrate.Identity,
		2: func(doc migrate.Doc) migrate.Doc {
			out := copyDoc(doc)
			out["modelType"] = models.ModelTypeJournalEntry
			return out
		},
		3: func(doc migrate.Doc) migrate.Doc {
			out := copyDoc(doc)
			if date, ok := out["date"].(string); ok {
				out["date"] = models.NormalizeDate(date)
			}
			return out
		},
		4: migrate.Identity,
	}
}

// settingSteps is the migration chain of the settings collection. Version 3
// introduces the extensible values mapping and defaults the legacy scalar.
func settingSteps() map[int]migrate.Step {
	return map[int]migrate.Step{
		1: migrate.Identity,
		2: func(doc migrate.Doc) migrate.Doc {
			out := copyDoc(doc)
			out["modelType"] = models.ModelTypeSetting
			return out
		},
		3: func(doc migrate.Doc) migrate.Doc {
			out := copyDoc(doc)
			if _, ok := out["value"].(string); !ok {
				out["value"] = ""
			}
			out["values"] = map[string]any{}
			return out
		},
	}
}

// newEngines builds the migration engines for every collection. An invalid
// chain is a deployment bug surfaced before the store opens.
func newEngines() (map[string]*migrate.Engine, error) {
	entries, err := migrate.NewEngine(CollectionEntries, EntriesVersion, entrySteps())
	if err != nil {
		return nil, err
	}
	settings, err := migrate.NewEngine(CollectionSettings, SettingsVersion, settingSteps())
	if err != nil {
		return nil, err
	}
	return map[string]*migrate.Engine{
		CollectionEntries:  entries,
		CollectionSettings: settings,
	}, nil
}
