// Package legacy imports journal entries exported by the previous storage
// format. The import runs at most once per device; completion is recorded in
// the keystore so later startups skip it.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/gabrielpoca/journal/internal/models"
	"github.com/gabrielpoca/journal/internal/session"
	"github.com/gabrielpoca/journal/internal/store"
)

// ExportFileName is the entry dump the previous format leaves in the data
// directory.
const ExportFileName = "journal-export.json"

// legacyEntry is one record of the old export. Older dumps used "_id" and
// free-form dates; both are normalized on the way in.
type legacyEntry struct {
	ID        string   `json:"id"`
	LegacyID  string   `json:"_id"`
	Date      string   `json:"date"`
	Body      string   `json:"body"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// RunOnce imports the export file at path into the store, then records
// completion so the import never runs again, even across restarts. A missing
// export file counts as completed: there is simply nothing to carry over.
// Entries go through the regular write path, so they are normalized,
// encrypted, and queued for replication like any other local write.
func RunOnce(ctx context.Context, ks *session.Keystore, st *store.Store, path string, log logging.Logger) error {
	if ks.LegacyImported() {
		return nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ks.SetLegacyImported()
	}
	if err != nil {
		return fmt.Errorf("read legacy export: %w", err)
	}

	var entries []legacyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode legacy export: %w", err)
	}

	for _, le := range entries {
		id := le.ID
		if id == "" {
			id = le.LegacyID
		}
		entry := &models.JournalEntry{
			ID:        id,
			Date:      le.Date,
			Body:      le.Body,
			Latitude:  le.Latitude,
			Longitude: le.Longitude,
		}
		if err := st.UpsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("import legacy entry %s: %w", id, err)
		}
	}

	log.Info(ctx, "imported legacy entries", "count", len(entries), "file", path)
	return ks.SetLegacyImported()
}
