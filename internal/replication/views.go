package replication

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/store"
	"github.com/gabrielpoca/journal/internal/store/migrate"
)

// viewDefs maps each local collection to the remote design document and view
// that filters its change feed by modelType. Design documents themselves pass
// the filter so view updates replicate too.
var viewDefs = map[string]struct {
	design string
	view   string
	mapFn  string
}{
	store.CollectionEntries: {
		design: "journal",
		view:   "journal",
		mapFn: `function (doc) {
  if (doc._id === '_design/journal' || doc.modelType === 'journalEntry') emit(doc);
}`,
	},
	store.CollectionSettings: {
		design: "settings",
		view:   "settings",
		mapFn: `function (doc) {
  if (doc._id === '_design/settings' || doc.modelType === 'setting') emit(doc);
}`,
	},
}

// viewFor returns the "ddoc/view" filter selector for a collection.
func viewFor(collection string) string {
	def := viewDefs[collection]
	return def.design + "/" + def.view
}

// EnsureViews installs or refreshes the filtered views on the remote. An
// existing design document is updated in place: only the views map is
// replaced, every other field it carries stays untouched. Failures are
// wrapped in common.ErrRemoteViewSetup; callers log them and continue, since
// a missing view degrades filtering but does not corrupt data.
func EnsureViews(ctx context.Context, remote Remote) error {
	var errs []error
	for _, collection := range store.Collections() {
		if err := ensureView(ctx, remote, collection); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", common.ErrRemoteViewSetup, collection, err))
		}
	}
	return errors.Join(errs...)
}

func ensureView(ctx context.Context, remote Remote, collection string) error {
	def := viewDefs[collection]
	id := "_design/" + def.design

	doc, rev, err := remote.GetDoc(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		doc = migrate.Doc{}
		rev = ""
	} else if err != nil {
		return err
	}

	doc["views"] = map[string]any{
		def.view: map[string]any{"map": def.mapFn},
	}
	delete(doc, "_id")
	delete(doc, "_rev")

	if _, err := remote.PutDoc(ctx, id, rev, doc); err != nil {
		return err
	}
	return nil
}
