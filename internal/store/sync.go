package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/store/migrate"
)

// PendingDoc is a locally modified document awaiting push, in its persisted
// (body still sealed) shape.
type PendingDoc struct {
	ID      string
	Rev     string
	Version int
	Doc     migrate.Doc
}

// PendingDocs returns the documents of a collection with local changes not
// yet acknowledged by the remote.
func (s *Store) PendingDocs(ctx context.Context, collection string) ([]PendingDoc, error) {
	rows, err := s.repo(collection).pending(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]PendingDoc, 0, len(rows))
	for _, row := range rows {
		var doc migrate.Doc
		if err := json.Unmarshal([]byte(row.Doc), &doc); err != nil {
			return nil, fmt.Errorf("decode %s[%s]: %w", collection, row.ID, err)
		}
		result = append(result, PendingDoc{ID: row.ID, Rev: row.Rev, Version: row.Version, Doc: doc})
	}
	return result, nil
}

// MarkSynced records the revision the remote assigned to a pushed document
// and clears its pending flag.
func (s *Store) MarkSynced(ctx context.Context, collection, id, rev string) error {
	return s.repo(collection).markSynced(ctx, id, rev)
}

// revGeneration extracts the numeric prefix of a CouchDB-style revision
// ("3-abc..." -> 3). Unknown formats rank lowest.
func revGeneration(rev string) int {
	prefix, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return n
}

// ApplyRemote folds a replicated document into the local store. The document
// is migrated to the current schema first, then written under last-write-wins
// by revision: a remote revision older than what the local row already
// carries is dropped. Documents applied here are never re-pushed.
func (s *Store) ApplyRemote(ctx context.Context, collection string, doc migrate.Doc, rev string) error {
	eng, err := s.engine(collection)
	if err != nil {
		return err
	}

	id, _ := doc["id"].(string)
	if id == "" {
		return fmt.Errorf("%w: remote document in %s has no id", common.ErrInvalidDocument, collection)
	}

	// replicated documents from current writers carry their schema version;
	// documents without one are assumed current rather than destructively
	// re-migrated
	version := eng.Current()
	if v, ok := doc["version"].(float64); ok {
		version = int(v)
	}
	delete(doc, "version")

	if version < eng.Current() {
		if doc, err = eng.Apply(doc, version); err != nil {
			return err
		}
	}

	if local, err := s.repo(collection).get(ctx, id); err == nil {
		if revGeneration(rev) < revGeneration(local.Rev) {
			s.log.Debug(ctx, "dropping stale remote revision",
				"collection", collection, "id", id, "remote_rev", rev, "local_rev", local.Rev)
			return nil
		}
	}

	return s.storeDoc(ctx, collection, doc, rev, false)
}
