package store

import (
	"context"
	"fmt"

	"github.com/gabrielpoca/journal/internal/cryptox"
	"github.com/gabrielpoca/journal/internal/models"
	"github.com/gabrielpoca/journal/internal/store/migrate"
)

// entryToDoc converts an in-memory entry to its persisted document shape,
// sealing the body. Everything else crosses the encryption boundary as-is.
func (s *Store) entryToDoc(e *models.JournalEntry) (migrate.Doc, error) {
	sealed, err := cryptox.EncryptField(e.Body, s.key)
	if err != nil {
		return nil, fmt.Errorf("encrypt body of %s: %w", e.ID, err)
	}

	doc := migrate.Doc{
		"id":        e.ID,
		"date":      e.Date,
		"body":      sealed,
		"modelType": e.ModelType,
	}
	if e.Latitude != nil {
		doc["latitude"] = *e.Latitude
	}
	if e.Longitude != nil {
		doc["longitude"] = *e.Longitude
	}
	return doc, nil
}

// entryFromDoc decodes a current-shape document, opening the sealed body.
func (s *Store) entryFromDoc(doc migrate.Doc) (*models.JournalEntry, error) {
	e := &models.JournalEntry{}
	e.ID, _ = doc["id"].(string)
	e.Date, _ = doc["date"].(string)
	e.ModelType, _ = doc["modelType"].(string)

	if lat, ok := doc["latitude"].(float64); ok {
		e.Latitude = &lat
	}
	if lng, ok := doc["longitude"].(float64); ok {
		e.Longitude = &lng
	}

	if sealed, ok := doc["body"].(string); ok && sealed != "" {
		body, err := cryptox.DecryptField(sealed, s.key)
		if err != nil {
			return nil, fmt.Errorf("decrypt body of %s: %w", e.ID, err)
		}
		e.Body = body
	}
	return e, nil
}

// UpsertEntry inserts or replaces a journal entry by id. The normalization
// gate runs on every write path: a missing id gets a fresh UUID and the date
// is reduced to YYYY-MM-DD before anything touches disk.
func (s *Store) UpsertEntry(ctx context.Context, e *models.JournalEntry) error {
	e.Normalize()

	doc, err := s.entryToDoc(e)
	if err != nil {
		return err
	}
	return s.storeDoc(ctx, CollectionEntries, doc, "", true)
}

// EntryByID returns one entry or common.ErrNotFound.
func (s *Store) EntryByID(ctx context.Context, id string) (*models.JournalEntry, error) {
	row, err := s.repo(CollectionEntries).get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.loadDoc(ctx, CollectionEntries, row)
	if err != nil {
		return nil, err
	}
	return s.entryFromDoc(doc)
}

// Entries returns all entries, newest date first.
func (s *Store) Entries(ctx context.Context) ([]*models.JournalEntry, error) {
	rows, err := s.repo(CollectionEntries).all(ctx)
	if err != nil {
		return nil, err
	}
	return s.entriesFromRows(ctx, rows)
}

// EntriesByIDs returns the entries matching ids, newest date first. Unknown
// ids are skipped; this is the hydration path for search results.
func (s *Store) EntriesByIDs(ctx context.Context, ids []string) ([]*models.JournalEntry, error) {
	rows, err := s.repo(CollectionEntries).byIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.entriesFromRows(ctx, rows)
}

func (s *Store) entriesFromRows(ctx context.Context, rows []*docRow) ([]*models.JournalEntry, error) {
	result := make([]*models.JournalEntry, 0, len(rows))
	for _, row := range rows {
		doc, err := s.loadDoc(ctx, CollectionEntries, row)
		if err != nil {
			return nil, err
		}
		e, err := s.entryFromDoc(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// WatchEntries returns a live view over all entries: the current result set
// is delivered immediately and again after every write to the collection.
// The feed ends when ctx is done or cancel is called.
func (s *Store) WatchEntries(ctx context.Context) (<-chan []*models.JournalEntry, func()) {
	return watchCollection(ctx, s, CollectionEntries, nil, s.Entries)
}

// WatchEntriesByIDs is the live form of EntriesByIDs.
func (s *Store) WatchEntriesByIDs(ctx context.Context, ids []string) (<-chan []*models.JournalEntry, func()) {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	match := func(id string) bool {
		_, ok := idSet[id]
		return ok
	}
	fetch := func(ctx context.Context) ([]*models.JournalEntry, error) {
		return s.EntriesByIDs(ctx, ids)
	}
	return watchCollection(ctx, s, CollectionEntries, match, fetch)
}
