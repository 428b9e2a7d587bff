package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/models"
	"github.com/gabrielpoca/journal/internal/store/migrate"
)

func settingToDoc(v *models.Setting) (migrate.Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode setting %s: %w", v.ID, err)
	}
	var doc migrate.Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func settingFromDoc(doc migrate.Doc) (*models.Setting, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	v := &models.Setting{}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode setting: %w", err)
	}
	if v.Values == nil {
		v.Values = map[string]any{}
	}
	return v, nil
}

// UpsertSetting inserts or replaces a setting by its semantic key.
func (s *Store) UpsertSetting(ctx context.Context, v *models.Setting) error {
	v.Normalize()

	doc, err := settingToDoc(v)
	if err != nil {
		return err
	}
	return s.storeDoc(ctx, CollectionSettings, doc, "", true)
}

// SettingByID returns one setting or common.ErrNotFound.
func (s *Store) SettingByID(ctx context.Context, id string) (*models.Setting, error) {
	row, err := s.repo(CollectionSettings).get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.loadDoc(ctx, CollectionSettings, row)
	if err != nil {
		return nil, err
	}
	return settingFromDoc(doc)
}

// Settings returns all settings ordered by id.
func (s *Store) Settings(ctx context.Context) ([]*models.Setting, error) {
	rows, err := s.repo(CollectionSettings).all(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Setting, 0, len(rows))
	for _, row := range rows {
		doc, err := s.loadDoc(ctx, CollectionSettings, row)
		if err != nil {
			return nil, err
		}
		v, err := settingFromDoc(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// WatchSetting returns a live view over a single setting. The slice is empty
// until the setting exists.
func (s *Store) WatchSetting(ctx context.Context, id string) (<-chan []*models.Setting, func()) {
	match := func(docID string) bool { return docID == id }
	fetch := func(ctx context.Context) ([]*models.Setting, error) {
		v, err := s.SettingByID(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*models.Setting{v}, nil
	}
	return watchCollection(ctx, s, CollectionSettings, match, fetch)
}

// WatchSettings is the live form of Settings.
func (s *Store) WatchSettings(ctx context.Context) (<-chan []*models.Setting, func()) {
	return watchCollection(ctx, s, CollectionSettings, nil, s.Settings)
}
