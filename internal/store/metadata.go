package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gabrielpoca/journal/internal/dbx"
)

// metadataRepo stores per-device key/value pairs that bootstrap the store
// (encryption salt, key verifier). Values here are not encrypted; nothing
// secret is ever written to it.
type metadataRepo struct {
	db dbx.DBTX
}

func (r *metadataRepo) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *metadataRepo) set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// Checkpoint returns the persisted replication cursor for a collection, or
// "" when replication has never run. Cursors survive restarts so replication
// resumes instead of restarting.
func (s *Store) Checkpoint(ctx context.Context, collection string) (string, error) {
	var seq string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_seq FROM checkpoints WHERE collection = ?`, collection).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get checkpoint[%s]: %w", collection, err)
	}
	return seq, nil
}

// SetCheckpoint persists the replication cursor for a collection.
func (s *Store) SetCheckpoint(ctx context.Context, collection, seq string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (collection, last_seq) VALUES (?, ?)
		ON CONFLICT(collection) DO UPDATE SET last_seq = excluded.last_seq
	`, collection, seq)
	if err != nil {
		return fmt.Errorf("failed to set checkpoint[%s]: %w", collection, err)
	}
	return nil
}
