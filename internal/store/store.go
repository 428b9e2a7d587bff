// Package store implements the local encrypted document store: a per-device
// sqlite database holding the settings and entries collections, with
// field-level encryption, document schema versioning, and live queries.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/cryptox"
	"github.com/gabrielpoca/journal/internal/dbx"
	"github.com/gabrielpoca/journal/internal/live"
	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/gabrielpoca/journal/internal/store/migrate"
	"github.com/gabrielpoca/journal/internal/store/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	metaSaltKey     = "salt"
	metaVerifierKey = "verifier"
)

// Options configure Open.
type Options struct {
	// Path is the sqlite database file, e.g. <datadir>/journal.db.
	Path string
	// Logger defaults to slog when nil.
	Logger logging.Logger
}

// Store is the open, unlocked local store. It owns the sqlite handle and the
// live-query hub; callers must Close it when done.
type Store struct {
	db      *sql.DB
	path    string
	key     []byte
	log     logging.Logger
	hub     *live.Hub
	engines map[string]*migrate.Engine
}

// Open opens (creating if absent) the per-device store protected by
// password. The entry body field is sealed under a key derived from the
// password; reopening with a different password fails with
// common.ErrWrongPassword. Opening twice with the same password yields the
// same logical store.
func Open(ctx context.Context, opts Options, password []byte) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewSlogLogger(slog.Default())
	}

	engines, err := newEngines()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}

	key, err := unlock(ctx, db, password)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		path:    opts.Path,
		key:     key,
		log:     log,
		hub:     live.NewHub(),
		engines: engines,
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// unlock derives the master key and checks it against the persisted
// verifier. The first open under a password seeds salt and verifier.
func unlock(ctx context.Context, db *sql.DB, password []byte) ([]byte, error) {
	meta := &metadataRepo{db: db}

	salt, err := meta.get(ctx, metaSaltKey)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt = common.GenerateRandBytes(32)
		if err := meta.set(ctx, metaSaltKey, salt); err != nil {
			return nil, err
		}
	}

	key := cryptox.DeriveMasterKey(password, salt)

	verifier, err := meta.get(ctx, metaVerifierKey)
	if err != nil {
		return nil, err
	}
	if verifier == nil {
		return key, meta.set(ctx, metaVerifierKey, cryptox.MakeVerifier(key))
	}
	if !cryptox.VerifyKey(key, verifier) {
		return nil, common.ErrWrongPassword
	}
	return key, nil
}

// Path returns the database file path; it identifies the store for sync
// idempotence tracking.
func (s *Store) Path() string { return s.path }

// Close cancels all live subscriptions, wipes the in-memory key, and
// releases the sqlite handle.
func (s *Store) Close() error {
	s.hub.Close()
	common.WipeBytes(s.key)
	return s.db.Close()
}

func (s *Store) repo(collection string) *docRepo {
	return newDocRepo(s.db, collection)
}

func (s *Store) engine(collection string) (*migrate.Engine, error) {
	eng, ok := s.engines[collection]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %s", common.ErrMigrationConfig, collection)
	}
	return eng, nil
}

// loadDoc decodes a row's document, upgrading it through any pending schema
// migrations first. Migrated documents are rewritten so the upgrade runs at
// most once; either way the caller only ever sees the current shape.
func (s *Store) loadDoc(ctx context.Context, collection string, row *docRow) (migrate.Doc, error) {
	eng, err := s.engine(collection)
	if err != nil {
		return nil, err
	}

	var doc migrate.Doc
	if err := json.Unmarshal([]byte(row.Doc), &doc); err != nil {
		return nil, fmt.Errorf("decode %s[%s]: %w", collection, row.ID, err)
	}
	if row.Version >= eng.Current() {
		return doc, nil
	}

	doc, err = eng.Apply(doc, row.Version)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	upgraded := &docRow{
		ID:      row.ID,
		Version: eng.Current(),
		Date:    row.Date,
		Doc:     string(raw),
		Rev:     row.Rev,
		Dirty:   row.Dirty,
	}
	if date, ok := doc["date"].(string); ok {
		upgraded.Date = date
	}
	if err := s.repo(collection).rewriteDoc(ctx, upgraded); err != nil {
		return nil, err
	}
	return doc, nil
}

// storeDoc persists a current-version document and notifies live queries.
// dirty marks the row for the push side of replication; an empty rev leaves
// an existing row's revision in place (see docRepo.upsert).
func (s *Store) storeDoc(ctx context.Context, collection string, doc migrate.Doc, rev string, dirty bool) error {
	eng, err := s.engine(collection)
	if err != nil {
		return err
	}

	id, _ := doc["id"].(string)
	if id == "" {
		return fmt.Errorf("document in %s has no id", collection)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s[%s]: %w", collection, id, err)
	}

	row := &docRow{
		ID:      id,
		Version: eng.Current(),
		Doc:     string(raw),
		Rev:     rev,
		Dirty:   dirty,
	}
	if date, ok := doc["date"].(string); ok {
		row.Date = date
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return newDocRepo(tx, collection).upsert(ctx, row)
	})
	if err != nil {
		return err
	}

	s.hub.Publish(live.Event{Collection: collection, ID: id})
	return nil
}
