package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/dbx"
)

// docRow is the physical shape shared by both collection tables. The doc
// column holds the schema-versioned JSON document; date is extracted for the
// entries index and empty for settings.
type docRow struct {
	ID      string
	Version int
	Date    string
	Doc     string
	Rev     string
	Dirty   bool
}

// docRepo gives SQL access to one collection table. The table
// name comes from the Collection* constants, never from user input.
type docRepo struct {
	db      dbx.DBTX
	table   string
	hasDate bool
}

func newDocRepo(db dbx.DBTX, collection string) *docRepo {
	return &docRepo{db: db, table: collection, hasDate: collection == CollectionEntries}
}

// upsert inserts or replaces a row. An empty rev on a replace keeps the row's
// last synced revision: a local edit of a synced document must not reset its
// place in the revision order, or any stale remote revision would win the
// pull-side comparison and silently discard the pending edit.
func (r *docRepo) upsert(ctx context.Context, row *docRow) error {
	var query string
	var args []any
	if r.hasDate {
		query = `INSERT INTO entries (id, version, date, doc, rev, dirty) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version,
				date = excluded.date,
				doc = excluded.doc,
				rev = CASE WHEN excluded.rev = '' THEN entries.rev ELSE excluded.rev END,
				dirty = excluded.dirty,
				updated_at = datetime('now')`
		args = []any{row.ID, row.Version, row.Date, row.Doc, row.Rev, row.Dirty}
	} else {
		query = `INSERT INTO settings (id, version, doc, rev, dirty) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version,
				doc = excluded.doc,
				rev = CASE WHEN excluded.rev = '' THEN settings.rev ELSE excluded.rev END,
				dirty = excluded.dirty,
				updated_at = datetime('now')`
		args = []any{row.ID, row.Version, row.Doc, row.Rev, row.Dirty}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", r.table, err)
	}
	return nil
}

func (r *docRepo) scanRow(rows *sql.Rows) (*docRow, error) {
	row := &docRow{}
	if err := rows.Scan(&row.ID, &row.Version, &row.Date, &row.Doc, &row.Rev, &row.Dirty); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *docRepo) selectColumns() string {
	if r.hasDate {
		return "id, version, date, doc, rev, dirty"
	}
	return "id, version, '' AS date, doc, rev, dirty"
}

func (r *docRepo) get(ctx context.Context, id string) (*docRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.selectColumns(), r.table)

	row := &docRow{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&row.ID, &row.Version, &row.Date, &row.Doc, &row.Rev, &row.Dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", r.table, id, err)
	}
	return row, nil
}

func (r *docRepo) all(ctx context.Context) ([]*docRow, error) {
	order := "id"
	if r.hasDate {
		order = "date DESC, id"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, r.selectColumns(), r.table, order)

	return r.queryRows(ctx, query)
}

func (r *docRepo) byIDs(ctx context.Context, ids []string) ([]*docRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	order := "id"
	if r.hasDate {
		order = "date DESC, id"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (%s) ORDER BY %s`,
		r.selectColumns(), r.table, placeholders, order)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryRows(ctx, query, args...)
}

func (r *docRepo) pending(ctx context.Context) ([]*docRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE dirty = 1 ORDER BY id`, r.selectColumns(), r.table)
	return r.queryRows(ctx, query)
}

func (r *docRepo) markSynced(ctx context.Context, id, rev string) error {
	query := fmt.Sprintf(`UPDATE %s SET rev = ?, dirty = 0 WHERE id = ?`, r.table)
	if _, err := r.db.ExecContext(ctx, query, rev, id); err != nil {
		return fmt.Errorf("failed to mark %s[%s] synced: %w", r.table, id, err)
	}
	return nil
}

// rewriteDoc replaces the stored document in place after a schema migration,
// leaving rev and dirty untouched so a read never turns into a push.
func (r *docRepo) rewriteDoc(ctx context.Context, row *docRow) error {
	var query string
	var args []any
	if r.hasDate {
		query = `UPDATE entries SET version = ?, date = ?, doc = ? WHERE id = ?`
		args = []any{row.Version, row.Date, row.Doc, row.ID}
	} else {
		query = `UPDATE settings SET version = ?, doc = ? WHERE id = ?`
		args = []any{row.Version, row.Doc, row.ID}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to rewrite %s[%s]: %w", r.table, row.ID, err)
	}
	return nil
}

func (r *docRepo) queryRows(ctx context.Context, query string, args ...any) ([]*docRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", r.table, err)
	}
	defer rows.Close()

	var result []*docRow
	for rows.Next() {
		row, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
