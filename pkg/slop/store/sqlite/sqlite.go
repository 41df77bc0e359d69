package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/store"
)

// timeLayout is fixed-width so that stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	lists_json TEXT,
	newick TEXT NOT NULL DEFAULT '',
	tree_json TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_sources (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	fingerprint_json TEXT,
	error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(run_id, name),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts a run and its sources in one transaction.
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if err := r.Validate(); err != nil {
		return err
	}

	var listsJSON sql.NullString
	if r.Lists != nil {
		data, err := json.Marshal(r.Lists)
		if err != nil {
			return err
		}
		listsJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id=?`, r.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: run %s", internalerr.ErrDuplicate, r.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, created_at, lists_json, newick, tree_json)
VALUES (?, ?, ?, ?, ?);
`, r.ID, r.CreatedAt.UTC().Format(timeLayout), listsJSON, r.Newick, r.TreeJSON)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_sources (run_id, position, name, fingerprint_json, error)
VALUES (?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, src := range r.Sources {
		var fpJSON sql.NullString
		if src.OK() {
			data, err := json.Marshal(src.Fingerprint)
			if err != nil {
				return err
			}
			fpJSON = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ID, i, src.Name, fpJSON, src.Error); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRun loads a run with its sources in their original order.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		r         store.Run
		createdAt string
		listsJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, lists_json, newick, tree_json
FROM runs
WHERE id = ?;
`, id).Scan(&r.ID, &createdAt, &listsJSON, &r.Newick, &r.TreeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	if err != nil {
		return store.Run{}, err
	}

	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return store.Run{}, fmt.Errorf("run %s: parse created_at: %w", id, err)
	}
	if listsJSON.Valid {
		var lists canon.SlopLists
		if err := json.Unmarshal([]byte(listsJSON.String), &lists); err != nil {
			return store.Run{}, fmt.Errorf("run %s: decode lists: %w", id, err)
		}
		r.Lists = &lists
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT name, fingerprint_json, error
FROM run_sources
WHERE run_id = ?
ORDER BY position;
`, id)
	if err != nil {
		return store.Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			src    store.SourceRecord
			fpJSON sql.NullString
		)
		if err := rows.Scan(&src.Name, &fpJSON, &src.Error); err != nil {
			return store.Run{}, err
		}
		if fpJSON.Valid {
			if err := json.Unmarshal([]byte(fpJSON.String), &src.Fingerprint); err != nil {
				return store.Run{}, fmt.Errorf("run %s: decode fingerprint %q: %w", id, src.Name, err)
			}
		}
		r.Sources = append(r.Sources, src)
	}
	return r, rows.Err()
}

// ListRuns returns run headers, newest first.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.created_at, r.newick != '',
	COUNT(src.name),
	COALESCE(SUM(CASE WHEN src.error != '' THEN 1 ELSE 0 END), 0)
FROM runs r
LEFT JOIN run_sources src ON src.run_id = r.id
GROUP BY r.id
ORDER BY r.created_at DESC, r.id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []store.RunInfo
	for rows.Next() {
		var (
			info      store.RunInfo
			createdAt string
		)
		if err := rows.Scan(&info.ID, &createdAt, &info.HasTree, &info.Sources, &info.Failed); err != nil {
			return nil, err
		}
		if info.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: parse created_at: %w", info.ID, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
