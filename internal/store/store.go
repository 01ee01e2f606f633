// Package store is the Store component (C1): the sole owner of durable
// state for apps, downloads, and inference items. All operations are
// synchronous and atomic per row; getNextQueued runs inside a short
// transaction so two callers racing for the same queue cannot both claim
// the same row.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database and exposes typed accessors per entity via
// the Downloads, Wingmen, and Apps sub-stores.
type Store struct {
	db       *sql.DB
	Downloads *DownloadStore
	Wingmen   *WingmanStore
	Apps      *AppStore
}

// Open creates or opens the SQLite database at path (use ":memory:" for an
// in-process, ephemeral store, as tests do) and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single writer connection avoids "database is locked" errors from
	// SQLite's single-writer model; reads are cheap enough to serialize too.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	s := &Store{db: db}
	s.Downloads = &DownloadStore{db: db}
	s.Wingmen = &WingmanStore{db: db}
	s.Apps = &AppStore{db: db}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS download_items (
			model_repo       TEXT NOT NULL,
			file_path        TEXT NOT NULL,
			total_bytes      INTEGER NOT NULL DEFAULT 0,
			downloaded_bytes INTEGER NOT NULL DEFAULT 0,
			progress         REAL NOT NULL DEFAULT 0,
			status           TEXT NOT NULL,
			error            TEXT NOT NULL DEFAULT '',
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL,
			PRIMARY KEY (model_repo, file_path)
		);`,
		`CREATE TABLE IF NOT EXISTS wingman_items (
			alias        TEXT PRIMARY KEY,
			model_repo   TEXT NOT NULL,
			file_path    TEXT NOT NULL,
			address      TEXT NOT NULL DEFAULT '',
			port         INTEGER NOT NULL DEFAULT 0,
			context_size  INTEGER NOT NULL DEFAULT 0,
			gpu_layers   INTEGER NOT NULL DEFAULT -1,
			status       TEXT NOT NULL,
			error        TEXT NOT NULL DEFAULT '',
			pid          INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS app_items (
			name       TEXT PRIMARY KEY,
			value      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
