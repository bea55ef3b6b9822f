// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists content files, catalog records, links, tags,
// full text, and the impact-factor cache in a local SQLite database.
//
// The store is single-writer: one process owns the database file at a
// time, and SQLite serializes writes. Uniqueness violations are handled
// as update-not-insert, never surfaced as errors.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-catalog/pkg/types"
)

const dbFileDefault = "catalog.db"

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ErrTagCategory is returned when a tag name exists under a different
// category than the one requested. Names are globally unique, so the
// mismatch is a caller error, not something to coerce silently.
var ErrTagCategory = errors.New("tag exists with different category")

// ErrKindMismatch is returned when a link would pair a record with a file
// of a different kind.
var ErrKindMismatch = errors.New("file kind does not match record kind")

// Store manages the catalog SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog database at
// cfg.LibraryDir/cfg.DatabaseFile and creates the schema if missing.
func Open(cfg types.CatalogConfig) (*Store, error) {
	if cfg.LibraryDir == "" {
		return nil, fmt.Errorf("library directory not configured")
	}
	if err := os.MkdirAll(cfg.LibraryDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	name := cfg.DatabaseFile
	if name == "" {
		name = dbFileDefault
	}
	dbPath := filepath.Join(cfg.LibraryDir, name)

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL CHECK (kind IN ('paper','patent','software')),
			path TEXT NOT NULL,
			filename TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending','success','needs_review','needs_ocr','failed')),
			error TEXT,
			last_scanned_at INTEGER NOT NULL,
			UNIQUE (kind, path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_kind_status ON files(kind, status)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			doi TEXT UNIQUE,
			url TEXT,
			entry_type TEXT DEFAULT 'article',
			publication_type TEXT DEFAULT 'other',
			cite_key TEXT,
			confidence REAL DEFAULT 0,
			source TEXT,
			impact_factor REAL,
			volume TEXT,
			issue TEXT,
			pages TEXT,
			abstract TEXT,
			notes TEXT,
			sort_order INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS patents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			patent_type TEXT,
			patent_number TEXT,
			grant_number TEXT,
			inventors TEXT,
			patentee TEXT,
			application_date TEXT,
			grant_date TEXT,
			abstract TEXT,
			url TEXT,
			confidence REAL DEFAULT 0,
			sort_order INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS softwares (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			software_name TEXT,
			title TEXT,
			registration_number TEXT,
			version TEXT,
			copyright_holder TEXT,
			development_date TEXT,
			rights_scope TEXT,
			abstract TEXT,
			url TEXT,
			confidence REAL DEFAULT 0,
			sort_order INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS file_links (
			kind TEXT NOT NULL,
			record_id INTEGER NOT NULL,
			file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			UNIQUE (kind, record_id, file_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_file_links_file ON file_links(file_id)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL DEFAULT '#3498db',
			category TEXT NOT NULL DEFAULT 'paper'
				CHECK (category IN ('paper','patent','software'))
		)`,
		`CREATE TABLE IF NOT EXISTS tag_assignments (
			kind TEXT NOT NULL,
			record_id INTEGER NOT NULL,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			UNIQUE (kind, record_id, tag_id)
		)`,
		`CREATE TABLE IF NOT EXISTS fulltext (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL UNIQUE REFERENCES files(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			indexed_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS journal_impact_factors (
			journal_name TEXT PRIMARY KEY,
			impact_factor REAL,
			queried_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='fulltext_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE fulltext_fts USING fts5(content, content=fulltext, content_rowid=id)`,
			`CREATE TRIGGER fulltext_ai AFTER INSERT ON fulltext BEGIN
				INSERT INTO fulltext_fts(rowid, content) VALUES (new.id, new.content);
			END`,
			`CREATE TRIGGER fulltext_ad AFTER DELETE ON fulltext BEGIN
				INSERT INTO fulltext_fts(fulltext_fts, rowid, content) VALUES('delete', old.id, old.content);
			END`,
			`CREATE TRIGGER fulltext_au AFTER UPDATE ON fulltext BEGIN
				INSERT INTO fulltext_fts(fulltext_fts, rowid, content) VALUES('delete', old.id, old.content);
				INSERT INTO fulltext_fts(rowid, content) VALUES (new.id, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// recordTable maps a kind to its catalog record table.
func recordTable(kind types.Kind) (string, error) {
	switch kind {
	case types.KindPaper:
		return "papers", nil
	case types.KindPatent:
		return "patents", nil
	case types.KindSoftware:
		return "softwares", nil
	default:
		return "", fmt.Errorf("unknown kind %q", kind)
	}
}

// nullStr converts empty strings to NULL so COALESCE-based upserts treat
// absent fields as absent rather than overwriting with "".
func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
