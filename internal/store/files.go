// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pdiddy/research-catalog/pkg/types"
)

const fileColumns = `id, kind, path, filename, sha256, size, mtime, status, COALESCE(error, ''), last_scanned_at`

func scanFile(row interface{ Scan(...any) error }) (types.ContentFile, error) {
	var f types.ContentFile
	var mtime, scanned int64
	err := row.Scan(&f.ID, &f.Kind, &f.Path, &f.Filename, &f.SHA256, &f.Size,
		&mtime, &f.Status, &f.Error, &scanned)
	if err != nil {
		return types.ContentFile{}, err
	}
	f.ModTime = time.Unix(mtime, 0).UTC()
	f.LastScannedAt = time.Unix(scanned, 0).UTC()
	return f, nil
}

// UpsertFile inserts a content file row, or updates the existing row when
// (kind, path) already exists. The row's ID is set on return.
func (s *Store) UpsertFile(ctx context.Context, f *types.ContentFile) error {
	if !f.Kind.Valid() {
		return fmt.Errorf("upserting file %s: unknown kind %q", f.Path, f.Kind)
	}
	if f.Filename == "" {
		f.Filename = filepath.Base(f.Path)
	}
	if f.Status == "" {
		f.Status = types.StatusPending
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO files (kind, path, filename, sha256, size, mtime, status, error, last_scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, path) DO UPDATE SET
			filename = excluded.filename,
			sha256 = excluded.sha256,
			size = excluded.size,
			mtime = excluded.mtime,
			status = excluded.status,
			error = excluded.error,
			last_scanned_at = excluded.last_scanned_at
		RETURNING id`,
		f.Kind, f.Path, f.Filename, f.SHA256, f.Size, f.ModTime.Unix(),
		f.Status, nullStr(f.Error), f.LastScannedAt.Unix(),
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("upserting file %s: %w", f.Path, err)
	}
	return nil
}

// FileByPath looks up a file by kind and path. Returns ErrNotFound when
// the path has never been scanned under that kind.
func (s *Store) FileByPath(ctx context.Context, kind types.Kind, path string) (types.ContentFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE kind = ? AND path = ?`, kind, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ContentFile{}, ErrNotFound
	}
	if err != nil {
		return types.ContentFile{}, fmt.Errorf("looking up file %s: %w", path, err)
	}
	return f, nil
}

// FileByPathAnyKind looks up a file by path regardless of kind. The
// scanner uses it so a kind correction made by the classifier survives
// the next scan pass.
func (s *Store) FileByPathAnyKind(ctx context.Context, path string) (types.ContentFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE path = ? ORDER BY id LIMIT 1`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ContentFile{}, ErrNotFound
	}
	if err != nil {
		return types.ContentFile{}, fmt.Errorf("looking up file %s: %w", path, err)
	}
	return f, nil
}

// FileByID looks up a file by row id.
func (s *Store) FileByID(ctx context.Context, id int64) (types.ContentFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ContentFile{}, ErrNotFound
	}
	if err != nil {
		return types.ContentFile{}, fmt.Errorf("looking up file %d: %w", id, err)
	}
	return f, nil
}

// TouchFile refreshes last_scanned_at for an unchanged file.
func (s *Store) TouchFile(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET last_scanned_at = ? WHERE id = ?`, at.Unix(), id); err != nil {
		return fmt.Errorf("touching file %d: %w", id, err)
	}
	return nil
}

// SetFileStatus records the outcome of a classification pass. The error
// message is stored only for failed files and cleared otherwise.
func (s *Store) SetFileStatus(ctx context.Context, id int64, status types.FileStatus, errMsg string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET status = ?, error = ? WHERE id = ?`,
		status, nullStr(errMsg), id); err != nil {
		return fmt.Errorf("setting status for file %d: %w", id, err)
	}
	return nil
}

// SetFileKind corrects a file's kind, used when the OCR classifier
// determines a certificate's true family.
func (s *Store) SetFileKind(ctx context.Context, id int64, kind types.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("setting kind for file %d: unknown kind %q", id, kind)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET kind = ? WHERE id = ?`, kind, id); err != nil {
		return fmt.Errorf("setting kind for file %d: %w", id, err)
	}
	return nil
}

// SetFilePath moves a file row to a new path, keeping identity and links.
func (s *Store) SetFilePath(ctx context.Context, id int64, newPath string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET path = ?, filename = ? WHERE id = ?`,
		newPath, filepath.Base(newPath), id); err != nil {
		return fmt.Errorf("moving file %d: %w", id, err)
	}
	return nil
}

// FilesByStatus lists files of a kind in a given status, oldest scan first.
func (s *Store) FilesByStatus(ctx context.Context, kind types.Kind, status types.FileStatus) ([]types.ContentFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE kind = ? AND status = ? ORDER BY last_scanned_at, id`,
		kind, status)
	if err != nil {
		return nil, fmt.Errorf("listing %s files with status %s: %w", kind, status, err)
	}
	return collectFiles(rows)
}

// ListFiles lists every file of a kind. An empty kind lists all files.
func (s *Store) ListFiles(ctx context.Context, kind types.Kind) ([]types.ContentFile, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+fileColumns+` FROM files ORDER BY kind, path`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+fileColumns+` FROM files WHERE kind = ? ORDER BY path`, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return collectFiles(rows)
}

// DeleteFile removes a file row. Its links and full text go with it.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting file %d: %w", id, err)
	}
	return nil
}

func collectFiles(rows *sql.Rows) ([]types.ContentFile, error) {
	defer rows.Close()
	var out []types.ContentFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file rows: %w", err)
	}
	return out, nil
}
