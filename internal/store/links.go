// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// Bind links a catalog record to a content file of the same kind.
// Binding an already-bound pair is a no-op.
func (s *Store) Bind(ctx context.Context, kind types.Kind, recordID, fileID int64) error {
	f, err := s.FileByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("binding %s %d to file %d: %w", kind, recordID, fileID, err)
	}
	if f.Kind != kind {
		return fmt.Errorf("binding %s %d to file %d: %w", kind, recordID, fileID, ErrKindMismatch)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO file_links (kind, record_id, file_id) VALUES (?, ?, ?)`,
		kind, recordID, fileID); err != nil {
		return fmt.Errorf("binding %s %d to file %d: %w", kind, recordID, fileID, err)
	}
	return nil
}

// Unbind removes the link between a record and a file. Removing an absent
// link is a no-op.
func (s *Store) Unbind(ctx context.Context, kind types.Kind, recordID, fileID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM file_links WHERE kind = ? AND record_id = ? AND file_id = ?`,
		kind, recordID, fileID); err != nil {
		return fmt.Errorf("unbinding %s %d from file %d: %w", kind, recordID, fileID, err)
	}
	return nil
}

// FilesForRecord lists the content files linked to a record.
func (s *Store) FilesForRecord(ctx context.Context, kind types.Kind, recordID int64) ([]types.ContentFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE id IN (SELECT file_id FROM file_links WHERE kind = ? AND record_id = ?)
		ORDER BY path`,
		kind, recordID)
	if err != nil {
		return nil, fmt.Errorf("listing files for %s %d: %w", kind, recordID, err)
	}
	return collectFiles(rows)
}

// RecordIDsForFile lists the records of the file's kind linked to a file.
func (s *Store) RecordIDsForFile(ctx context.Context, kind types.Kind, fileID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id FROM file_links WHERE kind = ? AND file_id = ? ORDER BY record_id`,
		kind, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing records for file %d: %w", fileID, err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning link row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link rows: %w", err)
	}
	return out, nil
}

// GetOrCreateTag returns the tag named name, creating it with the given
// color and category when absent. Tag names are globally unique; asking
// for an existing name under a different category returns ErrTagCategory.
func (s *Store) GetOrCreateTag(ctx context.Context, name, color string, category types.Kind) (types.Tag, error) {
	if !category.Valid() {
		return types.Tag{}, fmt.Errorf("creating tag %q: unknown category %q", name, category)
	}

	var t types.Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, category FROM tags WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.Color, &t.Category)
	if err == nil {
		if t.Category != category {
			return types.Tag{}, fmt.Errorf("tag %q is a %s tag: %w", name, t.Category, ErrTagCategory)
		}
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Tag{}, fmt.Errorf("looking up tag %q: %w", name, err)
	}

	if color == "" {
		color = "#3498db"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (name, color, category) VALUES (?, ?, ?)`,
		name, color, category)
	if err != nil {
		return types.Tag{}, fmt.Errorf("creating tag %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Tag{}, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return types.Tag{ID: id, Name: name, Color: color, Category: category}, nil
}

// AssignTag attaches a tag to a record. The tag's category must match the
// record's kind. Re-assigning is a no-op.
func (s *Store) AssignTag(ctx context.Context, kind types.Kind, recordID, tagID int64) error {
	var category types.Kind
	err := s.db.QueryRowContext(ctx,
		`SELECT category FROM tags WHERE id = ?`, tagID).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("assigning tag %d: %w", tagID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("assigning tag %d: %w", tagID, err)
	}
	if category != kind {
		return fmt.Errorf("assigning tag %d to %s %d: %w", tagID, kind, recordID, ErrTagCategory)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tag_assignments (kind, record_id, tag_id) VALUES (?, ?, ?)`,
		kind, recordID, tagID); err != nil {
		return fmt.Errorf("assigning tag %d to %s %d: %w", tagID, kind, recordID, err)
	}
	return nil
}

// UnassignTag detaches a tag from a record. Detaching an absent
// assignment is a no-op.
func (s *Store) UnassignTag(ctx context.Context, kind types.Kind, recordID, tagID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM tag_assignments WHERE kind = ? AND record_id = ? AND tag_id = ?`,
		kind, recordID, tagID); err != nil {
		return fmt.Errorf("unassigning tag %d from %s %d: %w", tagID, kind, recordID, err)
	}
	return nil
}

// TagsForRecord lists the tags attached to a record.
func (s *Store) TagsForRecord(ctx context.Context, kind types.Kind, recordID int64) ([]types.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, category FROM tags
		WHERE id IN (SELECT tag_id FROM tag_assignments WHERE kind = ? AND record_id = ?)
		ORDER BY name`,
		kind, recordID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for %s %d: %w", kind, recordID, err)
	}
	return collectTags(rows)
}

// ListTags lists every tag in a category. An empty category lists all tags.
func (s *Store) ListTags(ctx context.Context, category types.Kind) ([]types.Tag, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, color, category FROM tags ORDER BY category, name`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, color, category FROM tags WHERE category = ? ORDER BY name`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return collectTags(rows)
}

// DeleteTag removes a tag and, through the foreign key, every assignment
// of it.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting tag %d: %w", id, err)
	}
	return nil
}

func collectTags(rows *sql.Rows) ([]types.Tag, error) {
	defer rows.Close()
	var out []types.Tag
	for rows.Next() {
		var t types.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Category); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag rows: %w", err)
	}
	return out, nil
}
