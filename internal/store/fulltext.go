// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// SaveFullText stores the extracted text of a file, replacing any earlier
// version. The FTS index follows through the sync triggers.
func (s *Store) SaveFullText(ctx context.Context, fileID int64, content string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO fulltext (file_id, content, indexed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			content = excluded.content,
			indexed_at = excluded.indexed_at`,
		fileID, content, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("saving full text for file %d: %w", fileID, err)
	}
	return nil
}

// FullText returns the stored text of a file, or ErrNotFound when the
// file was never indexed.
func (s *Store) FullText(ctx context.Context, fileID int64) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM fulltext WHERE file_id = ?`, fileID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading full text for file %d: %w", fileID, err)
	}
	return content, nil
}

// SearchHit is one match from Search. Origin distinguishes a full-text
// body match from a metadata match; FileID and Path are zero for
// metadata-only hits, PaperID is zero when a matched file is not linked
// to a paper record.
type SearchHit struct {
	Origin  string `json:"origin"`
	PaperID int64  `json:"paper_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	Year    int    `json:"year,omitempty"`
	FileID  int64  `json:"file_id,omitempty"`
	Path    string `json:"path,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Search runs the query against the full-text index and against paper
// metadata (title, authors, venue), merging the results with full-text
// matches first. A paper already surfaced by a full-text hit is not
// repeated as a metadata hit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.path,
			snippet(fulltext_fts, 0, '[', ']', '…', 12),
			COALESCE(p.id, 0), COALESCE(p.title, ''), COALESCE(p.authors, ''), COALESCE(p.year, 0)
		FROM fulltext_fts
		JOIN fulltext ft ON ft.id = fulltext_fts.rowid
		JOIN files f ON f.id = ft.file_id
		LEFT JOIN file_links l ON l.file_id = f.id AND l.kind = 'paper'
		LEFT JOIN papers p ON p.id = l.record_id
		WHERE fulltext_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching full text: %w", err)
	}

	var hits []SearchHit
	seen := make(map[int64]bool)
	func() {
		defer rows.Close()
		for rows.Next() {
			h := SearchHit{Origin: "fulltext"}
			if scanErr := rows.Scan(&h.FileID, &h.Path, &h.Snippet,
				&h.PaperID, &h.Title, &h.Authors, &h.Year); scanErr != nil {
				err = fmt.Errorf("scanning full-text hit: %w", scanErr)
				return
			}
			if h.PaperID != 0 {
				seen[h.PaperID] = true
			}
			hits = append(hits, h)
		}
		err = rows.Err()
	}()
	if err != nil {
		return nil, fmt.Errorf("searching full text: %w", err)
	}

	like := "%" + query + "%"
	metaRows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(title, ''), COALESCE(authors, ''), COALESCE(year, 0)
		FROM papers
		WHERE title LIKE ? OR authors LIKE ? OR venue LIKE ?
		ORDER BY sort_order, updated_at DESC
		LIMIT ?`,
		like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("searching metadata: %w", err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		h := SearchHit{Origin: "metadata"}
		if err := metaRows.Scan(&h.PaperID, &h.Title, &h.Authors, &h.Year); err != nil {
			return nil, fmt.Errorf("scanning metadata hit: %w", err)
		}
		if seen[h.PaperID] {
			continue
		}
		hits = append(hits, h)
	}
	if err := metaRows.Err(); err != nil {
		return nil, fmt.Errorf("searching metadata: %w", err)
	}

	return hits, nil
}

// FilesMissingFullText lists successful paper files that have no entry in
// the full-text index yet.
func (s *Store) FilesMissingFullText(ctx context.Context) ([]types.ContentFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE kind = 'paper' AND status = 'success'
			AND id NOT IN (SELECT file_id FROM fulltext)
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing unindexed files: %w", err)
	}
	return collectFiles(rows)
}
