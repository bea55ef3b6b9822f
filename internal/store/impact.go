// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// normalizeVenue folds case and whitespace so cache hits survive the
// formatting differences between providers.
func normalizeVenue(venue string) string {
	return strings.Join(strings.Fields(strings.ToLower(venue)), " ")
}

// ImpactFactor looks up the cached impact factor for a venue. The second
// return reports whether the venue has a cache entry at all; a cached
// zero means the venue was queried and has no known factor.
func (s *Store) ImpactFactor(ctx context.Context, venue string) (float64, bool, error) {
	var factor sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT impact_factor FROM journal_impact_factors WHERE journal_name = ?`,
		normalizeVenue(venue)).Scan(&factor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("looking up impact factor for %q: %w", venue, err)
	}
	return factor.Float64, true, nil
}

// SaveImpactFactor caches a venue's impact factor with the query time.
func (s *Store) SaveImpactFactor(ctx context.Context, venue string, factor float64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_impact_factors (journal_name, impact_factor, queried_at)
		VALUES (?, ?, ?)
		ON CONFLICT(journal_name) DO UPDATE SET
			impact_factor = excluded.impact_factor,
			queried_at = excluded.queried_at`,
		normalizeVenue(venue), nullFloat(factor), time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("caching impact factor for %q: %w", venue, err)
	}
	return nil
}

// SetPaperImpactFactor stamps an impact factor onto a paper record.
func (s *Store) SetPaperImpactFactor(ctx context.Context, paperID int64, factor float64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE papers SET impact_factor = ?, updated_at = ? WHERE id = ?`,
		nullFloat(factor), time.Now().UTC().Unix(), paperID); err != nil {
		return fmt.Errorf("setting impact factor for paper %d: %w", paperID, err)
	}
	return nil
}

// PapersMissingImpactFactor lists papers that name a venue but carry no
// impact factor yet.
func (s *Store) PapersMissingImpactFactor(ctx context.Context) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paperColumns+` FROM papers
		WHERE venue IS NOT NULL AND venue != '' AND impact_factor IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing papers without impact factor: %w", err)
	}
	defer rows.Close()
	var out []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating paper rows: %w", err)
	}
	return out, nil
}
