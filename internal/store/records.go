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

const paperColumns = `id, COALESCE(title, ''), COALESCE(authors, ''), COALESCE(year, 0),
	COALESCE(venue, ''), COALESCE(doi, ''), COALESCE(url, ''),
	COALESCE(entry_type, 'article'), COALESCE(publication_type, 'other'),
	COALESCE(cite_key, ''), COALESCE(confidence, 0), COALESCE(source, ''),
	COALESCE(impact_factor, 0), COALESCE(volume, ''), COALESCE(issue, ''),
	COALESCE(pages, ''), COALESCE(abstract, ''), COALESCE(notes, ''),
	COALESCE(sort_order, 0), created_at, updated_at`

func scanPaper(row interface{ Scan(...any) error }) (types.Paper, error) {
	var p types.Paper
	var created, updated int64
	err := row.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.Venue, &p.DOI,
		&p.URL, &p.EntryType, &p.PublicationType, &p.CiteKey, &p.Confidence,
		&p.Source, &p.ImpactFactor, &p.Volume, &p.Issue, &p.Pages,
		&p.Abstract, &p.Notes, &p.SortOrder, &created, &updated)
	if err != nil {
		return types.Paper{}, err
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return p, nil
}

// UpsertPaper inserts a paper record, merging into the existing row when
// the DOI is already cataloged. Merge keeps present values: incoming empty
// fields never blank stored ones, and confidence takes the max of the two.
// The record's ID is set on return.
func (s *Store) UpsertPaper(ctx context.Context, p *types.Paper) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if p.DOI == "" {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO papers (title, authors, year, venue, doi, url, entry_type,
				publication_type, cite_key, confidence, source, impact_factor,
				volume, issue, pages, abstract, notes, sort_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullStr(p.Title), nullStr(p.Authors), nullInt(p.Year), nullStr(p.Venue),
			nullStr(p.URL), p.EntryType, p.PublicationType, nullStr(p.CiteKey),
			p.Confidence, nullStr(p.Source), nullFloat(p.ImpactFactor),
			nullStr(p.Volume), nullStr(p.Issue), nullStr(p.Pages),
			nullStr(p.Abstract), nullStr(p.Notes), p.SortOrder,
			p.CreatedAt.Unix(), p.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("inserting paper: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("inserting paper: %w", err)
		}
		p.ID = id
		return nil
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO papers (title, authors, year, venue, doi, url, entry_type,
			publication_type, cite_key, confidence, source, impact_factor,
			volume, issue, pages, abstract, notes, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doi) DO UPDATE SET
			title = COALESCE(excluded.title, title),
			authors = COALESCE(excluded.authors, authors),
			year = COALESCE(excluded.year, year),
			venue = COALESCE(excluded.venue, venue),
			url = COALESCE(excluded.url, url),
			entry_type = COALESCE(excluded.entry_type, entry_type),
			publication_type = COALESCE(excluded.publication_type, publication_type),
			cite_key = COALESCE(excluded.cite_key, cite_key),
			confidence = MAX(confidence, excluded.confidence),
			source = COALESCE(excluded.source, source),
			impact_factor = COALESCE(excluded.impact_factor, impact_factor),
			volume = COALESCE(excluded.volume, volume),
			issue = COALESCE(excluded.issue, issue),
			pages = COALESCE(excluded.pages, pages),
			abstract = COALESCE(excluded.abstract, abstract),
			notes = COALESCE(excluded.notes, notes),
			updated_at = excluded.updated_at
		RETURNING id`,
		nullStr(p.Title), nullStr(p.Authors), nullInt(p.Year), nullStr(p.Venue),
		p.DOI, nullStr(p.URL), nullStr(p.EntryType), nullStr(p.PublicationType),
		nullStr(p.CiteKey), p.Confidence, nullStr(p.Source),
		nullFloat(p.ImpactFactor), nullStr(p.Volume), nullStr(p.Issue),
		nullStr(p.Pages), nullStr(p.Abstract), nullStr(p.Notes), p.SortOrder,
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.DOI, err)
	}
	return nil
}

// UpdatePaper rewrites every field of an existing paper record.
func (s *Store) UpdatePaper(ctx context.Context, p *types.Paper) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE papers SET title = ?, authors = ?, year = ?, venue = ?, doi = ?,
			url = ?, entry_type = ?, publication_type = ?, cite_key = ?,
			confidence = ?, source = ?, impact_factor = ?, volume = ?, issue = ?,
			pages = ?, abstract = ?, notes = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		nullStr(p.Title), nullStr(p.Authors), nullInt(p.Year), nullStr(p.Venue),
		nullStr(p.DOI), nullStr(p.URL), p.EntryType, p.PublicationType,
		nullStr(p.CiteKey), p.Confidence, nullStr(p.Source),
		nullFloat(p.ImpactFactor), nullStr(p.Volume), nullStr(p.Issue),
		nullStr(p.Pages), nullStr(p.Abstract), nullStr(p.Notes), p.SortOrder,
		p.UpdatedAt.Unix(), p.ID)
	if err != nil {
		return fmt.Errorf("updating paper %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating paper %d: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating paper %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// PaperByID looks up a paper record.
func (s *Store) PaperByID(ctx context.Context, id int64) (types.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Paper{}, ErrNotFound
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("looking up paper %d: %w", id, err)
	}
	return p, nil
}

// PaperByDOI looks up a paper record by DOI.
func (s *Store) PaperByDOI(ctx context.Context, doi string) (types.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE doi = ?`, doi)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Paper{}, ErrNotFound
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("looking up paper by DOI %s: %w", doi, err)
	}
	return p, nil
}

// ListPapers returns every paper record, manual sort order first, then
// most recently updated.
func (s *Store) ListPapers(ctx context.Context) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+` FROM papers ORDER BY sort_order, updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
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

const patentColumns = `id, COALESCE(title, ''), COALESCE(patent_type, ''),
	COALESCE(patent_number, ''), COALESCE(grant_number, ''),
	COALESCE(inventors, ''), COALESCE(patentee, ''),
	COALESCE(application_date, ''), COALESCE(grant_date, ''),
	COALESCE(abstract, ''), COALESCE(url, ''), COALESCE(confidence, 0),
	COALESCE(sort_order, 0), created_at, updated_at`

func scanPatent(row interface{ Scan(...any) error }) (types.Patent, error) {
	var p types.Patent
	var created, updated int64
	err := row.Scan(&p.ID, &p.Title, &p.PatentType, &p.PatentNumber,
		&p.GrantNumber, &p.Inventors, &p.Patentee, &p.ApplicationDate,
		&p.GrantDate, &p.Abstract, &p.URL, &p.Confidence, &p.SortOrder,
		&created, &updated)
	if err != nil {
		return types.Patent{}, err
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return p, nil
}

// InsertPatent inserts a patent record and sets its ID.
func (s *Store) InsertPatent(ctx context.Context, p *types.Patent) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO patents (title, patent_type, patent_number, grant_number,
			inventors, patentee, application_date, grant_date, abstract, url,
			confidence, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullStr(p.Title), nullStr(p.PatentType), nullStr(p.PatentNumber),
		nullStr(p.GrantNumber), nullStr(p.Inventors), nullStr(p.Patentee),
		nullStr(p.ApplicationDate), nullStr(p.GrantDate), nullStr(p.Abstract),
		nullStr(p.URL), p.Confidence, p.SortOrder,
		p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting patent: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting patent: %w", err)
	}
	p.ID = id
	return nil
}

// UpdatePatent rewrites every field of an existing patent record.
func (s *Store) UpdatePatent(ctx context.Context, p *types.Patent) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE patents SET title = ?, patent_type = ?, patent_number = ?,
			grant_number = ?, inventors = ?, patentee = ?, application_date = ?,
			grant_date = ?, abstract = ?, url = ?, confidence = ?, sort_order = ?,
			updated_at = ?
		WHERE id = ?`,
		nullStr(p.Title), nullStr(p.PatentType), nullStr(p.PatentNumber),
		nullStr(p.GrantNumber), nullStr(p.Inventors), nullStr(p.Patentee),
		nullStr(p.ApplicationDate), nullStr(p.GrantDate), nullStr(p.Abstract),
		nullStr(p.URL), p.Confidence, p.SortOrder, p.UpdatedAt.Unix(), p.ID)
	if err != nil {
		return fmt.Errorf("updating patent %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating patent %d: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating patent %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// PatentByID looks up a patent record.
func (s *Store) PatentByID(ctx context.Context, id int64) (types.Patent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patentColumns+` FROM patents WHERE id = ?`, id)
	p, err := scanPatent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Patent{}, ErrNotFound
	}
	if err != nil {
		return types.Patent{}, fmt.Errorf("looking up patent %d: %w", id, err)
	}
	return p, nil
}

// ListPatents returns every patent record.
func (s *Store) ListPatents(ctx context.Context) ([]types.Patent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+patentColumns+` FROM patents ORDER BY sort_order, updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing patents: %w", err)
	}
	defer rows.Close()
	var out []types.Patent
	for rows.Next() {
		p, err := scanPatent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patent row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patent rows: %w", err)
	}
	return out, nil
}

const softwareColumns = `id, COALESCE(software_name, ''), COALESCE(title, ''),
	COALESCE(registration_number, ''), COALESCE(version, ''),
	COALESCE(copyright_holder, ''), COALESCE(development_date, ''),
	COALESCE(rights_scope, ''), COALESCE(abstract, ''), COALESCE(url, ''),
	COALESCE(confidence, 0), COALESCE(sort_order, 0), created_at, updated_at`

func scanSoftware(row interface{ Scan(...any) error }) (types.Software, error) {
	var sw types.Software
	var created, updated int64
	err := row.Scan(&sw.ID, &sw.SoftwareName, &sw.Title, &sw.RegistrationNumber,
		&sw.Version, &sw.CopyrightHolder, &sw.DevelopmentDate, &sw.RightsScope,
		&sw.Abstract, &sw.URL, &sw.Confidence, &sw.SortOrder, &created, &updated)
	if err != nil {
		return types.Software{}, err
	}
	sw.CreatedAt = time.Unix(created, 0).UTC()
	sw.UpdatedAt = time.Unix(updated, 0).UTC()
	return sw, nil
}

// InsertSoftware inserts a software-registration record and sets its ID.
func (s *Store) InsertSoftware(ctx context.Context, sw *types.Software) error {
	now := time.Now().UTC()
	if sw.CreatedAt.IsZero() {
		sw.CreatedAt = now
	}
	sw.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO softwares (software_name, title, registration_number, version,
			copyright_holder, development_date, rights_scope, abstract, url,
			confidence, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullStr(sw.SoftwareName), nullStr(sw.Title), nullStr(sw.RegistrationNumber),
		nullStr(sw.Version), nullStr(sw.CopyrightHolder), nullStr(sw.DevelopmentDate),
		nullStr(sw.RightsScope), nullStr(sw.Abstract), nullStr(sw.URL),
		sw.Confidence, sw.SortOrder, sw.CreatedAt.Unix(), sw.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting software: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting software: %w", err)
	}
	sw.ID = id
	return nil
}

// UpdateSoftware rewrites every field of an existing software record.
func (s *Store) UpdateSoftware(ctx context.Context, sw *types.Software) error {
	sw.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE softwares SET software_name = ?, title = ?, registration_number = ?,
			version = ?, copyright_holder = ?, development_date = ?,
			rights_scope = ?, abstract = ?, url = ?, confidence = ?,
			sort_order = ?, updated_at = ?
		WHERE id = ?`,
		nullStr(sw.SoftwareName), nullStr(sw.Title), nullStr(sw.RegistrationNumber),
		nullStr(sw.Version), nullStr(sw.CopyrightHolder), nullStr(sw.DevelopmentDate),
		nullStr(sw.RightsScope), nullStr(sw.Abstract), nullStr(sw.URL),
		sw.Confidence, sw.SortOrder, sw.UpdatedAt.Unix(), sw.ID)
	if err != nil {
		return fmt.Errorf("updating software %d: %w", sw.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating software %d: %w", sw.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating software %d: %w", sw.ID, ErrNotFound)
	}
	return nil
}

// SoftwareByID looks up a software record.
func (s *Store) SoftwareByID(ctx context.Context, id int64) (types.Software, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+softwareColumns+` FROM softwares WHERE id = ?`, id)
	sw, err := scanSoftware(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Software{}, ErrNotFound
	}
	if err != nil {
		return types.Software{}, fmt.Errorf("looking up software %d: %w", id, err)
	}
	return sw, nil
}

// ListSoftwares returns every software record.
func (s *Store) ListSoftwares(ctx context.Context) ([]types.Software, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+softwareColumns+` FROM softwares ORDER BY sort_order, updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing softwares: %w", err)
	}
	defer rows.Close()
	var out []types.Software
	for rows.Next() {
		sw, err := scanSoftware(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning software row: %w", err)
		}
		out = append(out, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating software rows: %w", err)
	}
	return out, nil
}

// DeleteRecord removes a catalog record together with its file links and
// tag assignments. Linked files stay: a file row outlives every record
// that referenced it. The cascade runs in one transaction because a
// kind-discriminated link table cannot declare a foreign key into three
// record tables.
func (s *Store) DeleteRecord(ctx context.Context, kind types.Kind, id int64) error {
	table, err := recordTable(kind)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM file_links WHERE kind = ? AND record_id = ?`, kind, id); err != nil {
		return fmt.Errorf("deleting links for %s %d: %w", kind, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tag_assignments WHERE kind = ? AND record_id = ?`, kind, id); err != nil {
		return fmt.Errorf("deleting tag assignments for %s %d: %w", kind, id, err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting %s %d: %w", kind, id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}
	return nil
}
