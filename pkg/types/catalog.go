// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Confidence is scored on a 0-100 scale. Records at or above
// AutoAcceptThreshold are accepted without manual review.
const AutoAcceptThreshold = 80.0

// Paper is a bibliographic catalog record. Authors are stored as a single
// "Family, Given; Family, Given" string in source order. DOI, when set, is
// unique across the catalog.
type Paper struct {
	ID              int64   `json:"id" yaml:"id"`
	Title           string  `json:"title" yaml:"title"`
	Authors         string  `json:"authors" yaml:"authors"`
	Year            int     `json:"year,omitempty" yaml:"year,omitempty"`
	Venue           string  `json:"venue,omitempty" yaml:"venue,omitempty"`
	DOI             string  `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL             string  `json:"url,omitempty" yaml:"url,omitempty"`
	EntryType       string  `json:"entry_type" yaml:"entry_type"`
	PublicationType string  `json:"publication_type" yaml:"publication_type"`
	CiteKey         string  `json:"cite_key,omitempty" yaml:"cite_key,omitempty"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`

	// Source records which stage produced the metadata: "pdf" for local
	// heuristics, "doi_lookup" for a DOI-confirmed record, "auto" for a
	// title-search match, "manual" for user entry, "ocr" for the OCR path.
	Source string `json:"source" yaml:"source"`

	ImpactFactor float64 `json:"impact_factor,omitempty" yaml:"impact_factor,omitempty"`
	Volume       string  `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue        string  `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages        string  `json:"pages,omitempty" yaml:"pages,omitempty"`
	Abstract     string  `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Notes        string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	SortOrder    int     `json:"sort_order" yaml:"sort_order"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Patent is a patent-certificate catalog record.
type Patent struct {
	ID              int64   `json:"id" yaml:"id"`
	Title           string  `json:"title" yaml:"title"`
	PatentType      string  `json:"patent_type,omitempty" yaml:"patent_type,omitempty"`
	PatentNumber    string  `json:"patent_number,omitempty" yaml:"patent_number,omitempty"`
	GrantNumber     string  `json:"grant_number,omitempty" yaml:"grant_number,omitempty"`
	Inventors       string  `json:"inventors,omitempty" yaml:"inventors,omitempty"`
	Patentee        string  `json:"patentee,omitempty" yaml:"patentee,omitempty"`
	ApplicationDate string  `json:"application_date,omitempty" yaml:"application_date,omitempty"`
	GrantDate       string  `json:"grant_date,omitempty" yaml:"grant_date,omitempty"`
	Abstract        string  `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	URL             string  `json:"url,omitempty" yaml:"url,omitempty"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	SortOrder       int     `json:"sort_order" yaml:"sort_order"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Software is a software-registration catalog record.
type Software struct {
	ID                 int64   `json:"id" yaml:"id"`
	SoftwareName       string  `json:"software_name" yaml:"software_name"`
	Title              string  `json:"title,omitempty" yaml:"title,omitempty"`
	RegistrationNumber string  `json:"registration_number,omitempty" yaml:"registration_number,omitempty"`
	Version            string  `json:"version,omitempty" yaml:"version,omitempty"`
	CopyrightHolder    string  `json:"copyright_holder,omitempty" yaml:"copyright_holder,omitempty"`
	DevelopmentDate    string  `json:"development_date,omitempty" yaml:"development_date,omitempty"`
	RightsScope        string  `json:"rights_scope,omitempty" yaml:"rights_scope,omitempty"`
	Abstract           string  `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	URL                string  `json:"url,omitempty" yaml:"url,omitempty"`
	Confidence         float64 `json:"confidence" yaml:"confidence"`
	SortOrder          int     `json:"sort_order" yaml:"sort_order"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Tag is a category-scoped label. Name is globally unique; Category
// restricts which catalog kind may use the tag.
type Tag struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Color    string `json:"color" yaml:"color"`
	Category Kind   `json:"category" yaml:"category"`
}

// PaperDraft holds candidate bibliographic fields derived from local text
// heuristics, before online resolution. All fields are untrusted.
type PaperDraft struct {
	Title   string
	Authors string
	Year    int
	Venue   string
	DOI     string
	URL     string
}

// Empty reports whether the draft carries no usable resolution signal.
func (d PaperDraft) Empty() bool {
	return d.Title == "" && d.DOI == ""
}
