// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Kind identifies which catalog family a file or record belongs to.
type Kind string

const (
	KindPaper    Kind = "paper"
	KindPatent   Kind = "patent"
	KindSoftware Kind = "software"
)

// Valid reports whether k is one of the three catalog kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPaper, KindPatent, KindSoftware:
		return true
	}
	return false
}

// FileStatus is the ingestion lifecycle state of a content file.
type FileStatus string

const (
	// StatusPending marks a freshly discovered or changed file awaiting
	// classification.
	StatusPending FileStatus = "pending"

	// StatusSuccess marks a file whose catalog record was resolved with
	// confidence at or above the auto-accept threshold.
	StatusSuccess FileStatus = "success"

	// StatusNeedsReview marks a file left for manual resolution: low or
	// conflicting metadata, or exhausted retries against online services.
	StatusNeedsReview FileStatus = "needs_review"

	// StatusNeedsOCR marks a paper file whose extracted text was too short,
	// indicating scanned-image content.
	StatusNeedsOCR FileStatus = "needs_ocr"

	// StatusFailed marks a structurally unreadable file. The row is kept
	// with a human-readable error message; it is never removed by the
	// pipeline.
	StatusFailed FileStatus = "failed"
)

// ContentFile is one file-as-row in the content store. Two rows may share
// a SHA256 (byte-identical copies at different paths); path is unique per
// kind.
type ContentFile struct {
	ID            int64      `json:"id" yaml:"id"`
	Kind          Kind       `json:"kind" yaml:"kind"`
	Path          string     `json:"path" yaml:"path"`
	Filename      string     `json:"filename" yaml:"filename"`
	SHA256        string     `json:"sha256" yaml:"sha256"`
	Size          int64      `json:"size" yaml:"size"`
	ModTime       time.Time  `json:"mtime" yaml:"mtime"`
	Status        FileStatus `json:"status" yaml:"status"`
	Error         string     `json:"error,omitempty" yaml:"error,omitempty"`
	LastScannedAt time.Time  `json:"last_scanned_at" yaml:"last_scanned_at"`
}

// Changed reports whether the on-disk identity differs from the stored row.
func (f ContentFile) Changed(sha256 string, size int64, modTime time.Time) bool {
	return f.SHA256 != sha256 || f.Size != size || !f.ModTime.Equal(modTime)
}
