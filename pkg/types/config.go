package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-catalog/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CatalogConfig holds settings for the catalog store.
type CatalogConfig struct {
	// LibraryDir is the root directory holding the cataloged files and the
	// database file.
	LibraryDir string `json:"library_dir" yaml:"library_dir"`

	// DatabaseFile is the SQLite file name inside LibraryDir (default
	// "catalog.db").
	DatabaseFile string `json:"database_file" yaml:"database_file"`
}

// ScanConfig holds settings for the file scanner.
type ScanConfig struct {
	// ExcludedFolders lists directories, relative to the library root,
	// skipped during a scan pass.
	ExcludedFolders []string `json:"excluded_folders" yaml:"excluded_folders"`

	// HashWorkers bounds the parallel hashing pool (default 4).
	HashWorkers int `json:"hash_workers" yaml:"hash_workers"`
}

// ResolverConfig holds settings for the online bibliographic resolver.
type ResolverConfig struct {
	HTTPConfig `yaml:",inline"`

	// Mailto is sent to CrossRef and OpenAlex for polite pool access.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`

	// MaxRetries is the retry ceiling for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxCandidates caps the title-search results considered per provider
	// (default 5).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`
}

// OCRConfig holds settings for the OCR classifier. The remote service and
// the local fallback engine are both optional; with neither configured,
// files needing OCR degrade to needs_review.
type OCRConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the remote OCR service endpoint.
	APIURL string `json:"api_url,omitempty" yaml:"api_url,omitempty"`

	// APIKey authenticates against the remote OCR service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// LocalEnginePath is the executable used as a fallback when the remote
	// service is unavailable (e.g. a tesseract binary). Empty disables the
	// fallback.
	LocalEnginePath string `json:"local_engine_path,omitempty" yaml:"local_engine_path,omitempty"`
}

// ExtractConfig holds settings for local PDF text extraction.
type ExtractConfig struct {
	// PdftotextPath is the pdftotext executable (default "pdftotext",
	// resolved from PATH).
	PdftotextPath string `json:"pdftotext_path" yaml:"pdftotext_path"`

	// MaxPages limits how many leading pages are extracted (default 5).
	MaxPages int `json:"max_pages" yaml:"max_pages"`
}

// AcquireConfig holds settings for manual-entry PDF downloads.
type AcquireConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDir is the directory, relative to the library root, where
	// downloaded PDFs land (default "downloads").
	DownloadDir string `json:"download_dir" yaml:"download_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog"`
	Scan     ScanConfig     `json:"scan" yaml:"scan"`
	Extract  ExtractConfig  `json:"extract" yaml:"extract"`
	Resolver ResolverConfig `json:"resolver" yaml:"resolver"`
	OCR      OCRConfig      `json:"ocr" yaml:"ocr"`
	Acquire  AcquireConfig  `json:"acquire" yaml:"acquire"`
}
