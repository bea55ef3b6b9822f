// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads open-access PDFs for manually added papers.
// The OpenAlex record for a DOI names the best open-access location; the
// download lands in the library so the next scan pass picks it up.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-catalog/pkg/types"
)

const defaultDownloadDir = "downloads"

// Downloader fetches open-access PDFs into the library directory.
type Downloader struct {
	client *http.Client
	cfg    types.AcquireConfig
	mailto string
	log    *zap.Logger
}

// New builds a Downloader. mailto joins the OpenAlex polite pool and may
// be empty. A nil client or logger is replaced by a default.
func New(client *http.Client, cfg types.AcquireConfig, mailto string, log *zap.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{client: client, cfg: cfg, mailto: mailto, log: log}
}

// DownloadPDF resolves the open-access PDF for a DOI and saves it under
// the download directory inside root. It returns the library-relative
// path of the saved file. An existing file at the target path short
// circuits the download.
func (d *Downloader) DownloadPDF(ctx context.Context, root, doi string) (string, error) {
	dir := d.cfg.DownloadDir
	if dir == "" {
		dir = defaultDownloadDir
	}
	relPath := dir + "/" + doiSlug(doi) + ".pdf"
	fullPath := filepath.Join(root, filepath.FromSlash(relPath))

	if _, err := os.Stat(fullPath); err == nil {
		return relPath, nil
	}

	pdfURL, err := d.resolvePDFURL(ctx, doi)
	if err != nil {
		return "", err
	}
	if pdfURL == "" {
		return "", fmt.Errorf("no open-access PDF for %s", doi)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	d.log.Info("downloading PDF", zap.String("doi", doi), zap.String("url", pdfURL))
	if err := d.downloadFile(ctx, pdfURL, fullPath); err != nil {
		return "", fmt.Errorf("downloading %s: %w", doi, err)
	}
	return relPath, nil
}

// downloadFile fetches url into destPath through a temporary file, so a
// partial download never leaves a truncated PDF behind.
func (d *Downloader) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// doiSlug turns a DOI into a filesystem-safe file stem.
func doiSlug(doi string) string {
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return repl.Replace(strings.ToLower(strings.TrimSpace(doi)))
}
