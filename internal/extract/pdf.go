// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract derives bibliographic drafts and certificate fields
// from locally extracted text. Everything here is heuristic: outputs are
// untrusted candidates for the online resolver or the review queue.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// TextExtractor produces plain text from a document on disk.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

const defaultMaxPages = 5

// Pdftotext extracts text by shelling out to the pdftotext binary from
// poppler-utils.
type Pdftotext struct {
	// Binary is the executable to run. Empty means "pdftotext" from PATH.
	Binary string

	// MaxPages limits extraction to the leading pages. Titles, authors
	// and DOIs live on page one; reading the whole document just costs
	// time. Zero means the default of 5.
	MaxPages int
}

// ExtractText runs pdftotext over the leading pages of the PDF and
// returns the UTF-8 text.
func (p Pdftotext) ExtractText(ctx context.Context, path string) (string, error) {
	binary := p.Binary
	if binary == "" {
		binary = "pdftotext"
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	cmd := exec.CommandContext(ctx, binary,
		"-f", "1", "-l", strconv.Itoa(maxPages), "-enc", "UTF-8", path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %s on %s: %w (%s)", binary, path, err, stderr.String())
	}
	return stdout.String(), nil
}
