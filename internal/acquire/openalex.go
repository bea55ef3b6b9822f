// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/research-catalog/internal/httputil"
)

// openAlexWorksBase is the OpenAlex single-work endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works/"

type openAlexWork struct {
	BestOALocation *openAlexLocation `json:"best_oa_location"`
}

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// resolvePDFURL asks OpenAlex for the best open-access PDF of a DOI. An
// empty string means the work exists but carries no open-access PDF.
func (d *Downloader) resolvePDFURL(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexWorksBase + "https://doi.org/" + doi
	if d.mailto != "" {
		apiURL += "?mailto=" + url.QueryEscape(d.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating OpenAlex request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, d.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("OpenAlex request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("DOI %s not known to OpenAlex", doi)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAlex returned HTTP %d", resp.StatusCode)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	if work.BestOALocation == nil {
		return "", nil
	}
	return work.BestOALocation.PDFURL, nil
}
