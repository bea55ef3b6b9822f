// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/research-catalog/internal/httputil"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// openAlexSearch runs a filtered title search against OpenAlex.
func (r *Resolver) openAlexSearch(ctx context.Context, title string, year int) ([]Candidate, error) {
	if title == "" {
		return nil, nil
	}

	filter := fmt.Sprintf("title.search:%q", title)
	if year != 0 {
		filter += " AND publication_year:" + strconv.Itoa(year)
	}

	params := url.Values{
		"filter":   {filter},
		"per-page": {strconv.Itoa(r.maxCandidates())},
	}
	if r.cfg.Mailto != "" {
		params.Set("mailto", r.cfg.Mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex returned HTTP %d", resp.StatusCode)
	}

	var body openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	works := body.Results
	if len(works) > r.maxCandidates() {
		works = works[:r.maxCandidates()]
	}
	out := make([]Candidate, 0, len(works))
	for _, w := range works {
		out = append(out, candidateFromOpenAlex(w))
	}
	return out, nil
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	HostVenue       openAlexHostVenue    `json:"host_venue"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexHostVenue struct {
	DisplayName string `json:"display_name"`
}

func candidateFromOpenAlex(w openAlexWork) Candidate {
	c := Candidate{
		Title:    w.Title,
		Year:     w.PublicationYear,
		Venue:    w.HostVenue.DisplayName,
		Provider: "openalex",
	}
	// OpenAlex reports DOIs as full URLs.
	if w.DOI != "" {
		c.DOI = strings.ToLower(strings.TrimPrefix(w.DOI, "https://doi.org/"))
		c.URL = w.DOI
	} else {
		c.URL = w.ID
	}

	var names []string
	for i, a := range w.Authorships {
		if i >= 3 {
			break
		}
		if n := formatDisplayName(a.Author.DisplayName); n != "" {
			names = append(names, n)
		}
	}
	c.Authors = strings.Join(names, "; ")
	return c
}

// formatDisplayName turns OpenAlex's "Given Family" display name into the
// catalog's "Family, Given" order. Chinese names stay as-is.
func formatDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if containsChinese(name) {
		return name
	}
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}
	return parts[len(parts)-1] + ", " + strings.Join(parts[:len(parts)-1], " ")
}
