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

// crossrefAPIBase is the CrossRef Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

func (r *Resolver) crossrefRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("CrossRef request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("CrossRef returned HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// crossrefByDOI fetches the full CrossRef record for a known DOI. A 404
// means the DOI is not registered; that is reported as found=false, not
// an error.
func (r *Resolver) crossrefByDOI(ctx context.Context, doi string) (Candidate, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		crossrefAPIBase+"/"+url.PathEscape(doi), nil)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.cfg.MaxRetries)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("CrossRef DOI lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Candidate{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Candidate{}, false, fmt.Errorf("CrossRef returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		Message crossrefWork `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Candidate{}, false, fmt.Errorf("parsing CrossRef response: %w", err)
	}
	return candidateFromCrossref(body.Message), true, nil
}

// crossrefSearch runs a bibliographic query built from the draft's title,
// first author family name and year.
func (r *Resolver) crossrefSearch(ctx context.Context, title, authors string, year int) ([]Candidate, error) {
	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if authors != "" {
		first := strings.TrimSpace(strings.SplitN(authors, ";", 2)[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			parts = append(parts, fields[len(fields)-1])
		}
	}
	if year != 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	query := strings.Join(parts, " ")
	if query == "" {
		return nil, nil
	}
	if len(query) > 500 {
		query = query[:500]
	}

	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {strconv.Itoa(r.maxCandidates())},
	}
	if r.cfg.Mailto != "" {
		params.Set("mailto", r.cfg.Mailto)
	}

	resp, err := r.crossrefRequest(ctx, crossrefAPIBase+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing CrossRef response: %w", err)
	}

	items := body.Message.Items
	if len(items) > r.maxCandidates() {
		items = items[:r.maxCandidates()]
	}
	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		out = append(out, candidateFromCrossref(item))
	}
	return out, nil
}

type crossrefWork struct {
	DOI             string           `json:"DOI"`
	Title           []string         `json:"title"`
	Author          []crossrefAuthor `json:"author"`
	PublishedPrint  crossrefDate     `json:"published-print"`
	PublishedOnline crossrefDate     `json:"published-online"`
	ContainerTitle  []string         `json:"container-title"`
	URL             string           `json:"URL"`
	Type            string           `json:"type"`
	Volume          string           `json:"volume"`
	Issue           string           `json:"issue"`
	Page            string           `json:"page"`
}

type crossrefAuthor struct {
	Family string `json:"family"`
	Given  string `json:"given"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

func candidateFromCrossref(w crossrefWork) Candidate {
	c := Candidate{
		DOI:       strings.ToLower(w.DOI),
		URL:       w.URL,
		EntryType: w.Type,
		Volume:    w.Volume,
		Issue:     w.Issue,
		Pages:     w.Page,
		Provider:  "crossref",
	}
	if len(w.Title) > 0 {
		c.Title = w.Title[0]
	}
	if len(w.ContainerTitle) > 0 {
		c.Venue = w.ContainerTitle[0]
	}
	c.Year = w.PublishedPrint.year()
	if c.Year == 0 {
		c.Year = w.PublishedOnline.year()
	}

	var names []string
	for _, a := range w.Author {
		if n := formatAuthorParts(a.Family, a.Given); n != "" {
			names = append(names, n)
		}
	}
	c.Authors = strings.Join(names, "; ")
	return c
}

// formatAuthorParts renders a CrossRef author as "Family, Given".
// Chinese names are concatenated without separator instead.
func formatAuthorParts(family, given string) string {
	family = strings.TrimSpace(family)
	given = strings.TrimSpace(given)
	if containsChinese(family + given) {
		return family + given
	}
	switch {
	case family != "" && given != "":
		return family + ", " + given
	case family != "":
		return family
	default:
		return given
	}
}
