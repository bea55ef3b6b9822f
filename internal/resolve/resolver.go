// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve matches locally derived bibliographic drafts against
// CrossRef and OpenAlex and merges the confirmed metadata back into a
// catalog record.
package resolve

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// Candidate is a provider record normalized for scoring.
type Candidate struct {
	DOI       string
	Title     string
	Authors   string
	Year      int
	Venue     string
	URL       string
	EntryType string
	Volume    string
	Issue     string
	Pages     string
	Provider  string
}

// Resolution is the outcome of resolving one draft. Source is
// "doi_lookup" when the draft's own DOI confirmed the record, "auto" for
// an accepted search match, "review" for a below-threshold candidate and
// "none" when nothing matched.
type Resolution struct {
	Paper      types.Paper
	Confidence float64
	Source     string
}

// Resolver queries the bibliographic providers.
type Resolver struct {
	client *http.Client
	cfg    types.ResolverConfig
	log    *zap.Logger
}

// New builds a Resolver. A nil client gets http.DefaultClient; a nil
// logger is replaced by a no-op one.
func New(client *http.Client, cfg types.ResolverConfig, log *zap.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{client: client, cfg: cfg, log: log}
}

const defaultMaxCandidates = 5

func (r *Resolver) maxCandidates() int {
	if r.cfg.MaxCandidates > 0 {
		return r.cfg.MaxCandidates
	}
	return defaultMaxCandidates
}

// Resolve matches a draft against the providers. A draft carrying a DOI
// is confirmed directly with confidence 100; otherwise both providers are
// searched by title and the best-scoring candidate decides the outcome.
// An error is returned only when every usable provider call failed, which
// callers treat as transient.
func (r *Resolver) Resolve(ctx context.Context, draft types.PaperDraft) (Resolution, error) {
	if draft.DOI != "" {
		cand, found, err := r.crossrefByDOI(ctx, draft.DOI)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolving DOI %s: %w", draft.DOI, err)
		}
		if found {
			r.log.Info("resolved by DOI lookup", zap.String("doi", draft.DOI))
			return Resolution{
				Paper:      mergeCandidate(draft, cand),
				Confidence: 100,
				Source:     "doi_lookup",
			}, nil
		}
		r.log.Warn("extracted DOI not registered, falling back to search",
			zap.String("doi", draft.DOI))
	}

	if draft.Title == "" {
		return Resolution{Source: "none"}, nil
	}

	var candidates []Candidate
	var errs []error

	crossref, err := r.crossrefSearch(ctx, draft.Title, draft.Authors, draft.Year)
	if err != nil {
		errs = append(errs, err)
	} else {
		candidates = append(candidates, crossref...)
	}

	openalex, err := r.openAlexSearch(ctx, draft.Title, draft.Year)
	if err != nil {
		errs = append(errs, err)
	} else {
		candidates = append(candidates, openalex...)
	}

	if len(candidates) == 0 {
		if len(errs) > 0 {
			return Resolution{}, fmt.Errorf("searching providers: %w", errs[0])
		}
		return Resolution{Source: "none"}, nil
	}

	var best Candidate
	bestScore := 0.0
	for _, cand := range candidates {
		if score := Score(draft, cand); score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if bestScore == 0 {
		return Resolution{Source: "none"}, nil
	}

	if bestScore >= types.AutoAcceptThreshold {
		r.log.Info("auto-matched candidate",
			zap.String("doi", best.DOI),
			zap.String("provider", best.Provider),
			zap.Float64("score", bestScore))
		return Resolution{
			Paper:      mergeCandidate(draft, best),
			Confidence: bestScore,
			Source:     "auto",
		}, nil
	}

	r.log.Info("best candidate below threshold",
		zap.String("doi", best.DOI),
		zap.Float64("score", bestScore))
	// The match stayed unconfirmed, so the draft's own values win over
	// the candidate's and the candidate DOI is not trusted.
	paper := mergeCandidate(draft, Candidate{
		Venue:     best.Venue,
		EntryType: best.EntryType,
	})
	return Resolution{
		Paper:      paper,
		Confidence: bestScore,
		Source:     "review",
	}, nil
}

// mergeCandidate folds a confirmed candidate over the draft: provider
// fields win, the draft fills whatever the provider left blank.
func mergeCandidate(draft types.PaperDraft, cand Candidate) types.Paper {
	p := types.Paper{
		Title:     firstNonEmpty(cand.Title, draft.Title),
		Authors:   firstNonEmpty(cand.Authors, draft.Authors),
		Venue:     firstNonEmpty(cand.Venue, draft.Venue),
		DOI:       firstNonEmpty(cand.DOI, draft.DOI),
		URL:       firstNonEmpty(cand.URL, draft.URL),
		EntryType: firstNonEmpty(cand.EntryType, "article"),
		Volume:    cand.Volume,
		Issue:     cand.Issue,
		Pages:     cand.Pages,
	}
	p.Year = cand.Year
	if p.Year == 0 {
		p.Year = draft.Year
	}
	p.PublicationType = DetectPublicationType(p.Venue)
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	chineseRunes  = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	titleWordOnly = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fff}]`)
)

func containsChinese(s string) bool {
	return chineseRunes.MatchString(s)
}

// TitleSimilarity is the word-set Jaccard similarity of two titles on a
// 0-100 scale.
func TitleSimilarity(a, b string) float64 {
	wordsA := titleWordSet(a)
	wordsB := titleWordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union) * 100
}

func titleWordSet(title string) map[string]bool {
	clean := titleWordOnly.ReplaceAllString(strings.ToLower(title), "")
	set := make(map[string]bool)
	for _, w := range strings.Fields(clean) {
		set[w] = true
	}
	return set
}

// Score rates how well a candidate matches the draft: title similarity
// weighted 40%, plus year, first-author and venue agreement bonuses,
// capped at 100.
func Score(draft types.PaperDraft, cand Candidate) float64 {
	score := TitleSimilarity(draft.Title, cand.Title) * 0.4

	if draft.Year != 0 && cand.Year != 0 {
		switch {
		case draft.Year == cand.Year:
			score += 20
		case abs(draft.Year-cand.Year) <= 1:
			score += 10
		}
	}

	draftFirst := firstAuthor(draft.Authors)
	candFirst := firstAuthor(cand.Authors)
	if draftFirst != "" && candFirst != "" {
		if prefix(draftFirst, 10) == prefix(candFirst, 10) {
			score += 20
		} else if lastWord(draftFirst) == lastWord(candFirst) && lastWord(draftFirst) != "" {
			score += 10
		}
	}

	draftVenue := strings.ToLower(draft.Venue)
	candVenue := strings.ToLower(cand.Venue)
	if draftVenue != "" && candVenue != "" {
		words := strings.Fields(draftVenue)
		if len(words) > 3 {
			words = words[:3]
		}
		for _, w := range words {
			if strings.Contains(candVenue, w) {
				score += 20
				break
			}
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

func firstAuthor(authors string) string {
	return strings.TrimSpace(strings.ToLower(strings.SplitN(authors, ";", 2)[0]))
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var conferenceKeywords = []string{
	"proceedings", "conference", "ccs", "ndss", "oakland",
	"usenix security", "ieee symposium", "acm conference",
	"icml", "neurips", "cvpr", "iccv", "eccv", "iclr",
	"acl", "emnlp", "naacl", "ijcai", "aaai", "sigir",
	"kdd", "icde", "vldb", "sigmod", "icdm",
	"icassp", "interspeech", "icra", "iros",
	"workshop", "symposium", "colloquium",
}

var journalKeywords = []string{
	"journal", "transactions", "letters", "ieee", "acm",
	"elsevier", "springer", "wiley", "taylor", "francis",
	"nature", "science", "cell", "physica", "applied physics", "review",
}

// DetectPublicationType classifies a venue name as "conference",
// "journal" or "other". Conference keywords are checked first since many
// proceedings names also carry a publisher keyword.
func DetectPublicationType(venue string) string {
	if venue == "" {
		return "other"
	}
	lower := strings.ToLower(strings.TrimSpace(venue))
	for _, kw := range conferenceKeywords {
		if strings.Contains(lower, kw) {
			return "conference"
		}
	}
	for _, kw := range journalKeywords {
		if strings.Contains(lower, kw) {
			return "journal"
		}
	}
	return "other"
}
