// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// minTextChars is the threshold below which extracted text is assumed to
// come from a scanned image rather than a born-digital PDF.
const minTextChars = 200

var (
	doiRegex  = regexp.MustCompile(`(?i)\b(10\.\d{4,}/[-a-zA-Z0-9._%+]+)\b`)
	yearRegex = regexp.MustCompile(`\b(19[5-9]\d|20[0-2]\d)\b`)

	chineseRegex = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	emailRegex   = regexp.MustCompile(`[a-zA-Z0-9._-]+@[\w.-]+\.\w+`)
)

// NeedsOCR reports whether extracted text is too short to be the real
// content of the document.
func NeedsOCR(text string) bool {
	return len([]rune(strings.TrimSpace(text))) < minTextChars
}

// ExtractDOI pulls the first plausible DOI out of free text, lowercased.
func ExtractDOI(text string) string {
	matches := doiRegex.FindAllStringSubmatch(text, 10)
	for _, m := range matches {
		doi := m[1]
		if strings.Contains(doi, "/") && len(doi) > 10 {
			return strings.ToLower(doi)
		}
	}
	return ""
}

// ExtractYear picks the publication year from free text. A year seen at
// least twice wins; otherwise the most frequent plausible year does.
func ExtractYear(text string) int {
	matches := yearRegex.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0
	}
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, y := range matches {
		counts[y]++
		if counts[y] > bestCount {
			best, bestCount = y, counts[y]
		}
	}
	year, _ := strconv.Atoi(best)
	if bestCount >= 2 {
		return year
	}
	if year >= 1990 && year <= 2025 {
		return year
	}
	return 0
}

func isChineseText(text string) bool {
	return chineseRegex.MatchString(text)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

var (
	titleStripLatin   = regexp.MustCompile(`[^\w\s\-–—]`)
	titleStripChinese = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fff}\-–—]`)
)

// ExtractTitle guesses the title: an early, reasonably long line that
// follows a blank line. Chinese documents use shorter bounds.
func ExtractTitle(text string) string {
	lines := nonEmptyLines(text)
	raw := strings.Split(text, "\n")
	// precededByText marks lines whose immediate predecessor in the raw
	// text is non-blank, which usually means mid-paragraph.
	precededByText := make(map[string]bool)
	for i := 1; i < len(raw); i++ {
		cur := strings.TrimSpace(raw[i])
		if cur != "" && strings.TrimSpace(raw[i-1]) != "" {
			precededByText[cur] = true
		}
	}

	if isChineseText(text) {
		for i, line := range lines {
			if i >= 10 {
				break
			}
			clean := titleStripChinese.ReplaceAllString(line, "")
			n := len([]rune(clean))
			if n > 10 && n < 200 && !strings.HasPrefix(strings.ToLower(line), "http") {
				if i > 0 && precededByText[line] {
					continue
				}
				return line
			}
		}
		return ""
	}

	for i, line := range lines {
		if i >= 8 {
			break
		}
		clean := titleStripLatin.ReplaceAllString(line, "")
		if len(clean) > 15 && len(clean) < 400 && !strings.HasPrefix(strings.ToLower(line), "http") {
			if i > 0 && precededByText[line] {
				continue
			}
			return line
		}
	}
	for i, line := range lines {
		if i >= 10 {
			break
		}
		clean := titleStripLatin.ReplaceAllString(line, "")
		if len(clean) > 20 && len(clean) < 300 {
			return line
		}
	}
	return ""
}

var hasLatinLetter = regexp.MustCompile(`[a-zA-Z]`)

// ExtractAuthors guesses the author line: an early line of a few words
// that is not an affiliation or contact line.
func ExtractAuthors(text string) string {
	lines := nonEmptyLines(text)
	if len(lines) > 15 {
		lines = lines[:15]
	}

	if isChineseText(text) {
		for _, line := range lines {
			lower := strings.ToLower(line)
			if strings.ContainsAny(line, "@") ||
				strings.Contains(lower, "mailto") ||
				strings.Contains(lower, "http") ||
				strings.Contains(lower, "www") {
				continue
			}
			n := len([]rune(line))
			if n >= 4 && n <= 100 && chineseRegex.MatchString(line) {
				return line
			}
		}
		return ""
	}

	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "university") ||
			strings.Contains(lower, "institute") ||
			strings.Contains(line, "@") ||
			strings.Contains(lower, "mailto") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 || len(parts) > 8 {
			continue
		}
		withLetters := 0
		for _, p := range parts {
			if hasLatinLetter.MatchString(p) {
				withLetters++
			}
		}
		if withLetters >= 2 {
			return line
		}
	}
	return ""
}

var venueKeywords = []string{
	"conference", "proceedings", "journal", "symposium", "workshop",
	"lecture notes", "acm", "ieee", "springer", "elsevier", "arxiv",
}

// ExtractVenue guesses the publication venue from an early line carrying
// a publisher or venue keyword.
func ExtractVenue(text string) string {
	lines := nonEmptyLines(text)
	if len(lines) > 50 {
		lines = lines[:50]
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range venueKeywords {
			if strings.Contains(lower, kw) && len(line) > 5 && len(line) < 150 {
				return line
			}
		}
	}
	return ""
}

// Draft runs every heuristic over the extracted text and assembles a
// candidate record for the resolver.
func Draft(text string) types.PaperDraft {
	return types.PaperDraft{
		Title:   ExtractTitle(text),
		Authors: ExtractAuthors(text),
		Year:    ExtractYear(text),
		Venue:   ExtractVenue(text),
		DOI:     ExtractDOI(text),
	}
}

var citeKeyStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true,
	"and": true, "or": true, "in": true, "on": true, "to": true,
	"with": true, "by": true, "from": true, "as": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "at": true, "into": true, "through": true,
	"during": true, "before": true, "after": true, "above": true,
	"below": true, "between": true, "under": true, "over": true,
}

var (
	citeKeyWordRegex   = regexp.MustCompile(`\b[a-zA-Z]+\b`)
	citeKeyAuthorStrip = regexp.MustCompile(`[^a-zA-Z\x{4e00}-\x{9fff}]`)
)

// CiteKey builds the citation key author+year+keyword: the first
// author's family name, the year, and the first non-stopword title word.
func CiteKey(title, authors string, year int) string {
	first := "unknown"
	if authors != "" {
		full := strings.TrimSpace(strings.SplitN(authors, ";", 2)[0])
		if chineseRegex.MatchString(full) {
			runes := []rune(full)
			if len(runes) > 0 {
				first = string(runes[0])
			}
		} else if family, _, ok := strings.Cut(full, ","); ok {
			// "Family, Given" form, as records store authors.
			first = strings.ToLower(strings.TrimSpace(family))
		} else if parts := strings.Fields(full); len(parts) > 0 {
			first = strings.ToLower(parts[len(parts)-1])
		}
	}
	first = strings.ToLower(citeKeyAuthorStrip.ReplaceAllString(first, ""))
	if first == "" {
		first = "unknown"
	}

	yearStr := "0000"
	if year != 0 {
		yearStr = strconv.Itoa(year)
	}

	keyword := ""
	for _, w := range citeKeyWordRegex.FindAllString(strings.ToLower(title), -1) {
		if !citeKeyStopwords[w] && len(w) > 2 {
			keyword = w
			break
		}
	}
	return first + yearStr + keyword
}

// ExtractEmails lists the distinct lowercased e-mail addresses in text.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range emailRegex.FindAllString(text, -1) {
		e = strings.ToLower(e)
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
