// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// Certificate text is noisy twice over: pdftotext inserts spaces between
// CJK glyphs and OCR mangles field labels. Every field therefore has a
// strict pattern tried first and looser fallbacks after it.

var patentNumberRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)专\s*利\s*号[：:\s]*((?:ZL|zl)[\s\d.X]+)`),
	regexp.MustCompile(`(ZL\s*\d{4}\s*\d\s*\d{6,8}\s*[.。]?\s*[X\d])`),
	regexp.MustCompile(`(?i)专利号[:\s]*((?:ZL|zl)\d{9,15}[.X\d]?)`),
	regexp.MustCompile(`(?i)专利号[：:\s]*((?:ZL|zl)\d{4,6}\d{5,8}[.X\d]?)`),
}

// patentNumberParts matches a patent number split into year, type digit,
// serial and check digit, used when no contiguous form is present.
var patentNumberParts = regexp.MustCompile(`(?i)(?:ZL|zl)\s*(\d{4})\s*(\d)\s*(\d{6,8})\s*[.。]?\s*([X\d])`)

var grantNumberRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)授\s*权\s*公\s*告\s*号[：:\s]*((?:CN|cn)[\s\d]+[A-Za-z]?)`),
	regexp.MustCompile(`授权公告号[:\s]*([A-Z]{2}\d+[A-Z]?)`),
}

var (
	applicationDateRegex = regexp.MustCompile(`(?:专\s*利\s*)?申\s*请\s*日[：:\s]*(\d{4}[年\-/.]\s*\d{1,2}[月\-/.]\s*\d{1,2}\s*日?)`)
	grantDateRegex       = regexp.MustCompile(`授\s*权\s*公?\s*告?\s*日[：:\s]*(\d{4}[年\-/.]\s*\d{1,2}[月\-/.]\s*\d{1,2}\s*日?)`)

	inventionTitleRegex = regexp.MustCompile(`(?:发\s*明\s*名\s*称|专\s*利\s*名\s*称)[：:\s]*([^\n]+?)\n[专发地申]`)

	patenteeRegexes = []*regexp.Regexp{
		regexp.MustCompile(`专\s*利\s*权\s*人[：:\s]*([^\n]+?)(?:地\s*址|\n|$)`),
		regexp.MustCompile(`申请日时申请人[：:\s]*([^\n]+?)(?:申请日时发明人|\n|$)`),
	}

	inventorsRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?s)发\s*明\s*人[：:\s]*([^专地授国]+?)(?:专\s*利|地\s*址|授\s*权|国家知识|申请日时申请人|$)`),
		regexp.MustCompile(`(?s)申请日时发明人[：:\s]*([^国专地]+?)(?:国家知识|专利权|地址|$)`),
	}

	// nameListRegex is the last resort for inventors: any label followed
	// by a semicolon-separated list, validated afterwards.
	nameListRegex = regexp.MustCompile(`[：:]\s*([^;；\n]+(?:[;；][^;；\n]+)+)`)

	whitespaceRegex    = regexp.MustCompile(`\s+`)
	nameSeparatorRegex = regexp.MustCompile(`[,，、]+`)
)

var patentKeywords = []string{"专利号", "发明名称", "发明人", "专利权人", "申请日", "授权公告日", "ZL"}

var softwareKeywords = []string{"软件名称", "登记号", "著作权人", "开发完成日期", "SR", "软著"}

const certificateKeywordThreshold = 3

// IsPatentCertificate reports whether text reads like a Chinese patent
// certificate: at least three of its field labels present.
func IsPatentCertificate(text string) bool {
	return countKeywords(text, patentKeywords) >= certificateKeywordThreshold
}

// IsSoftwareCertificate reports whether text reads like a software
// copyright registration certificate.
func IsSoftwareCertificate(text string) bool {
	return countKeywords(text, softwareKeywords) >= certificateKeywordThreshold
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// DetectCertificate classifies certificate text. Patent wins ties: its
// labels are the more distinctive set.
func DetectCertificate(text string) (types.Kind, bool) {
	if IsPatentCertificate(text) {
		return types.KindPatent, true
	}
	if IsSoftwareCertificate(text) {
		return types.KindSoftware, true
	}
	return "", false
}

func stripAllSpace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, "")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// ParsePatent extracts patent-certificate fields from recognized text.
// Absent fields stay empty; completeness is the caller's call.
func ParsePatent(text string) types.Patent {
	p := types.Patent{PatentType: patentType(text)}

	for _, re := range patentNumberRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			pn := strings.ToUpper(m[1])
			pn = strings.ReplaceAll(stripAllSpace(pn), "。", "")
			// Standard form carries a dot before the check digit.
			if !strings.Contains(pn, ".") && len(pn) >= 14 {
				pn = pn[:len(pn)-1] + "." + pn[len(pn)-1:]
			}
			p.PatentNumber = pn
			break
		}
	}
	if p.PatentNumber == "" {
		if m := patentNumberParts.FindStringSubmatch(text); m != nil {
			p.PatentNumber = fmt.Sprintf("ZL%s%s%s.%s", m[1], m[2], m[3], strings.ToUpper(m[4]))
		}
	}

	for _, re := range grantNumberRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			p.GrantNumber = stripAllSpace(strings.ToUpper(m[1]))
			break
		}
	}

	if m := inventionTitleRegex.FindStringSubmatch(text); m != nil {
		p.Title = truncateRunes(stripAllSpace(m[1]), 200)
	}

	for _, re := range inventorsRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			inventors := stripAllSpace(m[1])
			inventors = nameSeparatorRegex.ReplaceAllString(inventors, ";")
			inventors = strings.Trim(inventors, ";")
			if len([]rune(inventors)) > 1 {
				p.Inventors = truncateRunes(inventors, 500)
				break
			}
		}
	}
	if p.Inventors == "" {
		p.Inventors = inventorsFromNameList(text)
	}

	for _, re := range patenteeRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			p.Patentee = truncateRunes(stripAllSpace(m[1]), 200)
			break
		}
	}

	if m := applicationDateRegex.FindStringSubmatch(text); m != nil {
		p.ApplicationDate = stripAllSpace(m[1])
	}
	if m := grantDateRegex.FindStringSubmatch(text); m != nil {
		p.GrantDate = stripAllSpace(m[1])
	}

	return p
}

func inventorsFromNameList(text string) string {
	for _, m := range nameListRegex.FindAllStringSubmatch(text, -1) {
		list := stripAllSpace(m[1])
		parts := strings.FieldsFunc(list, func(r rune) bool { return r == ';' || r == '；' })
		if len(parts) < 2 {
			continue
		}
		ok := true
		for _, part := range parts {
			if n := len([]rune(part)); n < 1 || n > 15 {
				ok = false
				break
			}
		}
		if ok {
			return truncateRunes(strings.ReplaceAll(list, "；", ";"), 500)
		}
	}
	return ""
}

func patentType(text string) string {
	switch {
	case strings.Contains(text, "实用新型"):
		return "实用新型"
	case strings.Contains(text, "外观设计"):
		return "外观设计"
	default:
		return "发明"
	}
}

// PatentComplete reports whether the critical patent fields are all
// present — number, title, inventors, patentee — and the number is well
// formed. A malformed number means the OCR mangled the certificate, so
// the record stays in review.
func PatentComplete(p types.Patent) bool {
	if p.PatentNumber == "" || p.Title == "" || p.Inventors == "" || p.Patentee == "" {
		return false
	}
	return ValidatePatentNumber(p.PatentNumber) == nil
}

var patentNumberStandard = regexp.MustCompile(`^ZL\d{4}[1-9]\d{6,7}[.][X\d]$`)

// ValidatePatentNumber checks a patent number against the standard form
// ZL + year + type digit + serial + "." + check digit,
// e.g. ZL202211551727.X.
func ValidatePatentNumber(patentNumber string) error {
	pn := strings.ToUpper(strings.TrimSpace(patentNumber))
	if pn == "" {
		return fmt.Errorf("patent number is empty")
	}
	if !strings.HasPrefix(pn, "ZL") {
		return fmt.Errorf("patent number must start with ZL")
	}
	pn = strings.ReplaceAll(pn, " ", "")
	if len(pn) != 16 {
		return fmt.Errorf("patent number must be 16 characters, got %d", len(pn))
	}
	if !patentNumberStandard.MatchString(pn) {
		return fmt.Errorf("patent number %q does not match ZL202211551727.X form", pn)
	}
	return nil
}

var softwareNameRegexes = []*regexp.Regexp{
	regexp.MustCompile(`软\s*件\s*名\s*称[：:\s]*([^\n]+?)(?:简称|V\d|著|\n)`),
	regexp.MustCompile(`软件名称[：:\s]*([^\n;；]+)`),
}

var (
	softwareVersionRegex = regexp.MustCompile(`[Vv][\d.]+版?`)

	registrationNumberRegexes = []*regexp.Regexp{
		regexp.MustCompile(`登\s*记\s*号[：:\s]*(\d{4}SR\d+)`),
		regexp.MustCompile(`(\d{4}SR\d+)`),
	}

	copyrightHolderRegexes = []*regexp.Regexp{
		regexp.MustCompile(`著\s*作\s*权\s*人[：:\s]*([^\n]+?)(?:开发|首次|\n)`),
		regexp.MustCompile(`著作权人[：:\s]*([^\n;；]+)`),
	}

	developmentDateRegexes = []*regexp.Regexp{
		regexp.MustCompile(`开\s*发\s*完\s*成\s*日\s*期[：:\s]*(\d{4}[年\-/.]\s*\d{1,2}[月\-/.]\s*\d{1,2}\s*日?)`),
		regexp.MustCompile(`开发完成日期[：:\s]*(\d{4}[年\-/.]\d{1,2}[月\-/.]\d{1,2}日?)`),
	}
)

// ParseSoftware extracts software-registration fields from recognized
// text. The version number, when present, is split off the name.
func ParseSoftware(text string) types.Software {
	var sw types.Software

	for _, re := range softwareNameRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			name := stripAllSpace(m[1])
			if v := softwareVersionRegex.FindString(text); v != "" {
				sw.Version = v
				name = strings.TrimSpace(softwareVersionRegex.ReplaceAllString(name, ""))
			}
			sw.SoftwareName = name
			break
		}
	}

	for _, re := range registrationNumberRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			sw.RegistrationNumber = m[1]
			break
		}
	}

	for _, re := range copyrightHolderRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			sw.CopyrightHolder = stripAllSpace(m[1])
			break
		}
	}

	for _, re := range developmentDateRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			sw.DevelopmentDate = stripAllSpace(m[1])
			break
		}
	}

	return sw
}

// SoftwareComplete reports whether the critical software-registration
// fields are all present: name, registration number, copyright holder,
// development date.
func SoftwareComplete(sw types.Software) bool {
	return sw.SoftwareName != "" && sw.RegistrationNumber != "" &&
		sw.CopyrightHolder != "" && sw.DevelopmentDate != ""
}
