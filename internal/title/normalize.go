package title

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds the size of normalized and cleaned titles.
const MaxLength = 100

var (
	bracketPattern    = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]|\{[^{}]*\}`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9\s]+`)
	keywordNumber     = regexp.MustCompile(`\b(?:season|cour|part)\s*(\d+)\b`)
	ordinalKeyword    = regexp.MustCompile(`\b(\d+)(?:st|nd|rd|th)?\s*(?:season|cour|part)\b`)
	bareKeyword       = regexp.MustCompile(`\b(?:season|cour|part)\b`)
	qualifierPattern  = regexp.MustCompile(`\b(?:uncut|uncensored|censored|dubbed|dub|subbed|sub|bd)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// phoneticCollapses absorbs common romanization variance. Applied until stable.
var phoneticCollapses = strings.NewReplacer(
	"yuu", "yu",
	"ouh", "oh",
	"yaa", "ya",
)

// Normalize canonicalizes a free-text title into the comparable form used by
// the matcher. The result is lowercase ASCII alphanumerics separated by single
// spaces. Titles written entirely in non-Latin scripts normalize to "".
func Normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = cases.Lower(language.Und).String(s)
	s = stripMarks(s)

	for {
		next := bracketPattern.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}

	s = nonAlnumPattern.ReplaceAllString(s, "")
	s = keywordNumber.ReplaceAllString(s, " $1 ")
	s = ordinalKeyword.ReplaceAllString(s, " $1 ")
	s = bareKeyword.ReplaceAllString(s, " ")
	s = qualifierPattern.ReplaceAllString(s, " ")

	for {
		next := phoneticCollapses.Replace(s)
		if next == s {
			break
		}
		s = next
	}

	s = collapseSpace(s)
	return truncateWords(s, MaxLength)
}

// Clean produces the lighter query form sent to catalog search endpoints.
// Punctuation becomes whitespace and non-Latin scripts are preserved.
func Clean(raw string) string {
	s := norm.NFKC.String(raw)
	s = nonWordPattern.ReplaceAllString(s, " ")
	s = collapseSpace(s)
	if r := []rune(s); len(r) > MaxLength {
		s = strings.TrimSpace(string(r[:MaxLength]))
	}
	return s
}

// Tokens splits a normalized title into its words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func truncateWords(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if s[limit] != ' ' {
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
	}
	return strings.TrimSpace(cut)
}
