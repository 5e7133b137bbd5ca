package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/quantfish/crossarb/pkg/types"
)

var thresholdRe = regexp.MustCompile(
	`(?i)(>=|<=|>|<|over|under|above|below|at least)\s?\$?(\d+(?:,\d{3})*(?:\.\d+)?)\s?(k|m)?\b`)

// ExtractThreshold parses a comparator and numeric threshold out of raw
// question text. Word synonyms collapse to canonical symbols and k/m
// suffixes scale by 1e3/1e6. The second return is false when the text
// carries no threshold structure.
func ExtractThreshold(text string) (types.Comparator, float64, bool) {
	m := thresholdRe.FindStringSubmatch(text)
	if m == nil {
		return "", 0, false
	}

	var cmp types.Comparator
	switch strings.ToLower(m[1]) {
	case ">=", "at least":
		cmp = types.ComparatorGTE
	case "<=":
		cmp = types.ComparatorLTE
	case ">", "over", "above":
		cmp = types.ComparatorGT
	case "<", "under", "below":
		cmp = types.ComparatorLT
	default:
		return "", 0, false
	}

	raw := strings.ReplaceAll(m[2], ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, false
	}

	switch strings.ToLower(m[3]) {
	case "k":
		value *= 1e3
	case "m":
		value *= 1e6
	}

	return cmp, value, true
}

var tickerRe = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// ExtractEntity returns the subject of a question: the first 2-5 letter
// uppercase token (ticker style) if present, otherwise the first
// non-stopword token. Always lowercased; empty when nothing qualifies.
func ExtractEntity(text string) string {
	if ticker := tickerRe.FindString(text); ticker != "" {
		return strings.ToLower(ticker)
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// dateRes pair a finder regex with the layouts its captures parse under.
var dateRes = []struct {
	re      *regexp.Regexp
	layouts []string
}{
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), []string{"2006-01-02"}},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), []string{"1/2/2006"}},
	{
		regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		[]string{"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006"},
	},
	{
		regexp.MustCompile(`(?i)\b\d{1,2}\s+(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+\d{4}\b`),
		[]string{"2 January 2006", "2 Jan 2006"},
	},
}

var ordinalRe = regexp.MustCompile(`(?i)(\d{1,2})(st|nd|rd|th)`)

// ExtractExpiry fuzzily parses a date out of raw text. Returns nil when no
// recognizable date is present; callers treat that as non-fatal.
func ExtractExpiry(text string) *time.Time {
	for _, d := range dateRes {
		match := d.re.FindString(text)
		if match == "" {
			continue
		}
		cleaned := ordinalRe.ReplaceAllString(match, "$1")
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		for _, layout := range d.layouts {
			if t, err := time.Parse(layout, normalizeCase(cleaned)); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// normalizeCase title-cases the month token so "march 3, 2026" parses.
func normalizeCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if len(f) > 0 && f[0] >= 'a' && f[0] <= 'z' {
			fields[i] = strings.ToUpper(f[:1]) + f[1:]
		}
	}
	return strings.Join(fields, " ")
}
