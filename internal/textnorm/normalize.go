// Package textnorm normalizes market question text and extracts the
// structured signals (entity, threshold, expiry) the matcher and the
// ladder/consistency detectors key on.
package textnorm

import (
	"regexp"
	"sort"
	"strings"
)

// stopwords is the closed set filtered out during tokenization.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "will": {}, "with": {}, "this": {},
	"that": {}, "than": {}, "what": {}, "when": {}, "which": {}, "who": {},
	"how": {}, "do": {}, "does": {}, "did": {}, "before": {}, "after": {},
}

// nonAlnum matches every rune stripped during normalization. Comparator
// glyphs survive so threshold extraction still works on normalized text.
var nonAlnum = regexp.MustCompile(`[^a-z0-9<>=.\s]+`)

var multiSpace = regexp.MustCompile(`\s+`)

// Normalize lowercases, strips punctuation (keeping comparator glyphs)
// and collapses whitespace.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits normalized text into tokens with stopwords removed.
func Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// StableKey returns the sorted tokens joined by a single space. Two
// questions that differ only in word order or stopwords share a key.
func StableKey(text string) string {
	tokens := Tokenize(text)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
