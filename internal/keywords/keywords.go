// Package keywords matches free-form status text against configured
// vocabularies. Both sides are NFKC-normalised and case-folded, so
// full-width punctuation and letter case on the target never matter.
package keywords

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Set is an ordered, normalised vocabulary.
type Set struct {
	raw  []string
	norm []string
}

// NewSet normalises words once; blank entries are dropped.
func NewSet(words []string) Set {
	s := Set{}
	for _, w := range words {
		n := Normalize(w)
		if n == "" {
			continue
		}
		s.raw = append(s.raw, w)
		s.norm = append(s.norm, n)
	}
	return s
}

// Match returns the first configured word contained in text.
func (s Set) Match(text string) (string, bool) {
	if len(s.norm) == 0 {
		return "", false
	}
	t := Normalize(text)
	if t == "" {
		return "", false
	}
	for i, w := range s.norm {
		if strings.Contains(t, w) {
			return s.raw[i], true
		}
	}
	return "", false
}

// Len returns the number of usable words.
func (s Set) Len() int { return len(s.norm) }

// Normalize applies NFKC, case folding and whitespace trimming.
func Normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}
