// Package textnorm turns free-text course descriptions into token sets.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Set is an unordered collection of distinct tokens.
type Set map[string]struct{}

// Normalize strips punctuation, lower-cases and splits text on whitespace.
// Letters, digits, combining marks and underscores survive; marks are kept
// so that Thai vowel and tone signs stay attached to their words. Scripts
// without inter-word spacing come back as long tokens, which is accepted.
func Normalize(text string) Set {
	out := Set{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' {
			return r
		}
		return ' '
	}, text)

	for _, tok := range strings.Fields(strings.ToLower(cleaned)) {
		out[tok] = struct{}{}
	}
	return out
}

// Has reports whether tok is in the set.
func (s Set) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Intersect returns the tokens present in both sets.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := Set{}
	for tok := range small {
		if large.Has(tok) {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Len returns the token length in characters rather than bytes.
func Len(tok string) int {
	return utf8.RuneCountInString(tok)
}
