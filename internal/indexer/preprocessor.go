package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text before chunking: non-breaking spaces become spaces,
// control characters left behind by PDF extraction are dropped, and whitespace runs collapse
// to a single space.
func Preprocess(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\u00a0':
			return ' '
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}
