// Package textutil reduces free-form message text to matchable tokens.
package textutil

import "strings"

// QuestionToken is appended to the token stream when the raw message
// contains a literal question mark. Exchanges can define it as a keyword
// to special-case questions.
const QuestionToken = "question"

// Clean strips everything but ASCII letters, digits, and spaces.
// Dropped bytes close the gap, so punctuation between two words fuses
// them unless a space was already adjacent.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == ' ':
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Tokenize lowercases a cleaned message and splits it on whitespace.
// If the raw message contains a '?', QuestionToken is appended last.
// Total: never errors, empty input yields an empty (possibly nil) slice.
func Tokenize(s string) []string {
	tokens := strings.Fields(strings.ToLower(Clean(s)))
	if strings.Contains(s, "?") {
		tokens = append(tokens, QuestionToken)
	}
	return tokens
}

// Words lowercases a cleaned message and splits it on whitespace without
// the question synthesis. Used by handlers that scan for literal words,
// like name capture.
func Words(s string) []string {
	return strings.Fields(strings.ToLower(Clean(s)))
}
