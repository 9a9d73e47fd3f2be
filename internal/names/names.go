// Package names holds the dictionary used by name-capture exchanges.
package names

import (
	_ "embed"
	"strings"
)

//go:embed names.txt
var raw string

// Set is a case-insensitive membership test over known first names.
type Set struct {
	members map[string]struct{}
}

// New builds a set from the given words, lowercased.
func New(words []string) *Set {
	s := &Set{members: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s.members[w] = struct{}{}
		}
	}
	return s
}

// Default returns the embedded dictionary.
func Default() *Set {
	return New(strings.Split(raw, "\n"))
}

// Contains reports whether word (already lowercased) is a known name.
func (s *Set) Contains(word string) bool {
	_, ok := s.members[word]
	return ok
}

// Title returns the display form of a matched token: first letter
// uppercased. Tokens are ASCII by the time they reach the dictionary.
func Title(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
