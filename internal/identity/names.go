package identity

import (
	"regexp"
	"strings"

	"github.com/camrobjones/papernet/internal/domain"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// CleanName splits a name into lower-cased word tokens.
func CleanName(name string) []string {
	return wordPattern.FindAllString(strings.ToLower(name), -1)
}

// MatchSubstrings reports whether a and b are equal or share a word token.
// It is symmetric.
func MatchSubstrings(a, b string) bool {
	if a == b {
		return true
	}

	bTokens := make(map[string]struct{})
	for _, tok := range CleanName(b) {
		bTokens[tok] = struct{}{}
	}
	for _, tok := range CleanName(a) {
		if _, ok := bTokens[tok]; ok {
			return true
		}
	}
	return false
}

// MatchAuthor reports whether candidate is plausibly the queried author:
// both the family and the given names must match.
func MatchAuthor(query, candidate domain.WorkAuthor) bool {
	return MatchSubstrings(query.Family, candidate.Family) &&
		MatchSubstrings(query.Given, candidate.Given)
}

// MatchAuthors reports whether any candidate with both a given and a family
// name matches query.
func MatchAuthors(query domain.WorkAuthor, candidates []domain.WorkAuthor) bool {
	for _, c := range candidates {
		if c.Given == "" || c.Family == "" {
			continue
		}
		if MatchAuthor(query, c) {
			return true
		}
	}
	return false
}
