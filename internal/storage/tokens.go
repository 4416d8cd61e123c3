// ABOUTME: Tokenizer shared by search-index maintenance and search queries
// ABOUTME: Lowercases, keeps word characters, whitespace and @, drops short tokens, and dedupes

package storage

import (
	"strings"
	"unicode"
)

const minTokenLength = 2

// Tokenize splits text into distinct lowercase search tokens in first-seen order.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '@':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)

	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) < minTokenLength || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// tokenDiff returns the tokens only in before and the tokens only in after.
func tokenDiff(before, after []string) (removed, added []string) {
	inBefore := make(map[string]bool, len(before))
	for _, t := range before {
		inBefore[t] = true
	}
	inAfter := make(map[string]bool, len(after))
	for _, t := range after {
		inAfter[t] = true
		if !inBefore[t] {
			added = append(added, t)
		}
	}
	for _, t := range before {
		if !inAfter[t] {
			removed = append(removed, t)
		}
	}
	return removed, added
}
