// Package textmatch implements the string-similarity primitives and the
// anchor locator used to re-attach AI suggestions to a document that may
// have been edited since the suggestions were generated.
package textmatch

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var tokenSplitRe = regexp.MustCompile(`\W+`)

// Similarity returns a normalized edit-distance score in [0, 1].
// Identical strings score 1.0; two empty strings also score 1.0.
func Similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	distance := matchr.Levenshtein(a, b)
	return float64(maxLen-distance) / float64(maxLen)
}

// TokenOverlap scores how much of the target's vocabulary the candidate
// retains, as |intersection| / |target tokens| over lowercase word tokens.
// Deliberately asymmetric: a candidate that drops most of the target's
// content words scores low, while one that merely adds or reorders words
// still scores high. Insensitive to word order, unlike Similarity.
func TokenOverlap(target, candidate string) float64 {
	targetTokens := tokenSet(target)
	candidateTokens := tokenSet(candidate)

	if len(targetTokens) == 0 {
		return 1.0
	}
	if len(candidateTokens) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range targetTokens {
		if _, ok := candidateTokens[tok]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(targetTokens))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenSplitRe.Split(strings.ToLower(s), -1) {
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}
