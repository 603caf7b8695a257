package suggestion

import (
	"log/slog"
	"strings"

	"github.com/revisely/revisely/internal/textmatch"
)

const (
	// minTokenOverlap is the semantic-similarity floor: below it the
	// replacement is judged to change what the text is about.
	minTokenOverlap = 0.5
	// wordFloorMinWords is the original length at which the word-count floor
	// starts to apply.
	wordFloorMinWords = 6
	// wordFloorRatio is the minimum replacement/original word-count ratio
	// for longer originals.
	wordFloorRatio = 0.5
)

// IsSafeReplacement is the last gate before any text mutation. It rejects
// replacements that are blank, drift too far from the original's meaning,
// or delete a suspicious share of a longer original. It must be consulted
// for every application, single or batch.
func IsSafeReplacement(original, replacement string) bool {
	orig := strings.TrimSpace(original)
	repl := strings.TrimSpace(replacement)

	if repl == "" {
		slog.Debug("Replacement rejected: empty after trimming")
		return false
	}

	if orig == repl {
		// No-op edits are trivially safe.
		return true
	}

	if overlap := textmatch.TokenOverlap(orig, repl); overlap < minTokenOverlap {
		slog.Debug("Replacement rejected: token overlap below floor",
			"overlap", overlap, "original", orig, "replacement", repl)
		return false
	}

	// Independent of the similarity score: a long original shrinking to a
	// fraction of its word count looks like content deletion dressed up as
	// a fix.
	origWords := len(strings.Fields(orig))
	if origWords >= wordFloorMinWords {
		replWords := len(strings.Fields(repl))
		if float64(replWords) < wordFloorRatio*float64(origWords) {
			slog.Debug("Replacement rejected: word count floor",
				"original_words", origWords, "replacement_words", replWords)
			return false
		}
	}

	// Warn-only: sentence merges are legitimate AI behavior, but losing
	// terminal punctuation is worth a trace.
	if endsWithSentencePunct(orig) && !endsWithSentencePunct(repl) {
		slog.Warn("Replacement drops sentence-terminal punctuation",
			"original", orig, "replacement", repl)
	}

	return true
}

func endsWithSentencePunct(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
