package textmatch

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Confidence describes how a span was located.
type Confidence string

const (
	// ConfidenceExact means the span was found verbatim (optionally verified
	// against its surrounding context).
	ConfidenceExact Confidence = "exact"
	// ConfidenceFuzzy means the span was found by case-insensitive or
	// similarity-based search and may not match the analyzed text exactly.
	ConfidenceFuzzy Confidence = "fuzzy"
)

// fuzzyThreshold is the minimum similarity for a fuzzy window candidate.
const fuzzyThreshold = 0.7

// contextBonus is added to a fuzzy candidate's score per matching context
// side, so candidates in the right neighborhood win over lookalikes.
const contextBonus = 0.1

// Anchor is the information captured at analysis time that lets a span be
// re-located after the document has been edited.
type Anchor struct {
	OriginalText  string
	ContextBefore string
	ContextAfter  string
}

// Match is a located span, a half-open [Start, End) byte interval.
type Match struct {
	Start      int
	End        int
	Confidence Confidence
}

// Locate finds the best current position of anchor inside document. It tries
// progressively looser strategies and stops at the first success:
//
//  1. Exact match of contextBefore+originalText+contextAfter.
//  2. Exact match of originalText, verified against any provided context.
//  3. Case-insensitive match of originalText.
//  4. Fuzzy scan anchored on the first word of originalText.
//
// It returns nil when no strategy produces a confident match; callers must
// treat that as "position lost" and never fall back to a stale offset.
func Locate(document string, anchor Anchor) *Match {
	original := anchor.OriginalText
	if original == "" {
		return nil
	}

	// Stage 1: full context sandwich.
	if anchor.ContextBefore != "" && anchor.ContextAfter != "" {
		needle := anchor.ContextBefore + original + anchor.ContextAfter
		if idx := strings.Index(document, needle); idx >= 0 {
			start := idx + len(anchor.ContextBefore)
			return &Match{Start: start, End: start + len(original), Confidence: ConfidenceExact}
		}
	}

	// Stage 2: literal match, context-verified when context is available.
	// Every occurrence is checked so that a context mismatch on the first
	// occurrence does not hide a later, correctly-situated one.
	for from := 0; from <= len(document)-len(original); {
		idx := strings.Index(document[from:], original)
		if idx < 0 {
			break
		}
		idx += from
		if contextAgrees(document, idx, idx+len(original), anchor) {
			return &Match{Start: idx, End: idx + len(original), Confidence: ConfidenceExact}
		}
		from = idx + 1
	}

	// Stage 3: case-insensitive literal match.
	if idx := indexFold(document, original); idx >= 0 {
		return &Match{Start: idx, End: idx + len(original), Confidence: ConfidenceFuzzy}
	}

	// Stage 4: fuzzy scan over windows anchored at occurrences of the first
	// word. The window length is fixed to len(original); a paraphrase of a
	// very different length can be missed, which is acceptable — returning
	// nil is safer than guessing.
	return locateFuzzy(document, anchor)
}

// contextAgrees reports whether the text around [start, end) is compatible
// with the anchor's captured context. The check is loose containment within
// a nearby window, not strict equality, because whitespace and punctuation
// around the span often change during editing.
func contextAgrees(document string, start, end int, anchor Anchor) bool {
	if anchor.ContextBefore == "" && anchor.ContextAfter == "" {
		return true
	}
	if before := strings.TrimSpace(anchor.ContextBefore); before != "" {
		windowStart := max(0, start-len(anchor.ContextBefore)-8)
		if !strings.Contains(document[windowStart:start], before) {
			return false
		}
	}
	if after := strings.TrimSpace(anchor.ContextAfter); after != "" {
		windowEnd := min(len(document), end+len(anchor.ContextAfter)+8)
		if !strings.Contains(document[end:windowEnd], after) {
			return false
		}
	}
	return true
}

func locateFuzzy(document string, anchor Anchor) *Match {
	original := anchor.OriginalText
	fields := strings.Fields(original)
	if len(fields) == 0 {
		return nil
	}
	firstWord := fields[0]

	// Cheap necessary-condition gate before the window scan: if the first
	// word does not even appear as a case-folded subsequence, no window can
	// contain it as a substring.
	if !fuzzy.MatchNormalizedFold(firstWord, document) {
		return nil
	}

	bestScore := 0.0
	bestStart := -1

	for from := 0; from < len(document); {
		offset := indexFold(document[from:], firstWord)
		if offset < 0 {
			break
		}
		start := from + offset
		end := min(len(document), start+len(original))
		window := document[start:end]

		score := Similarity(original, window)
		if score >= fuzzyThreshold {
			if anchor.ContextBefore != "" && contextAgrees(document, start, end, Anchor{ContextBefore: anchor.ContextBefore}) {
				score += contextBonus
			}
			if anchor.ContextAfter != "" && contextAgrees(document, start, end, Anchor{ContextAfter: anchor.ContextAfter}) {
				score += contextBonus
			}
			// Ties break toward the earliest position.
			if score > bestScore {
				bestScore = score
				bestStart = start
			}
		}
		from = start + 1
	}

	if bestStart < 0 {
		return nil
	}
	end := min(len(document), bestStart+len(original))
	return &Match{Start: bestStart, End: end, Confidence: ConfidenceFuzzy}
}

// indexFold returns the byte index of the first case-insensitive occurrence
// of needle in haystack, or -1. Only equal-byte-length folds are considered,
// which keeps offsets exact.
func indexFold(haystack, needle string) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if strings.EqualFold(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
