package suggestion

import (
	"slices"
	"strings"
)

// SelectNonConflicting picks the subset of suggestions to apply in one
// batch: actionable only, greedily chosen by severity rank (descending) with
// earlier document position breaking ties, skipping anything that overlaps
// an already-selected suggestion.
//
// The greedy walk is deliberately not a globally optimal weighted-interval
// schedule; the "N safe to apply" count shown to users is defined by this
// exact heuristic.
func SelectNonConflicting(suggestions []Suggestion) []Suggestion {
	candidates := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Actionable() {
			candidates = append(candidates, s)
		}
	}

	conflicts := DetectConflicts(candidates)

	slices.SortStableFunc(candidates, func(a, b Suggestion) int {
		if d := b.Severity.Rank() - a.Severity.Rank(); d != 0 {
			return d
		}
		return a.HighlightRange.Start - b.HighlightRange.Start
	})

	blocked := make(map[ID]struct{})
	var selected []Suggestion
	for _, cand := range candidates {
		if _, ok := blocked[cand.ID]; ok {
			continue
		}
		selected = append(selected, cand)
		for neighbor := range conflicts[cand.ID] {
			blocked[neighbor] = struct{}{}
		}
	}
	return selected
}

// BatchResult summarizes one batch application pass.
type BatchResult struct {
	Content string
	Applied []ID
	Skipped []ID
}

// ApplyBatch substitutes the chosen suggestions into content. Edits are
// applied right-to-left by range start so earlier offsets are never shifted
// by a completed edit. Each member is re-validated at apply time; a member
// that fails validation or carries an out-of-bounds range is skipped and
// counted, never fatal to the batch.
func ApplyBatch(content string, chosen []Suggestion) BatchResult {
	ordered := slices.Clone(chosen)
	slices.SortFunc(ordered, func(a, b Suggestion) int {
		return b.HighlightRange.Start - a.HighlightRange.Start
	})

	result := BatchResult{Content: content}
	for _, s := range ordered {
		r := *s.HighlightRange
		if !r.Valid(len(result.Content)) {
			result.Skipped = append(result.Skipped, s.ID)
			continue
		}
		original := result.Content[r.Start:r.End]
		if !IsSafeReplacement(original, s.Replacement) {
			result.Skipped = append(result.Skipped, s.ID)
			continue
		}
		var b strings.Builder
		b.Grow(len(result.Content) - (r.End - r.Start) + len(s.Replacement))
		b.WriteString(result.Content[:r.Start])
		b.WriteString(s.Replacement)
		b.WriteString(result.Content[r.End:])
		result.Content = b.String()
		result.Applied = append(result.Applied, s.ID)
	}
	return result
}
