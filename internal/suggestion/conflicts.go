package suggestion

// ConflictSet is a symmetric adjacency map over suggestion ids whose ranges
// overlap. It is derived state, recomputed per pass, never persisted.
type ConflictSet map[ID]map[ID]struct{}

// Conflicts reports whether a and b overlap according to the set.
func (c ConflictSet) Conflicts(a, b ID) bool {
	_, ok := c[a][b]
	return ok
}

// DetectConflicts computes pairwise overlap between suggestion ranges.
// Suggestions without a range never conflict and never block others.
// Quadratic over ranged suggestions, which is fine at editor scale.
func DetectConflicts(suggestions []Suggestion) ConflictSet {
	conflicts := make(ConflictSet)

	ranged := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.HighlightRange != nil {
			ranged = append(ranged, s)
		}
	}

	for i := 0; i < len(ranged); i++ {
		for j := i + 1; j < len(ranged); j++ {
			if !ranged[i].HighlightRange.Overlaps(*ranged[j].HighlightRange) {
				continue
			}
			add(conflicts, ranged[i].ID, ranged[j].ID)
			add(conflicts, ranged[j].ID, ranged[i].ID)
		}
	}
	return conflicts
}

func add(c ConflictSet, from, to ID) {
	if c[from] == nil {
		c[from] = make(map[ID]struct{})
	}
	c[from][to] = struct{}{}
}
