// Package editor owns the live editing session: the document buffer, the
// suggestion lifecycle, the paragraph cache, and the debounced round trips
// to the analysis service.
package editor

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revisely/revisely/internal/suggestion"
)

// State is the lifecycle stage of one suggestion id.
type State string

const (
	StatePending  State = "pending"
	StateApplied  State = "applied"
	StateRejected State = "rejected"
)

// AppliedRecord is the metadata captured when a suggestion is applied.
type AppliedRecord struct {
	ID             suggestion.ID
	AppliedAt      time.Time
	HistoryEntryID string
}

// Tracker is the per-session suggestion state machine. Ids default to
// pending; applied and rejected are terminal. Rejected ids are remembered
// so a regenerated identical suggestion is not re-shown, until a fresh
// analysis no longer produces them.
type Tracker struct {
	states  map[suggestion.ID]State
	applied map[suggestion.ID]AppliedRecord
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		states:  make(map[suggestion.ID]State),
		applied: make(map[suggestion.ID]AppliedRecord),
		now:     time.Now,
	}
}

// State returns the lifecycle stage for an id; unknown ids are pending.
func (t *Tracker) State(id suggestion.ID) State {
	if s, ok := t.states[id]; ok {
		return s
	}
	return StatePending
}

// MarkApplied transitions a pending suggestion to applied and records when
// it happened and under which edit-history entry.
func (t *Tracker) MarkApplied(id suggestion.ID) (AppliedRecord, error) {
	if t.State(id) != StatePending {
		return AppliedRecord{}, ErrAlreadyResolved
	}
	record := AppliedRecord{
		ID:             id,
		AppliedAt:      t.now(),
		HistoryEntryID: uuid.New().String(),
	}
	t.states[id] = StateApplied
	t.applied[id] = record
	return record, nil
}

// MarkRejected transitions a pending suggestion to rejected.
func (t *Tracker) MarkRejected(id suggestion.ID) error {
	if t.State(id) != StatePending {
		return ErrAlreadyResolved
	}
	t.states[id] = StateRejected
	return nil
}

// Prune garbage-collects rejected ids that a fresh analysis no longer
// produced: those issues cannot recur, so the memory is released. Applied
// metadata is kept for persistence. Returns the number of ids released.
func (t *Tracker) Prune(fresh []suggestion.Suggestion) int {
	freshIDs := make(map[suggestion.ID]struct{}, len(fresh))
	for _, s := range fresh {
		freshIDs[s.ID] = struct{}{}
	}
	pruned := 0
	for id, state := range t.states {
		if state != StateRejected {
			continue
		}
		if _, ok := freshIDs[id]; !ok {
			delete(t.states, id)
			pruned++
		}
	}
	return pruned
}

// Pending filters a suggestion set down to the ids still awaiting a user
// decision. Only these are eligible for location, validation, conflict
// detection, and batch selection.
func (t *Tracker) Pending(suggestions []suggestion.Suggestion) []suggestion.Suggestion {
	out := make([]suggestion.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if t.State(s.ID) == StatePending {
			out = append(out, s)
		}
	}
	return out
}

// RejectedIDs returns the rejection list in stable order for persistence.
func (t *Tracker) RejectedIDs() []suggestion.ID {
	var ids []suggestion.ID
	for id, state := range t.states {
		if state == StateRejected {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b suggestion.ID) int {
		return strings.Compare(string(a), string(b))
	})
	return ids
}

// Applied returns the applied metadata in application order.
func (t *Tracker) Applied() []AppliedRecord {
	records := make([]AppliedRecord, 0, len(t.applied))
	for _, r := range t.applied {
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b AppliedRecord) int {
		if !a.AppliedAt.Equal(b.AppliedAt) {
			return a.AppliedAt.Compare(b.AppliedAt)
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return records
}

// Restore loads persisted lifecycle state, typically on document open.
func (t *Tracker) Restore(rejected []suggestion.ID, applied []AppliedRecord) {
	for _, id := range rejected {
		t.states[id] = StateRejected
	}
	for _, r := range applied {
		t.states[r.ID] = StateApplied
		t.applied[r.ID] = r
	}
}
