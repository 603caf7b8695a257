package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/revisely/revisely/internal/analysis"
	"github.com/revisely/revisely/internal/paragraph"
	"github.com/revisely/revisely/internal/status"
	"github.com/revisely/revisely/internal/suggestion"
	"github.com/revisely/revisely/internal/textmatch"
)

// SaveFunc persists the buffer and lifecycle state. Fire-and-forget from
// the session's perspective: failures surface as a status message and never
// block editing.
type SaveFunc func(ctx context.Context, content string, rejected []suggestion.ID, applied []AppliedRecord) error

// Options configures a Session. Zero delays disable the corresponding
// debounce timer, leaving analysis and saving explicit-trigger only.
type Options struct {
	ProgramContext string
	AnalyzeDelay   time.Duration
	AutoSaveDelay  time.Duration
	CacheEnabled   bool
	CacheTTL       time.Duration
	CacheCapacity  int
	Save           SaveFunc
}

// Session is one live editing session: it owns the document buffer, the
// lifecycle tracker, and the paragraph cache, and mediates every mutation
// so that locating, validating, and applying a suggestion happen against a
// single consistent snapshot of the buffer.
type Session struct {
	mu sync.Mutex

	content         string
	analyzedContent string
	analyzedKey     string
	suggestions     []suggestion.Suggestion
	feedback        string

	tracker *Tracker
	cache   *paragraph.Cache
	prev    []paragraph.Paragraph
	client  *analysis.Client
	opts    Options

	analyzeTimer *time.Timer
	saveTimer    *time.Timer
	retryTimer   *time.Timer
	closed       bool
}

func NewSession(client *analysis.Client, content string, opts Options) *Session {
	return &Session{
		content: content,
		tracker: NewTracker(),
		cache:   paragraph.NewCache(opts.CacheTTL, opts.CacheCapacity),
		client:  client,
		opts:    opts,
	}
}

// Restore loads persisted lifecycle state, typically right after opening a
// document.
func (s *Session) Restore(rejected []suggestion.ID, applied []AppliedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Restore(rejected, applied)
}

// Content returns the live buffer.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// SetContent replaces the buffer and restarts the analyze and auto-save
// debounce timers. Each timer fires only after its own quiet period with no
// further edits.
func (s *Session) SetContent(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || content == s.content {
		return
	}
	s.content = content
	s.scheduleLocked()
}

func (s *Session) scheduleLocked() {
	if s.closed {
		return
	}
	if s.opts.AnalyzeDelay > 0 {
		if s.analyzeTimer != nil {
			s.analyzeTimer.Stop()
		}
		s.analyzeTimer = time.AfterFunc(s.opts.AnalyzeDelay, func() {
			if _, err := s.Analyze(context.Background(), false); err != nil {
				slog.Debug("Debounced analysis failed", "error", err)
			}
		})
	}
	if s.opts.AutoSaveDelay > 0 && s.opts.Save != nil {
		if s.saveTimer != nil {
			s.saveTimer.Stop()
		}
		s.saveTimer = time.AfterFunc(s.opts.AutoSaveDelay, func() {
			s.Save(context.Background())
		})
	}
}

// Save persists the buffer and lifecycle state through the configured
// SaveFunc. Failures are reported as a status message only.
func (s *Session) Save(ctx context.Context) {
	s.mu.Lock()
	save := s.opts.Save
	content := s.content
	rejected := s.tracker.RejectedIDs()
	applied := s.tracker.Applied()
	s.mu.Unlock()

	if save == nil {
		return
	}
	if err := save(ctx, content, rejected, applied); err != nil {
		slog.Error("Auto-save failed", "error", err)
		status.Warn("Draft could not be saved; retrying on next edit")
	}
}

// Analyze runs the document through the analysis service and installs the
// resulting suggestion set. When force is false and the buffer has not
// changed since the last successful analysis, the call short-circuits and
// returns the current pending set without a round trip.
//
// With the paragraph cache enabled, an edit that touched a strict subset of
// paragraphs sends only the changed paragraphs' text; cached suggestions
// for untouched paragraphs are merged back in. Expired or evicted cache
// entries demote their paragraph to changed, never to a fabricated empty
// result.
func (s *Session) Analyze(ctx context.Context, force bool) ([]suggestion.Suggestion, error) {
	s.mu.Lock()
	content := s.content
	key := analysis.ContentKey(content, s.opts.ProgramContext)
	if !force && key == s.analyzedKey {
		pending := s.tracker.Pending(s.suggestions)
		s.mu.Unlock()
		return pending, nil
	}

	current := paragraph.Split(content)
	changed, unchanged := paragraph.Partition(s.prev, current)
	// Cached suggestions for unchanged paragraphs are captured here, under
	// the same lock that decided they are unchanged. An entry expiring or
	// being evicted during the network call must not drop a paragraph's
	// suggestions after the fact.
	var cachedPrior []suggestion.Suggestion
	if s.opts.CacheEnabled {
		still := unchanged[:0]
		for _, p := range unchanged {
			if cached, ok := s.cache.Get(p.Hash); ok {
				still = append(still, p)
				cachedPrior = append(cachedPrior, cached...)
			} else {
				changed = append(changed, p)
			}
		}
		unchanged = still
	}
	partial := s.opts.CacheEnabled && !force &&
		len(changed) > 0 && len(unchanged) > 0 && len(changed) < len(current)

	toAnalyze := content
	if partial {
		parts := make([]string, len(changed))
		for i, p := range changed {
			parts[i] = p.Text
		}
		toAnalyze = strings.Join(parts, "\n\n")
	}
	s.mu.Unlock()

	status.Info("Analyzing draft...")
	result, err := s.client.Analyze(ctx, toAnalyze, s.opts.ProgramContext)
	if err != nil {
		return nil, s.handleAnalysisError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := result.Suggestions
	if partial {
		merged = append(cachedPrior, result.Suggestions...)
	}
	s.reanchor(merged, content)
	s.storeCacheLocked(current, merged)

	s.suggestions = merged
	if result.OverallFeedback != "" {
		s.feedback = result.OverallFeedback
	}
	s.analyzedContent = content
	s.analyzedKey = key
	s.prev = current
	if pruned := s.tracker.Prune(merged); pruned > 0 {
		slog.Debug("Pruned rejected suggestions no longer produced", "count", pruned)
	}
	return s.tracker.Pending(s.suggestions), nil
}

func (s *Session) handleAnalysisError(err error) error {
	var rateLimit *analysis.RateLimitError
	if errors.As(err, &rateLimit) {
		status.Info("Analysis rate limited; retrying automatically")
		s.mu.Lock()
		if !s.closed {
			if s.retryTimer != nil {
				s.retryTimer.Stop()
			}
			s.retryTimer = time.AfterFunc(rateLimit.RetryAfter, func() {
				// Not forced: a user-triggered analysis completing in the
				// meantime makes this retry a no-op.
				if _, retryErr := s.Analyze(context.Background(), false); retryErr != nil {
					slog.Warn("Scheduled analysis retry failed", "error", retryErr)
				}
			})
		}
		s.mu.Unlock()
		return err
	}

	// Terminal failure for this attempt: clear the suggestion set rather
	// than leave results that no longer describe the buffer.
	s.mu.Lock()
	s.suggestions = nil
	s.feedback = ""
	s.analyzedKey = ""
	s.mu.Unlock()
	status.Error("Analysis failed; your draft is unaffected")
	return err
}

// reanchor re-establishes each suggestion's highlight range against the
// given buffer snapshot via the anchor locator. A suggestion whose span
// cannot be found keeps no range and becomes display-only. A suggestion
// with no original text has nothing to verify its range against, so its
// range is discarded outright: after a partial analysis the raw offsets
// index the joined changed-paragraph slice, not the document.
func (s *Session) reanchor(suggestions []suggestion.Suggestion, content string) {
	for i := range suggestions {
		sug := &suggestions[i]
		if sug.OriginalText == "" {
			if r := sug.HighlightRange; r != nil && !r.Valid(len(content)) {
				slog.Warn("Discarding suggestion range outside buffer",
					"id", sug.ID, "start", r.Start, "end", r.End)
			}
			sug.HighlightRange = nil
			continue
		}
		match := textmatch.Locate(content, textmatch.Anchor{
			OriginalText:  sug.OriginalText,
			ContextBefore: sug.ContextBefore,
			ContextAfter:  sug.ContextAfter,
		})
		if match == nil {
			sug.HighlightRange = nil
			continue
		}
		sug.HighlightRange = &suggestion.Range{Start: match.Start, End: match.End}
	}
}

// storeCacheLocked files each suggestion under the paragraph holding its
// span and caches every current paragraph's result set, including empty
// ones, so an untouched clean paragraph is not re-analyzed next round.
func (s *Session) storeCacheLocked(paragraphs []paragraph.Paragraph, suggestions []suggestion.Suggestion) {
	if !s.opts.CacheEnabled {
		return
	}
	byHash := make(map[string][]suggestion.Suggestion, len(paragraphs))
	for _, p := range paragraphs {
		byHash[p.Hash] = nil
	}
	for _, sug := range suggestions {
		owner := s.owningParagraph(paragraphs, sug)
		if owner == nil {
			continue
		}
		byHash[owner.Hash] = append(byHash[owner.Hash], sug)
	}
	for _, p := range paragraphs {
		s.cache.Put(p.Hash, byHash[p.Hash])
	}
}

func (s *Session) owningParagraph(paragraphs []paragraph.Paragraph, sug suggestion.Suggestion) *paragraph.Paragraph {
	if sug.HighlightRange != nil {
		for i := range paragraphs {
			if paragraphs[i].Contains(sug.HighlightRange.Start) {
				return &paragraphs[i]
			}
		}
	}
	if sug.OriginalText != "" {
		for i := range paragraphs {
			if strings.Contains(paragraphs[i].Text, sug.OriginalText) {
				return &paragraphs[i]
			}
		}
	}
	return nil
}

// Accept applies one pending suggestion: locate the span in the current
// buffer, validate the replacement against that exact slice, and splice —
// one atomic sequence under the session lock, so no other mutation can
// interleave between locate and splice.
func (s *Session) Accept(id suggestion.ID) (AppliedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sug, ok := s.findPendingLocked(id)
	if !ok {
		return AppliedRecord{}, ErrSuggestionNotFound
	}
	if strings.TrimSpace(sug.Replacement) == "" {
		return AppliedRecord{}, ErrNotActionable
	}

	start, end, err := s.resolveSpanLocked(sug)
	if err != nil {
		return AppliedRecord{}, err
	}
	original := s.content[start:end]
	if !suggestion.IsSafeReplacement(original, sug.Replacement) {
		return AppliedRecord{}, fmt.Errorf("%w: %q -> %q", ErrUnsafeReplacement, original, sug.Replacement)
	}

	s.content = s.content[:start] + sug.Replacement + s.content[end:]
	record, err := s.tracker.MarkApplied(id)
	if err != nil {
		return AppliedRecord{}, err
	}
	s.scheduleLocked()
	return record, nil
}

// resolveSpanLocked finds the span to splice for a single accept. Only a
// span the locator re-verified against the live buffer may be applied; a
// raw range hint is never used directly, no matter how plausible it looks.
func (s *Session) resolveSpanLocked(sug suggestion.Suggestion) (start, end int, err error) {
	if sug.OriginalText == "" {
		return 0, 0, ErrPositionLost
	}
	match := textmatch.Locate(s.content, textmatch.Anchor{
		OriginalText:  sug.OriginalText,
		ContextBefore: sug.ContextBefore,
		ContextAfter:  sug.ContextAfter,
	})
	if match == nil {
		return 0, 0, ErrPositionLost
	}
	return match.Start, match.End, nil
}

// AcceptAll applies the maximal non-conflicting pending subset in one
// pass. Every pending suggestion is re-anchored against the current buffer
// first; members failing validation at apply time are skipped and counted,
// never fatal to the batch.
func (s *Session) AcceptAll() (suggestion.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.tracker.Pending(s.suggestions)
	s.reanchor(pending, s.content)
	chosen := suggestion.SelectNonConflicting(pending)
	result := suggestion.ApplyBatch(s.content, chosen)

	s.content = result.Content
	for _, id := range result.Applied {
		if _, err := s.tracker.MarkApplied(id); err != nil {
			return suggestion.BatchResult{}, err
		}
	}
	if len(result.Applied) > 0 {
		s.scheduleLocked()
	}
	return result, nil
}

// Reject dismisses a pending suggestion. The id is remembered so the same
// issue is not re-shown if the service regenerates it.
func (s *Session) Reject(id suggestion.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findPendingLocked(id); !ok {
		return ErrSuggestionNotFound
	}
	return s.tracker.MarkRejected(id)
}

func (s *Session) findPendingLocked(id suggestion.ID) (suggestion.Suggestion, bool) {
	for _, sug := range s.suggestions {
		if sug.ID == id && s.tracker.State(id) == StatePending {
			return sug, true
		}
	}
	return suggestion.Suggestion{}, false
}

// Active returns the pending suggestions, the only ones shown to the user.
func (s *Session) Active() []suggestion.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Pending(s.suggestions)
}

// Feedback returns the overall feedback from the last successful analysis.
func (s *Session) Feedback() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback
}

// Stale reports whether the buffer has drifted from the content last
// analyzed. Advisory only: applying a suggestion always re-locates its
// anchor regardless of this flag.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content != s.analyzedContent
}

// AnalyzedContent returns the snapshot the active suggestions were
// computed against.
func (s *Session) AnalyzedContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzedContent
}

// RejectedIDs exposes the rejection list for persistence.
func (s *Session) RejectedIDs() []suggestion.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.RejectedIDs()
}

// Applied exposes the applied metadata for persistence.
func (s *Session) Applied() []AppliedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Applied()
}

// Close stops the debounce and retry timers. The buffer remains readable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range []*time.Timer{s.analyzeTimer, s.saveTimer, s.retryTimer} {
		if t != nil {
			t.Stop()
		}
	}
}
