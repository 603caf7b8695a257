package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/revisely/revisely/internal/analysis"
	"github.com/revisely/revisely/internal/analysis/mock"
	"github.com/revisely/revisely/internal/suggestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchored(id suggestion.ID, original, replacement string, sev suggestion.Severity) suggestion.Suggestion {
	return suggestion.Suggestion{
		ID:           id,
		Category:     "clarity",
		Severity:     sev,
		OriginalText: original,
		Replacement:  replacement,
	}
}

func respondWith(suggestions ...suggestion.Suggestion) func(context.Context, string, string) (*analysis.Result, error) {
	return func(context.Context, string, string) (*analysis.Result, error) {
		return &analysis.Result{Suggestions: suggestions}, nil
	}
}

func newTestSession(content string, analyzer *mock.Analyzer, opts Options) *Session {
	return NewSession(analysis.NewClient(analyzer), content, opts)
}

func TestAcceptAppliesSingleSuggestion(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("s1", "very passionate", "deeply passionate", suggestion.SeverityWarning),
	)}
	s := newTestSession("I am very passionate about this.", analyzer, Options{})

	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	record, err := s.Accept("s1")
	require.NoError(t, err)
	assert.NotEmpty(t, record.HistoryEntryID)
	assert.Equal(t, "I am deeply passionate about this.", s.Content())
	assert.Empty(t, s.Active())
}

func TestAcceptRelocatesAfterEdit(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("s1", "very passionate", "deeply passionate", suggestion.SeverityWarning),
	)}
	s := newTestSession("I am very passionate about this.", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	// Content shifts before the user accepts; the anchor must be
	// re-located, not applied at the stale offset.
	s.SetContent("As I said before, I am very passionate about this.")

	_, err = s.Accept("s1")
	require.NoError(t, err)
	assert.Equal(t, "As I said before, I am deeply passionate about this.", s.Content())
}

func TestAcceptPositionLost(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("s1", "very passionate", "deeply passionate", suggestion.SeverityWarning),
	)}
	s := newTestSession("I am very passionate about this.", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	s.SetContent("A completely rewritten opening sentence.")

	_, err = s.Accept("s1")
	assert.ErrorIs(t, err, ErrPositionLost)
	// The buffer is untouched and the suggestion stays pending.
	assert.Equal(t, "A completely rewritten opening sentence.", s.Content())
	assert.Len(t, s.Active(), 1)
}

func TestAcceptUnsafeReplacement(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("s1", "my research focuses on marine biology", "basketball is fun to watch", suggestion.SeverityWarning),
	)}
	s := newTestSession("In short, my research focuses on marine biology.", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	_, err = s.Accept("s1")
	assert.ErrorIs(t, err, ErrUnsafeReplacement)
	assert.Equal(t, "In short, my research focuses on marine biology.", s.Content())
}

func TestAcceptRangeHintWithoutAnchorNeverApplied(t *testing.T) {
	t.Parallel()

	// A range with no original text cannot be verified against the buffer,
	// so it must never be spliced at the raw offset, in bounds or not.
	tests := []struct {
		name string
		r    suggestion.Range
	}{
		{name: "range outside buffer", r: suggestion.Range{Start: 5, End: 999}},
		{name: "range inside buffer", r: suggestion.Range{Start: 0, End: 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := tc.r
			analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(suggestion.Suggestion{
				ID:             "s1",
				Severity:       suggestion.SeverityWarning,
				Replacement:    "fix",
				HighlightRange: &r,
			})}
			s := newTestSession("short text", analyzer, Options{})
			_, err := s.Analyze(context.Background(), false)
			require.NoError(t, err)

			_, err = s.Accept("s1")
			assert.ErrorIs(t, err, ErrPositionLost)
			assert.Equal(t, "short text", s.Content())

			result, err := s.AcceptAll()
			require.NoError(t, err)
			assert.Empty(t, result.Applied)
			assert.Equal(t, "short text", s.Content())
		})
	}
}

func TestPartialAnalysisRangeHintTargetsWrongParagraph(t *testing.T) {
	t.Parallel()

	const (
		p1       = "The cat sat on the mat yesterday evening."
		p2       = "A second thought closes the draft."
		p2edited = "A second, better thought closes the draft."
	)
	calls := 0
	analyzer := &mock.Analyzer{}
	analyzer.AnalyzeFunc = func(context.Context, string, string) (*analysis.Result, error) {
		calls++
		if calls == 1 {
			return &analysis.Result{}, nil
		}
		// The service answered for the changed paragraph only; its raw
		// offsets index that slice, where they happen to be in bounds of
		// the full document too.
		return &analysis.Result{Suggestions: []suggestion.Suggestion{{
			ID:             "r1",
			Severity:       suggestion.SeverityCritical,
			Replacement:    "A better second thought closes the draft.",
			HighlightRange: &suggestion.Range{Start: 0, End: len(p2edited)},
		}}}, nil
	}
	s := newTestSession(p1+"\n\n"+p2, analyzer, Options{CacheEnabled: true})

	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	s.SetContent(p1 + "\n\n" + p2edited)
	_, err = s.Analyze(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, p2edited, analyzer.Calls()[1].Content, "second round must be partial")

	content := s.Content()
	_, err = s.Accept("r1")
	assert.ErrorIs(t, err, ErrPositionLost)
	assert.Equal(t, content, s.Content(), "first paragraph must not be overwritten")

	result, err := s.AcceptAll()
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.Equal(t, content, s.Content())
}

func TestAcceptInformationalOnly(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("s1", "short text", "", suggestion.SeverityInfo),
	)}
	s := newTestSession("short text", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	_, err = s.Accept("s1")
	assert.ErrorIs(t, err, ErrNotActionable)
}

func TestAcceptUnknownID(t *testing.T) {
	t.Parallel()
	s := newTestSession("text", &mock.Analyzer{}, Options{})
	_, err := s.Accept("missing")
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestAcceptAllConflictingCriticals(t *testing.T) {
	t.Parallel()
	// Anchors overlap on "beta": the located ranges are {0,10} and {6,16}.
	a := anchored("a", "alpha beta", "alpha beta!", suggestion.SeverityCritical)
	b := anchored("b", "beta gamma", "beta gamma?", suggestion.SeverityCritical)
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(a, b)}
	s := newTestSession("alpha beta gamma", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	result, err := s.AcceptAll()
	require.NoError(t, err)

	// Equal severity, overlapping ranges: exactly one wins, by position.
	assert.Equal(t, []suggestion.ID{"a"}, result.Applied)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "alpha beta! gamma", s.Content())

	// The loser was not applied and not rejected; it stays pending.
	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, suggestion.ID("b"), active[0].ID)
}

func TestAcceptAllAppliesNonConflictingAcrossSeverities(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("low", "good morning", "Good morning", suggestion.SeverityInfo),
		anchored("high", "good night", "good night!", suggestion.SeverityCritical),
	)}
	s := newTestSession("good morning and good night", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	result, err := s.AcceptAll()
	require.NoError(t, err)
	assert.ElementsMatch(t, []suggestion.ID{"low", "high"}, result.Applied)
	assert.Equal(t, "Good morning and good night!", s.Content())
}

func TestAnalyzeShortCircuitsUnchangedContent(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith()}
	s := newTestSession("stable content", analyzer, Options{})

	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)
	_, err = s.Analyze(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, analyzer.Calls(), 1, "unchanged content must not re-trigger the service")

	_, err = s.Analyze(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, analyzer.Calls(), 2, "forced analysis always goes out")
}

func TestAnalyzePartialSendsOnlyChangedParagraph(t *testing.T) {
	t.Parallel()

	const (
		p1       = "The opening paragraph talks about alpha."
		p2       = "The middle paragraph talks about beta."
		p2edited = "The middle paragraph talks about betamax."
		p3       = "The closing paragraph talks about gamma."
	)
	analyzer := &mock.Analyzer{}
	analyzer.AnalyzeFunc = func(_ context.Context, content, _ string) (*analysis.Result, error) {
		if strings.Contains(content, "betamax") && !strings.Contains(content, "alpha") {
			return &analysis.Result{Suggestions: []suggestion.Suggestion{
				anchored("p2-new", "betamax", "Betamax", suggestion.SeverityWarning),
			}}, nil
		}
		return &analysis.Result{Suggestions: []suggestion.Suggestion{
			anchored("p1-s", "alpha", "Alpha", suggestion.SeverityInfo),
			anchored("p2-s", "beta", "Beta", suggestion.SeverityInfo),
			anchored("p3-s", "gamma", "Gamma", suggestion.SeverityInfo),
		}}, nil
	}
	s := newTestSession(p1+"\n\n"+p2+"\n\n"+p3, analyzer, Options{CacheEnabled: true})

	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	s.SetContent(p1 + "\n\n" + p2edited + "\n\n" + p3)
	active, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	calls := analyzer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, p2edited, calls[1].Content, "only the changed paragraph goes to the service")

	ids := make([]suggestion.ID, len(active))
	for i, sug := range active {
		ids[i] = sug.ID
	}
	assert.ElementsMatch(t, []suggestion.ID{"p1-s", "p3-s", "p2-new"}, ids,
		"cached unchanged-paragraph results merge with the fresh ones")
}

func TestAnalyzePartialSurvivesCacheEvictionDuringCall(t *testing.T) {
	t.Parallel()

	const (
		p1       = "The opening paragraph talks about alpha."
		p2       = "The middle paragraph talks about beta."
		p2edited = "The middle paragraph talks about betamax."
	)
	var s *Session
	calls := 0
	analyzer := &mock.Analyzer{}
	analyzer.AnalyzeFunc = func(context.Context, string, string) (*analysis.Result, error) {
		calls++
		if calls == 1 {
			return &analysis.Result{Suggestions: []suggestion.Suggestion{
				anchored("p1-s", "alpha", "Alpha", suggestion.SeverityInfo),
			}}, nil
		}
		// The unchanged paragraph's entry ages out while the request is in
		// flight. Its suggestions were captured when the partition decision
		// was made and must still be merged.
		s.cache.Clear()
		return &analysis.Result{Suggestions: []suggestion.Suggestion{
			anchored("p2-new", "betamax", "Betamax", suggestion.SeverityWarning),
		}}, nil
	}
	s = newTestSession(p1+"\n\n"+p2, analyzer, Options{CacheEnabled: true})

	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	s.SetContent(p1 + "\n\n" + p2edited)
	active, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, p2edited, analyzer.Calls()[1].Content, "second round must be partial")

	ids := make([]suggestion.ID, len(active))
	for i, sug := range active {
		ids[i] = sug.ID
	}
	assert.ElementsMatch(t, []suggestion.ID{"p1-s", "p2-new"}, ids,
		"a mid-call eviction must not drop the unchanged paragraph's suggestions")
}

func TestRejectHidesAndPersistsUntilPruned(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("x", "alpha", "Alpha", suggestion.SeverityInfo),
		anchored("y", "beta", "Beta", suggestion.SeverityInfo),
	)}
	s := newTestSession("alpha and beta", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, s.Reject("x"))
	assert.Equal(t, []suggestion.ID{"x"}, s.RejectedIDs())

	// The service regenerates the same issue: it must not be re-shown.
	active, err := s.Analyze(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, suggestion.ID("y"), active[0].ID)
	assert.Equal(t, []suggestion.ID{"x"}, s.RejectedIDs())
}

func TestRejectedIDPrunedWhenNoLongerProduced(t *testing.T) {
	t.Parallel()
	first := true
	analyzer := &mock.Analyzer{}
	analyzer.AnalyzeFunc = func(context.Context, string, string) (*analysis.Result, error) {
		if first {
			first = false
			return &analysis.Result{Suggestions: []suggestion.Suggestion{
				anchored("x", "alpha", "Alpha", suggestion.SeverityInfo),
				anchored("y", "beta", "Beta", suggestion.SeverityInfo),
			}}, nil
		}
		return &analysis.Result{Suggestions: []suggestion.Suggestion{
			anchored("y", "beta", "Beta", suggestion.SeverityInfo),
		}}, nil
	}
	s := newTestSession("alpha and beta", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, s.Reject("x"))
	require.Len(t, s.RejectedIDs(), 1)

	_, err = s.Analyze(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, s.RejectedIDs(), "a rejected id the service no longer produces is released")
}

func TestAnalyzeRateLimitedRetriesAutomatically(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	failures := 1
	analyzer := &mock.Analyzer{}
	analyzer.AnalyzeFunc = func(context.Context, string, string) (*analysis.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, &analysis.RateLimitError{
				RetryAfter: 10 * time.Millisecond,
				Err:        errors.New("rate limit reached"),
			}
		}
		return &analysis.Result{Suggestions: []suggestion.Suggestion{
			anchored("s1", "alpha", "Alpha", suggestion.SeverityInfo),
		}}, nil
	}
	s := newTestSession("alpha text", analyzer, Options{})
	defer s.Close()

	_, err := s.Analyze(context.Background(), false)
	var rateLimit *analysis.RateLimitError
	require.ErrorAs(t, err, &rateLimit)

	assert.Eventually(t, func() bool {
		return len(s.Active()) == 1
	}, 2*time.Second, 10*time.Millisecond, "scheduled retry must complete the analysis")
}

func TestAnalyzeFailureClearsSuggestions(t *testing.T) {
	t.Parallel()
	healthy := true
	analyzer := &mock.Analyzer{}
	analyzer.AnalyzeFunc = func(context.Context, string, string) (*analysis.Result, error) {
		if healthy {
			return &analysis.Result{Suggestions: []suggestion.Suggestion{
				anchored("s1", "alpha", "Alpha", suggestion.SeverityInfo),
			}}, nil
		}
		return nil, analysis.ErrAnalysisFailed
	}
	s := newTestSession("alpha text", analyzer, Options{})
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, s.Active(), 1)

	healthy = false
	_, err = s.Analyze(context.Background(), true)
	require.ErrorIs(t, err, analysis.ErrAnalysisFailed)
	assert.Empty(t, s.Active(), "stale suggestions are cleared, not left behind")
	assert.Equal(t, "alpha text", s.Content(), "the buffer itself is never touched")
}

func TestStaleness(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith()}
	s := newTestSession("first draft", analyzer, Options{})

	assert.True(t, s.Stale(), "nothing analyzed yet")
	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, s.Stale())

	s.SetContent("first draft, revised")
	assert.True(t, s.Stale())
}

func TestDebouncedAnalysisFiresOnceAfterQuietPeriod(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith()}
	s := newTestSession("", analyzer, Options{AnalyzeDelay: 40 * time.Millisecond})
	defer s.Close()

	s.SetContent("draft v1")
	time.Sleep(10 * time.Millisecond)
	s.SetContent("draft v2")
	time.Sleep(10 * time.Millisecond)
	s.SetContent("draft v3")

	assert.Eventually(t, func() bool {
		return len(analyzer.Calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	calls := analyzer.Calls()
	require.Len(t, calls, 1, "earlier edits' timers were cancelled")
	assert.Equal(t, "draft v3", calls[0].Content)
}

func TestAutoSaveCarriesLifecycleState(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var savedContent string
	var savedRejected []suggestion.ID
	var savedApplied []AppliedRecord

	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("keep", "alpha", "Alpha", suggestion.SeverityInfo),
		anchored("drop", "beta", "Beta", suggestion.SeverityInfo),
	)}
	s := newTestSession("alpha and beta", analyzer, Options{
		AutoSaveDelay: 100 * time.Millisecond,
		Save: func(_ context.Context, content string, rejected []suggestion.ID, applied []AppliedRecord) error {
			mu.Lock()
			defer mu.Unlock()
			savedContent = content
			savedRejected = rejected
			savedApplied = applied
			return nil
		},
	})
	defer s.Close()

	_, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)
	_, err = s.Accept("keep")
	require.NoError(t, err)
	require.NoError(t, s.Reject("drop"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return savedContent != ""
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Alpha and beta", savedContent)
	assert.Equal(t, []suggestion.ID{"drop"}, savedRejected)
	require.Len(t, savedApplied, 1)
	assert.Equal(t, suggestion.ID("keep"), savedApplied[0].ID)
}

func TestRestoreSurvivesReload(t *testing.T) {
	t.Parallel()
	analyzer := &mock.Analyzer{AnalyzeFunc: respondWith(
		anchored("x", "alpha", "Alpha", suggestion.SeverityInfo),
		anchored("y", "beta", "Beta", suggestion.SeverityInfo),
	)}
	s := newTestSession("alpha and beta", analyzer, Options{})
	s.Restore([]suggestion.ID{"x"}, []AppliedRecord{{ID: "y", AppliedAt: time.Now(), HistoryEntryID: "h1"}})

	active, err := s.Analyze(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, active, "restored rejections and applications are not re-shown")
}
