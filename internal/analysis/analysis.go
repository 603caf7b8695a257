// Package analysis defines the contract with the external suggestion
// service and the client plumbing around it: retries, rate-limit handling,
// and in-flight request deduplication.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revisely/revisely/internal/suggestion"
)

// Result is what one analysis round trip produces.
type Result struct {
	Suggestions     []suggestion.Suggestion
	OverallFeedback string
}

// Analyzer is the abstract analysis call. Implementations must be safe for
// concurrent use; the session layer serializes triggers per document but
// multiple sessions may share one analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, content, programContext string) (*Result, error)
}

// ErrAnalysisFailed wraps terminal (non-rate-limit) analysis errors.
var ErrAnalysisFailed = errors.New("analysis failed")

// DefaultRetryAfter is used when a rate-limit error carries no usable hint.
const DefaultRetryAfter = 5 * time.Second

// RateLimitError signals that the service throttled the request. RetryAfter
// is the suggested wait before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("analysis rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

var retryAfterRe = regexp.MustCompile(`(?i)(?:retry|try again|wait)[^0-9]*(\d+(?:\.\d+)?)\s*(ms|milliseconds?|s|sec|seconds?|m|min|minutes?)?`)

// ParseRetryAfter extracts a wait hint from a rate-limit error message,
// e.g. "Please try again in 20s". ok is false when no hint is present.
func ParseRetryAfter(message string) (wait time.Duration, ok bool) {
	m := retryAfterRe.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	unit := time.Second
	switch {
	case strings.HasPrefix(strings.ToLower(m[2]), "ms"), strings.HasPrefix(strings.ToLower(m[2]), "milli"):
		unit = time.Millisecond
	case strings.HasPrefix(strings.ToLower(m[2]), "m"):
		unit = time.Minute
	}
	return time.Duration(value * float64(unit)), true
}

// rawSuggestion is the wire shape the analysis service returns. Ingestion
// normalizes it into the typed model exactly once.
type rawSuggestion struct {
	ID             string            `json:"id"`
	Category       string            `json:"category"`
	Type           string            `json:"type"`
	Severity       string            `json:"severity"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	OriginalText   string            `json:"originalText"`
	ContextBefore  string            `json:"contextBefore"`
	ContextAfter   string            `json:"contextAfter"`
	Replacement    string            `json:"replacement"`
	HighlightRange *suggestion.Range `json:"highlightRange"`
	Confidence     float64           `json:"confidence"`
}

type rawResponse struct {
	Suggestions     []rawSuggestion `json:"suggestions"`
	OverallFeedback string          `json:"overallFeedback"`
}

func ingest(raw rawResponse) *Result {
	result := &Result{OverallFeedback: raw.OverallFeedback}
	for _, r := range raw.Suggestions {
		category := r.Category
		if category == "" {
			category = r.Type
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		result.Suggestions = append(result.Suggestions, suggestion.Suggestion{
			ID:             suggestion.ID(id),
			Category:       category,
			Kind:           suggestion.KindForCategory(category),
			Severity:       normalizeSeverity(r.Severity),
			Title:          r.Title,
			Description:    r.Description,
			OriginalText:   r.OriginalText,
			ContextBefore:  r.ContextBefore,
			ContextAfter:   r.ContextAfter,
			Replacement:    r.Replacement,
			HighlightRange: r.HighlightRange,
			Confidence:     r.Confidence,
		})
	}
	return result
}

func normalizeSeverity(s string) suggestion.Severity {
	switch strings.ToLower(s) {
	case "critical":
		return suggestion.SeverityCritical
	case "warning":
		return suggestion.SeverityWarning
	case "success":
		return suggestion.SeveritySuccess
	default:
		return suggestion.SeverityInfo
	}
}
