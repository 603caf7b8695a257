// Package suggestion defines the AI edit-suggestion model and the pure
// logic that decides which suggestions are safe and mutually compatible.
package suggestion

import "strings"

// ID identifies a suggestion across analyses and persistence.
type ID string

// Severity is the priority class assigned by the analysis service.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	// SeveritySuccess marks purely informational praise; never auto-applied.
	SeveritySuccess Severity = "success"
)

// Rank orders severities for batch priority. Higher applies first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Kind buckets suggestions into the two product-level groups. It is decided
// once at ingestion from the raw category string, not re-derived per render.
type Kind string

const (
	// KindObjective covers mechanical issues: grammar, spelling, punctuation.
	KindObjective Kind = "objective"
	// KindStrategic covers content-level advice: tone, structure, specificity.
	KindStrategic Kind = "strategic"
)

// KindForCategory maps a raw category tag to its Kind bucket.
func KindForCategory(category string) Kind {
	switch strings.ToLower(category) {
	case "grammar", "spelling", "punctuation", "mechanics", "clarity":
		return KindObjective
	default:
		return KindStrategic
	}
}

// Range is a half-open [Start, End) byte interval into the document at the
// time the suggestion was produced. After any edit it is a hint only; the
// anchor locator re-establishes the true position.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports half-open interval overlap; touching boundaries do not
// count.
func (r Range) Overlaps(other Range) bool {
	return r.End > other.Start && r.Start < other.End
}

// Valid reports whether the range is well-formed for a document of the given
// length.
func (r Range) Valid(docLen int) bool {
	return r.Start >= 0 && r.End <= docLen && r.Start < r.End
}

// Suggestion is one proposed edit produced by the analysis service. It is
// immutable once ingested; lifecycle state lives in the editor session.
type Suggestion struct {
	ID            ID       `json:"id"`
	Category      string   `json:"category"`
	Kind          Kind     `json:"kind"`
	Severity      Severity `json:"severity"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	OriginalText  string   `json:"originalText,omitempty"`
	ContextBefore string   `json:"contextBefore,omitempty"`
	ContextAfter  string   `json:"contextAfter,omitempty"`
	Replacement   string   `json:"replacement,omitempty"`
	// HighlightRange is nil when the service could not pin the issue to a
	// span; such suggestions are display-only.
	HighlightRange *Range  `json:"highlightRange,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// Actionable reports whether the suggestion is eligible for automatic
// application: it must carry a range, a non-blank replacement, and a
// severity that is not purely informational.
func (s Suggestion) Actionable() bool {
	if s.HighlightRange == nil {
		return false
	}
	if strings.TrimSpace(s.Replacement) == "" {
		return false
	}
	return s.Severity.Rank() > 0
}
