package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/revisely/revisely/internal/suggestion"
)

// OutputFormat represents the format for non-interactive mode output
type OutputFormat string

const (
	// TextFormat is plain text output (default)
	TextFormat OutputFormat = "text"

	// JSONFormat is output wrapped in a JSON object
	JSONFormat OutputFormat = "json"
)

// IsValid checks if the output format is valid
func (f OutputFormat) IsValid() bool {
	return f == TextFormat || f == JSONFormat
}

// String returns the string representation of the output format
func (f OutputFormat) String() string {
	return string(f)
}

// Report is the analyze command's result: the suggestions produced for a
// document, plus what happened when they were applied.
type Report struct {
	DocumentID      string `json:"documentId,omitempty"`
	OverallFeedback string `json:"overallFeedback,omitempty"`
	// EditsSinceAnalysis is the rendered diff between the content last
	// analyzed and the content as re-opened, for drafts edited in between.
	EditsSinceAnalysis string                  `json:"editsSinceAnalysis,omitempty"`
	Suggestions        []suggestion.Suggestion `json:"suggestions"`
	AppliedIDs         []suggestion.ID         `json:"appliedIds,omitempty"`
	SkippedIDs         []suggestion.ID         `json:"skippedIds,omitempty"`
	Content            string                  `json:"content,omitempty"`
}

// FormatReport renders a report according to the specified format.
func FormatReport(report Report, format OutputFormat) (string, error) {
	switch format {
	case TextFormat:
		return formatText(report), nil
	case JSONFormat:
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonBytes), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatText(report Report) string {
	var sb strings.Builder
	if report.OverallFeedback != "" {
		sb.WriteString(report.OverallFeedback)
		sb.WriteString("\n\n")
	}
	if report.EditsSinceAnalysis != "" {
		sb.WriteString("Edits since last analysis:\n")
		sb.WriteString(report.EditsSinceAnalysis)
		if !strings.HasSuffix(report.EditsSinceAnalysis, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(report.Suggestions) == 0 {
		sb.WriteString("No suggestions.\n")
	}
	for i, s := range report.Suggestions {
		fmt.Fprintf(&sb, "%d. [%s/%s] %s\n", i+1, s.Severity, s.Category, s.Title)
		if s.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", s.Description)
		}
		if s.OriginalText != "" && s.Replacement != "" {
			fmt.Fprintf(&sb, "   - %s\n   + %s\n", s.OriginalText, s.Replacement)
		}
	}
	if len(report.AppliedIDs) > 0 || len(report.SkippedIDs) > 0 {
		fmt.Fprintf(&sb, "\nApplied %d suggestion(s), skipped %d.\n",
			len(report.AppliedIDs), len(report.SkippedIDs))
	}
	if report.Content != "" {
		sb.WriteString("\n--- Revised content ---\n")
		sb.WriteString(report.Content)
		if !strings.HasSuffix(report.Content, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
