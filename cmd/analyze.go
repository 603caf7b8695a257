package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/revisely/revisely/internal/analysis"
	"github.com/revisely/revisely/internal/app"
	"github.com/revisely/revisely/internal/document"
	"github.com/revisely/revisely/internal/editor"
	"github.com/revisely/revisely/internal/format"
	"github.com/revisely/revisely/internal/status"
	"github.com/revisely/revisely/internal/suggestion"
)

type analyzeParams struct {
	docFile        string
	docID          string
	title          string
	programContext string
	apply          bool
	quiet          bool
	outputFormat   format.OutputFormat
}

// analyzeAndReport is the non-interactive flow: open or create a document,
// run one analysis (waiting out rate limits), optionally apply the safe
// batch, persist, and print the report.
func analyzeAndReport(ctx context.Context, application *app.App, p analyzeParams) error {
	if !p.quiet {
		go printStatus(ctx, application.Status)
	}

	session, doc, err := openSession(ctx, application, p)
	if err != nil {
		return err
	}
	defer session.Close()

	active, err := analyzeWithRateLimitWait(ctx, session, p.quiet)
	if err != nil {
		return err
	}

	report := format.Report{
		DocumentID:      doc.ID,
		OverallFeedback: session.Feedback(),
		Suggestions:     active,
	}
	// A re-opened draft edited since its last analysis gets a diff of those
	// edits alongside the fresh suggestions.
	if doc.AnalyzedContent != "" && document.HasChanges(doc.AnalyzedContent, doc.Content) {
		report.EditsSinceAnalysis = document.ChangesSince(doc.AnalyzedContent, doc.Content)
	}

	if p.apply {
		result, err := session.AcceptAll()
		if err != nil {
			return err
		}
		report.AppliedIDs = result.Applied
		report.SkippedIDs = result.Skipped
		report.Content = session.Content()
	}

	if err := application.PersistSession(ctx, doc, session); err != nil {
		// The report is still worth printing; the draft just was not saved.
		slog.Error("Failed to persist session", "error", err)
		fmt.Fprintf(os.Stderr, "Warning: draft could not be saved: %v\n", err)
	}

	out, err := format.FormatReport(report, p.outputFormat)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func openSession(ctx context.Context, application *app.App, p analyzeParams) (*editor.Session, document.Document, error) {
	if p.docID != "" {
		return application.OpenSession(ctx, p.docID)
	}

	content, err := readDocFile(p.docFile)
	if err != nil {
		return nil, document.Document{}, err
	}
	title := p.title
	if title == "" && p.docFile != "-" {
		title = filepath.Base(p.docFile)
	}
	return application.NewSession(ctx, title, content, p.programContext)
}

func readDocFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read draft: %w", err)
	}
	return string(data), nil
}

// analyzeWithRateLimitWait blocks through rate-limit windows instead of
// surfacing them: the user asked for a report, so "analyzing" is the honest
// state until the service lets the request through.
func analyzeWithRateLimitWait(ctx context.Context, session *editor.Session, quiet bool) ([]suggestion.Suggestion, error) {
	for {
		active, err := session.Analyze(ctx, false)
		var rateLimit *analysis.RateLimitError
		if errors.As(err, &rateLimit) {
			if !quiet {
				fmt.Fprintf(os.Stderr, "Rate limited; retrying in %s...\n", rateLimit.RetryAfter)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rateLimit.RetryAfter):
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return active, nil
	}
}

func printStatus(ctx context.Context, svc status.Service) {
	for event := range svc.Subscribe(ctx) {
		msg := event.Payload
		if msg.Level == status.LevelDebug {
			continue
		}
		fmt.Fprintf(os.Stderr, "%s\n", msg.Message)
	}
}
