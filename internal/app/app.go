// Package app assembles the services behind a running revisely instance.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/revisely/revisely/internal/analysis"
	"github.com/revisely/revisely/internal/config"
	"github.com/revisely/revisely/internal/document"
	"github.com/revisely/revisely/internal/editor"
	"github.com/revisely/revisely/internal/logging"
	"github.com/revisely/revisely/internal/status"
	"github.com/revisely/revisely/internal/suggestion"
)

type App struct {
	Logs      logging.Service
	Status    status.Service
	Documents document.Service

	Analysis *analysis.Client
}

func New(ctx context.Context, conn *sql.DB) (*App, error) {
	err := logging.InitService(conn)
	if err != nil {
		slog.Error("Failed to initialize logging service", "error", err)
		return nil, err
	}
	err = status.InitService()
	if err != nil {
		slog.Error("Failed to initialize status service", "error", err)
		return nil, err
	}
	err = document.InitService(conn)
	if err != nil {
		slog.Error("Failed to initialize document service", "error", err)
		return nil, err
	}

	cfg := config.Get()
	analyzer := analysis.NewOpenAIAnalyzer(cfg.Analysis)

	return &App{
		Logs:      logging.GetService(),
		Status:    status.GetService(),
		Documents: document.GetService(),
		Analysis:  analysis.NewClient(analyzer),
	}, nil
}

// OpenSession loads a document, restores its persisted suggestion lifecycle,
// and returns an editing session whose auto-save writes back through the
// document service.
func (app *App) OpenSession(ctx context.Context, documentID string) (*editor.Session, document.Document, error) {
	doc, err := app.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, document.Document{}, err
	}

	lifecycle, err := app.Documents.LoadLifecycle(ctx, doc.ID)
	if err != nil {
		return nil, document.Document{}, err
	}

	cfg := config.Get()
	programContext := doc.ProgramContext
	if programContext == "" {
		programContext = cfg.Analysis.ProgramContext
	}

	session := editor.NewSession(app.Analysis, doc.Content, editor.Options{
		ProgramContext: programContext,
		AnalyzeDelay:   cfg.AnalyzeDelay(),
		AutoSaveDelay:  cfg.AutoSaveDelay(),
		CacheEnabled:   cfg.Editor.ParagraphCache,
		CacheTTL:       cfg.ParagraphCacheTTL(),
		CacheCapacity:  cfg.Editor.ParagraphCacheSize,
		Save:           app.saveFunc(doc),
	})
	session.Restore(lifecycle.RejectedIDs, toAppliedRecords(lifecycle.Applied))
	return session, doc, nil
}

// NewSession creates a fresh document from raw content and opens a session
// on it.
func (app *App) NewSession(ctx context.Context, title, content, programContext string) (*editor.Session, document.Document, error) {
	doc, err := app.Documents.Create(ctx, title, content, programContext)
	if err != nil {
		return nil, document.Document{}, err
	}
	return app.OpenSession(ctx, doc.ID)
}

func (app *App) saveFunc(doc document.Document) editor.SaveFunc {
	return func(ctx context.Context, content string, rejected []suggestion.ID, applied []editor.AppliedRecord) error {
		doc.Content = content
		_, err := app.Documents.Save(ctx, doc, document.LifecycleSnapshot{
			RejectedIDs: rejected,
			Applied:     toAppliedSuggestions(applied),
		})
		return err
	}
}

// PersistSession writes the session's buffer and lifecycle state for a
// document, recording the analyzed snapshot for staleness display on the
// next open.
func (app *App) PersistSession(ctx context.Context, doc document.Document, session *editor.Session) error {
	doc.Content = session.Content()
	doc.AnalyzedContent = session.AnalyzedContent()
	_, err := app.Documents.Save(ctx, doc, document.LifecycleSnapshot{
		RejectedIDs: session.RejectedIDs(),
		Applied:     toAppliedSuggestions(session.Applied()),
	})
	return err
}

func toAppliedRecords(in []document.AppliedSuggestion) []editor.AppliedRecord {
	out := make([]editor.AppliedRecord, len(in))
	for i, a := range in {
		out[i] = editor.AppliedRecord{
			ID:             a.ID,
			AppliedAt:      a.AppliedAt,
			HistoryEntryID: a.HistoryEntryID,
		}
	}
	return out
}

func toAppliedSuggestions(in []editor.AppliedRecord) []document.AppliedSuggestion {
	out := make([]document.AppliedSuggestion, len(in))
	for i, r := range in {
		out[i] = document.AppliedSuggestion{
			ID:             r.ID,
			AppliedAt:      r.AppliedAt,
			HistoryEntryID: r.HistoryEntryID,
		}
	}
	return out
}
