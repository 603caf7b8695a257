// Package document persists editor documents and their suggestion lifecycle
// state, so rejected and applied suggestions survive reloads.
package document

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/revisely/revisely/internal/db"
	"github.com/revisely/revisely/internal/pubsub"
	"github.com/revisely/revisely/internal/suggestion"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Document is an editable draft plus the content snapshot of its last
// successful analysis.
type Document struct {
	ID              string
	Title           string
	Content         string
	AnalyzedContent string
	ProgramContext  string
	CreatedAt       int64
	UpdatedAt       int64
}

// AppliedSuggestion is the lifecycle metadata recorded when a suggestion is
// applied.
type AppliedSuggestion struct {
	ID             suggestion.ID
	AppliedAt      time.Time
	HistoryEntryID string
}

// LifecycleSnapshot is the persisted portion of the suggestion lifecycle.
type LifecycleSnapshot struct {
	RejectedIDs []suggestion.ID
	Applied     []AppliedSuggestion
}

const (
	EventDocumentCreated pubsub.EventType = "document_created"
	EventDocumentSaved   pubsub.EventType = "document_saved"
	EventDocumentDeleted pubsub.EventType = "document_deleted"
)

type Service interface {
	pubsub.Subscriber[Document]

	Create(ctx context.Context, title, content, programContext string) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Save(ctx context.Context, doc Document, lifecycle LifecycleSnapshot) (Document, error)
	Delete(ctx context.Context, id string) error
	LoadLifecycle(ctx context.Context, documentID string) (LifecycleSnapshot, error)
}

type service struct {
	db     *db.Queries
	sqlDB  *sql.DB
	broker *pubsub.Broker[Document]
	mu     sync.RWMutex
}

var globalDocumentService *service

func InitService(sqlDatabase *sql.DB) error {
	if globalDocumentService != nil {
		return fmt.Errorf("document service already initialized")
	}
	globalDocumentService = &service{
		db:     db.New(sqlDatabase),
		sqlDB:  sqlDatabase,
		broker: pubsub.NewBroker[Document](),
	}
	return nil
}

func GetService() Service {
	if globalDocumentService == nil {
		panic("document service not initialized. Call document.InitService() first.")
	}
	return globalDocumentService
}

func (s *service) Create(ctx context.Context, title, content, programContext string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = "Untitled draft - " + time.Now().Format("2006-01-02 15:04:05")
	}
	dbDoc, err := s.db.CreateDocument(ctx, db.CreateDocumentParams{
		ID:             uuid.New().String(),
		Title:          title,
		Content:        content,
		ProgramContext: sql.NullString{String: programContext, Valid: programContext != ""},
	})
	if err != nil {
		return Document{}, fmt.Errorf("db.CreateDocument: %w", err)
	}
	doc := s.fromDBItem(dbDoc)
	s.broker.Publish(EventDocumentCreated, doc)
	return doc, nil
}

func (s *service) Get(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dbDoc, err := s.db.GetDocument(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Document{}, fmt.Errorf("document ID '%s' not found", id)
		}
		return Document{}, fmt.Errorf("db.GetDocument: %w", err)
	}
	return s.fromDBItem(dbDoc), nil
}

func (s *service) List(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dbDocs, err := s.db.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("db.ListDocuments: %w", err)
	}
	docs := make([]Document, len(dbDocs))
	for i, dbDoc := range dbDocs {
		docs[i] = s.fromDBItem(dbDoc)
	}
	return docs, nil
}

// Save persists the document content together with its lifecycle snapshot
// in one transaction, so a reload never sees content from one save and
// suggestion state from another.
func (s *service) Save(ctx context.Context, doc Document, lifecycle LifecycleSnapshot) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		return Document{}, fmt.Errorf("cannot save document with empty ID")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	qtx := s.db.WithTx(tx)

	dbDoc, err := qtx.UpdateDocument(ctx, db.UpdateDocumentParams{
		ID:              doc.ID,
		Title:           doc.Title,
		Content:         doc.Content,
		AnalyzedContent: sql.NullString{String: doc.AnalyzedContent, Valid: doc.AnalyzedContent != ""},
		ProgramContext:  sql.NullString{String: doc.ProgramContext, Valid: doc.ProgramContext != ""},
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return Document{}, fmt.Errorf("db.UpdateDocument: %w (rollback: %v)", err, rbErr)
		}
		return Document{}, fmt.Errorf("db.UpdateDocument: %w", err)
	}

	for _, id := range lifecycle.RejectedIDs {
		if err := qtx.UpsertSuggestionState(ctx, db.UpsertSuggestionStateParams{
			SuggestionID: string(id),
			DocumentID:   doc.ID,
			State:        "rejected",
		}); err != nil {
			tx.Rollback()
			return Document{}, fmt.Errorf("db.UpsertSuggestionState: %w", err)
		}
	}
	for _, applied := range lifecycle.Applied {
		if err := qtx.UpsertSuggestionState(ctx, db.UpsertSuggestionStateParams{
			SuggestionID:   string(applied.ID),
			DocumentID:     doc.ID,
			State:          "applied",
			AppliedAt:      sql.NullInt64{Int64: applied.AppliedAt.UnixMilli(), Valid: !applied.AppliedAt.IsZero()},
			HistoryEntryID: sql.NullString{String: applied.HistoryEntryID, Valid: applied.HistoryEntryID != ""},
		}); err != nil {
			tx.Rollback()
			return Document{}, fmt.Errorf("db.UpsertSuggestionState: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	saved := s.fromDBItem(dbDoc)
	s.broker.Publish(EventDocumentSaved, saved)
	return saved, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbDoc, err := s.db.GetDocument(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("document ID '%s' not found for deletion", id)
		}
		return fmt.Errorf("db.GetDocument before delete: %w", err)
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("db.DeleteDocument: %w", err)
	}
	s.broker.Publish(EventDocumentDeleted, s.fromDBItem(dbDoc))
	return nil
}

// LoadLifecycle restores the persisted suggestion lifecycle for a document.
func (s *service) LoadLifecycle(ctx context.Context, documentID string) (LifecycleSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states, err := s.db.ListSuggestionStatesByDocument(ctx, documentID)
	if err != nil {
		return LifecycleSnapshot{}, fmt.Errorf("db.ListSuggestionStatesByDocument: %w", err)
	}

	var snapshot LifecycleSnapshot
	for _, state := range states {
		switch state.State {
		case "rejected":
			snapshot.RejectedIDs = append(snapshot.RejectedIDs, suggestion.ID(state.SuggestionID))
		case "applied":
			applied := AppliedSuggestion{
				ID:             suggestion.ID(state.SuggestionID),
				HistoryEntryID: state.HistoryEntryID.String,
			}
			if state.AppliedAt.Valid {
				applied.AppliedAt = time.UnixMilli(state.AppliedAt.Int64)
			}
			snapshot.Applied = append(snapshot.Applied, applied)
		}
	}
	return snapshot, nil
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[Document] {
	return s.broker.Subscribe(ctx)
}

func (s *service) fromDBItem(item db.Document) Document {
	return Document{
		ID:              item.ID,
		Title:           item.Title,
		Content:         item.Content,
		AnalyzedContent: item.AnalyzedContent.String,
		ProgramContext:  item.ProgramContext.String,
		CreatedAt:       item.CreatedAt * 1000,
		UpdatedAt:       item.UpdatedAt * 1000,
	}
}

// ChangesSince renders a compact diff between the last analyzed snapshot
// and the live content, for the staleness affordance shown next to the
// re-analyze action.
func ChangesSince(analyzedContent, liveContent string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(analyzedContent, liveContent, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// HasChanges reports whether live content drifted from the analyzed
// snapshot.
func HasChanges(analyzedContent, liveContent string) bool {
	return analyzedContent != liveContent
}

func Create(ctx context.Context, title, content, programContext string) (Document, error) {
	return GetService().Create(ctx, title, content, programContext)
}

func Get(ctx context.Context, id string) (Document, error) {
	return GetService().Get(ctx, id)
}

func List(ctx context.Context) ([]Document, error) {
	return GetService().List(ctx)
}

func Save(ctx context.Context, doc Document, lifecycle LifecycleSnapshot) (Document, error) {
	return GetService().Save(ctx, doc, lifecycle)
}

func Delete(ctx context.Context, id string) error {
	return GetService().Delete(ctx, id)
}

func LoadLifecycle(ctx context.Context, documentID string) (LifecycleSnapshot, error) {
	return GetService().LoadLifecycle(ctx, documentID)
}

func Subscribe(ctx context.Context) <-chan pubsub.Event[Document] {
	return GetService().Subscribe(ctx)
}
