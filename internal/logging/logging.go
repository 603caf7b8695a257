package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/revisely/revisely/internal/db"
	"github.com/revisely/revisely/internal/pubsub"
)

type Log struct {
	ID         string
	SessionID  string
	Timestamp  time.Time
	Level      string
	Message    string
	Attributes map[string]string
	CreatedAt  time.Time
}

const (
	EventLogCreated pubsub.EventType = "log_created"
)

type Service interface {
	pubsub.Subscriber[Log]

	Create(ctx context.Context, timestamp time.Time, level, message string, attributes map[string]string, sessionID string) error
	ListBySession(ctx context.Context, sessionID string) ([]Log, error)
	ListAll(ctx context.Context, limit int) ([]Log, error)
}

type service struct {
	db     *db.Queries
	broker *pubsub.Broker[Log]
}

var globalLoggingService *service

func InitService(dbConn *sql.DB) error {
	if globalLoggingService != nil {
		return fmt.Errorf("logging service already initialized")
	}
	globalLoggingService = &service{
		db:     db.New(dbConn),
		broker: pubsub.NewBroker[Log](),
	}
	return nil
}

func GetService() Service {
	if globalLoggingService == nil {
		panic("logging service not initialized. Call logging.InitService() first.")
	}
	return globalLoggingService
}

func (s *service) Create(ctx context.Context, timestamp time.Time, level, message string, attributes map[string]string, sessionID string) error {
	if level == "" {
		level = "info"
	}

	var attributesJSON sql.NullString
	if len(attributes) > 0 {
		attributesBytes, err := json.Marshal(attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal log attributes: %w", err)
		}
		attributesJSON = sql.NullString{String: string(attributesBytes), Valid: true}
	}

	dbLog, err := s.db.CreateLog(ctx, db.CreateLogParams{
		ID:         uuid.New().String(),
		SessionID:  sql.NullString{String: sessionID, Valid: sessionID != ""},
		Timestamp:  timestamp.UTC().Format(time.RFC3339Nano),
		Level:      level,
		Message:    message,
		Attributes: attributesJSON,
	})
	if err != nil {
		return fmt.Errorf("db.CreateLog: %w", err)
	}

	log := s.fromDBItem(dbLog)
	s.broker.Publish(EventLogCreated, log)
	return nil
}

func (s *service) ListBySession(ctx context.Context, sessionID string) ([]Log, error) {
	dbLogs, err := s.db.ListLogsBySession(ctx, sql.NullString{String: sessionID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("db.ListLogsBySession: %w", err)
	}

	logs := make([]Log, len(dbLogs))
	for i, dbLog := range dbLogs {
		logs[i] = s.fromDBItem(dbLog)
	}
	return logs, nil
}

func (s *service) ListAll(ctx context.Context, limit int) ([]Log, error) {
	dbLogs, err := s.db.ListAllLogs(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("db.ListAllLogs: %w", err)
	}
	logs := make([]Log, len(dbLogs))
	for i, dbLog := range dbLogs {
		logs[i] = s.fromDBItem(dbLog)
	}
	return logs, nil
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return s.broker.Subscribe(ctx)
}

func (s *service) fromDBItem(item db.Log) Log {
	log := Log{
		ID:        item.ID,
		SessionID: item.SessionID.String,
		Level:     item.Level,
		Message:   item.Message,
	}

	timestamp, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err == nil {
		log.Timestamp = timestamp
	} else {
		log.Timestamp = time.Now()
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err == nil {
		log.CreatedAt = createdAt
	} else {
		log.CreatedAt = time.Now()
	}

	if item.Attributes.Valid && item.Attributes.String != "" {
		if err := json.Unmarshal([]byte(item.Attributes.String), &log.Attributes); err != nil {
			slog.Error("Failed to unmarshal log attributes", "log_id", item.ID, "error", err)
			log.Attributes = make(map[string]string)
		}
	} else {
		log.Attributes = make(map[string]string)
	}

	return log
}

func Create(ctx context.Context, timestamp time.Time, level, message string, attributes map[string]string, sessionID string) error {
	return GetService().Create(ctx, timestamp, level, message, attributes, sessionID)
}

func ListBySession(ctx context.Context, sessionID string) ([]Log, error) {
	return GetService().ListBySession(ctx, sessionID)
}

func ListAll(ctx context.Context, limit int) ([]Log, error) {
	return GetService().ListAll(ctx, limit)
}

func Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return GetService().Subscribe(ctx)
}
