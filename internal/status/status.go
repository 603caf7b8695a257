package status

import (
	"context"
	"fmt"
	"time"

	"github.com/revisely/revisely/internal/pubsub"
)

// Level represents the severity level of a status message
type Level string

const (
	// LevelInfo represents an informational status message
	LevelInfo Level = "info"
	// LevelWarn represents a warning status message
	LevelWarn Level = "warn"
	// LevelError represents an error status message
	LevelError Level = "error"
	// LevelDebug represents a debug status message
	LevelDebug Level = "debug"
)

const (
	EventStatusPublished pubsub.EventType = "status_published"
)

// StatusMessage represents a status update to be displayed in the UI
type StatusMessage struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Service defines the interface for the status service
type Service interface {
	pubsub.Subscriber[StatusMessage]
	Info(message string)
	Warn(message string)
	Error(message string)
	Debug(message string)
}

type service struct {
	broker *pubsub.Broker[StatusMessage]
}

var globalStatusService *service

func InitService() error {
	if globalStatusService != nil {
		return fmt.Errorf("status service already initialized")
	}
	globalStatusService = &service{
		broker: pubsub.NewBroker[StatusMessage](),
	}
	return nil
}

func GetService() Service {
	if globalStatusService == nil {
		// Status is best-effort; fall back to a fresh service instead of
		// panicking inside error paths that report through it.
		_ = InitService()
	}
	return globalStatusService
}

func (s *service) Info(message string)  { s.publish(LevelInfo, message) }
func (s *service) Warn(message string)  { s.publish(LevelWarn, message) }
func (s *service) Error(message string) { s.publish(LevelError, message) }
func (s *service) Debug(message string) { s.publish(LevelDebug, message) }

func (s *service) publish(level Level, message string) {
	s.broker.Publish(EventStatusPublished, StatusMessage{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[StatusMessage] {
	return s.broker.Subscribe(ctx)
}

// Info publishes an info level status message using the global service
func Info(message string) { GetService().Info(message) }

// Warn publishes a warning level status message using the global service
func Warn(message string) { GetService().Warn(message) }

// Error publishes an error level status message using the global service
func Error(message string) { GetService().Error(message) }

// Debug publishes a debug level status message using the global service
func Debug(message string) { GetService().Debug(message) }

// Subscribe subscribes to status messages from the global service
func Subscribe(ctx context.Context) <-chan pubsub.Event[StatusMessage] {
	return GetService().Subscribe(ctx)
}
