package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/go-logfmt/logfmt"
)

// slogWriter decodes slog's logfmt output and persists each record through
// the logging service, so everything logged via slog ends up queryable in
// the database alongside the documents it concerns.
type slogWriter struct{}

func (sw *slogWriter) Write(p []byte) (n int, err error) {
	d := logfmt.NewDecoder(bytes.NewReader(p))
	for d.ScanRecord() {
		var timestamp time.Time
		var level string
		var message string
		var sessionID string
		attributes := make(map[string]string)
		hasTimestamp := false

		for d.ScanKeyval() {
			key := string(d.Key())
			value := string(d.Value())

			switch key {
			case "time":
				parsedTime, timeErr := time.Parse(time.RFC3339Nano, value)
				if timeErr != nil {
					parsedTime, timeErr = time.Parse(time.RFC3339, value)
					if timeErr != nil {
						slog.Error("Failed to parse time in slog writer", "value", value, "error", timeErr)
						timestamp = time.Now().UTC()
						hasTimestamp = true
						continue
					}
				}
				timestamp = parsedTime
				hasTimestamp = true
			case "level":
				level = strings.ToLower(value)
			case "msg", "message":
				message = value
			case "session_id":
				sessionID = value
			default:
				attributes[key] = value
			}
		}
		if d.Err() != nil {
			return len(p), fmt.Errorf("logfmt.ScanRecord: %w", d.Err())
		}

		if !hasTimestamp {
			timestamp = time.Now()
		}

		// Persist off the caller's goroutine so logging never blocks editing.
		go func(timestamp time.Time, level, message string, attributes map[string]string, sessionID string) {
			if globalLoggingService == nil {
				return
			}
			if err := Create(context.Background(), timestamp, level, message, attributes, sessionID); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR [logging.slogWriter]: failed to persist log: %v\n", err)
			}
		}(timestamp, level, message, attributes, sessionID)
	}
	if d.Err() != nil {
		return len(p), fmt.Errorf("logfmt.ScanRecord final: %w", d.Err())
	}
	return len(p), nil
}

func NewSlogWriter() io.Writer {
	return &slogWriter{}
}
