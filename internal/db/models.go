package db

import "database/sql"

type Document struct {
	ID              string
	Title           string
	Content         string
	AnalyzedContent sql.NullString
	ProgramContext  sql.NullString
	CreatedAt       int64
	UpdatedAt       int64
}

type SuggestionState struct {
	SuggestionID   string
	DocumentID     string
	State          string
	AppliedAt      sql.NullInt64
	HistoryEntryID sql.NullString
}

type Log struct {
	ID         string
	SessionID  sql.NullString
	Timestamp  string
	Level      string
	Message    string
	Attributes sql.NullString
	CreatedAt  string
}
