package db

import (
	"context"
	"database/sql"
)

const createLog = `
INSERT INTO logs (id, session_id, timestamp, level, message, attributes)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, session_id, timestamp, level, message, attributes, created_at
`

type CreateLogParams struct {
	ID         string
	SessionID  sql.NullString
	Timestamp  string
	Level      string
	Message    string
	Attributes sql.NullString
}

func (q *Queries) CreateLog(ctx context.Context, arg CreateLogParams) (Log, error) {
	row := q.db.QueryRowContext(ctx, createLog,
		arg.ID,
		arg.SessionID,
		arg.Timestamp,
		arg.Level,
		arg.Message,
		arg.Attributes,
	)
	var i Log
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.Timestamp,
		&i.Level,
		&i.Message,
		&i.Attributes,
		&i.CreatedAt,
	)
	return i, err
}

const listLogsBySession = `
SELECT id, session_id, timestamp, level, message, attributes, created_at
FROM logs
WHERE session_id = ?
ORDER BY timestamp ASC
`

func (q *Queries) ListLogsBySession(ctx context.Context, sessionID sql.NullString) ([]Log, error) {
	rows, err := q.db.QueryContext(ctx, listLogsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Log
	for rows.Next() {
		var i Log
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.Timestamp,
			&i.Level,
			&i.Message,
			&i.Attributes,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAllLogs = `
SELECT id, session_id, timestamp, level, message, attributes, created_at
FROM logs
ORDER BY timestamp DESC
LIMIT ?
`

func (q *Queries) ListAllLogs(ctx context.Context, limit int64) ([]Log, error) {
	rows, err := q.db.QueryContext(ctx, listAllLogs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Log
	for rows.Next() {
		var i Log
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.Timestamp,
			&i.Level,
			&i.Message,
			&i.Attributes,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
