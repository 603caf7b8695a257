package db

import (
	"context"
	"database/sql"
)

const upsertSuggestionState = `
INSERT INTO suggestion_states (suggestion_id, document_id, state, applied_at, history_entry_id)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (suggestion_id, document_id) DO UPDATE
SET state = excluded.state,
    applied_at = excluded.applied_at,
    history_entry_id = excluded.history_entry_id
`

type UpsertSuggestionStateParams struct {
	SuggestionID   string
	DocumentID     string
	State          string
	AppliedAt      sql.NullInt64
	HistoryEntryID sql.NullString
}

func (q *Queries) UpsertSuggestionState(ctx context.Context, arg UpsertSuggestionStateParams) error {
	_, err := q.db.ExecContext(ctx, upsertSuggestionState,
		arg.SuggestionID,
		arg.DocumentID,
		arg.State,
		arg.AppliedAt,
		arg.HistoryEntryID,
	)
	return err
}

const listSuggestionStatesByDocument = `
SELECT suggestion_id, document_id, state, applied_at, history_entry_id
FROM suggestion_states
WHERE document_id = ?
`

func (q *Queries) ListSuggestionStatesByDocument(ctx context.Context, documentID string) ([]SuggestionState, error) {
	rows, err := q.db.QueryContext(ctx, listSuggestionStatesByDocument, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SuggestionState
	for rows.Next() {
		var i SuggestionState
		if err := rows.Scan(
			&i.SuggestionID,
			&i.DocumentID,
			&i.State,
			&i.AppliedAt,
			&i.HistoryEntryID,
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

const deleteSuggestionState = `
DELETE FROM suggestion_states
WHERE suggestion_id = ? AND document_id = ?
`

func (q *Queries) DeleteSuggestionState(ctx context.Context, suggestionID, documentID string) error {
	_, err := q.db.ExecContext(ctx, deleteSuggestionState, suggestionID, documentID)
	return err
}
