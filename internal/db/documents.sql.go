package db

import (
	"context"
	"database/sql"
)

const createDocument = `
INSERT INTO documents (id, title, content, analyzed_content, program_context, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, strftime('%s', 'now'), strftime('%s', 'now'))
RETURNING id, title, content, analyzed_content, program_context, created_at, updated_at
`

type CreateDocumentParams struct {
	ID              string
	Title           string
	Content         string
	AnalyzedContent sql.NullString
	ProgramContext  sql.NullString
}

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (Document, error) {
	row := q.db.QueryRowContext(ctx, createDocument,
		arg.ID,
		arg.Title,
		arg.Content,
		arg.AnalyzedContent,
		arg.ProgramContext,
	)
	var i Document
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.AnalyzedContent,
		&i.ProgramContext,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getDocument = `
SELECT id, title, content, analyzed_content, program_context, created_at, updated_at
FROM documents
WHERE id = ?
LIMIT 1
`

func (q *Queries) GetDocument(ctx context.Context, id string) (Document, error) {
	row := q.db.QueryRowContext(ctx, getDocument, id)
	var i Document
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.AnalyzedContent,
		&i.ProgramContext,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDocuments = `
SELECT id, title, content, analyzed_content, program_context, created_at, updated_at
FROM documents
ORDER BY updated_at DESC
`

func (q *Queries) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx, listDocuments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Document
	for rows.Next() {
		var i Document
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Content,
			&i.AnalyzedContent,
			&i.ProgramContext,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateDocument = `
UPDATE documents
SET title = ?, content = ?, analyzed_content = ?, program_context = ?, updated_at = strftime('%s', 'now')
WHERE id = ?
RETURNING id, title, content, analyzed_content, program_context, created_at, updated_at
`

type UpdateDocumentParams struct {
	Title           string
	Content         string
	AnalyzedContent sql.NullString
	ProgramContext  sql.NullString
	ID              string
}

func (q *Queries) UpdateDocument(ctx context.Context, arg UpdateDocumentParams) (Document, error) {
	row := q.db.QueryRowContext(ctx, updateDocument,
		arg.Title,
		arg.Content,
		arg.AnalyzedContent,
		arg.ProgramContext,
		arg.ID,
	)
	var i Document
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.AnalyzedContent,
		&i.ProgramContext,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteDocument = `
DELETE FROM documents
WHERE id = ?
`

func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteDocument, id)
	return err
}
