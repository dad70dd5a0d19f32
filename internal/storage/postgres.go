package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"docchat/internal/models"
	"docchat/internal/util"
)

// PostgresStore keeps documents and chunks in two tables; chunk deletion
// cascades with the document inside a single transaction.
type PostgresStore struct {
	db *DB
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc models.Document) error {
	_, err := s.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, filename, status, fail_reason)
VALUES ($1, $2, $3, NULLIF($4,''))`,
		doc.DocumentID, doc.Filename, doc.Status, doc.FailReason)
	if err != nil {
		return fmt.Errorf("%w: insert document: %v", util.ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStore) MarkReady(ctx context.Context, documentID, text string) error {
	tag, err := s.db.Pool.Exec(ctx, `
UPDATE documents SET text=$2, status=$3, fail_reason=NULL WHERE document_id=$1`,
		documentID, text, models.DocStatusReady)
	if err != nil {
		return fmt.Errorf("%w: mark document ready: %v", util.ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return util.ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, documentID, reason string) error {
	tag, err := s.db.Pool.Exec(ctx, `
UPDATE documents SET status=$2, fail_reason=NULLIF($3,'') WHERE document_id=$1`,
		documentID, models.DocStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("%w: mark document failed: %v", util.ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return util.ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) AttachChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin attach chunks: %v", util.ErrStorageFailure, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var one int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM documents WHERE document_id=$1`, documentID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.ErrDocumentNotFound
		}
		return fmt.Errorf("%w: check document: %v", util.ErrStorageFailure, err)
	}

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, document_id, chunk_index, text, start_offset, end_offset)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (chunk_id)
DO UPDATE SET text = EXCLUDED.text, start_offset = EXCLUDED.start_offset, end_offset = EXCLUDED.end_offset`,
			c.ChunkID, documentID, c.ChunkIndex, c.Text, c.StartOffset, c.EndOffset)
		if err != nil {
			return fmt.Errorf("%w: insert chunk %s: %v", util.ErrStorageFailure, c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit chunks: %v", util.ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (models.Document, error) {
	var d models.Document
	err := s.db.Pool.QueryRow(ctx, `
SELECT d.document_id, d.filename, COALESCE(d.text,''), d.status, COALESCE(d.fail_reason,''), d.created_at,
       (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.document_id)
FROM documents d
WHERE d.document_id=$1`, documentID).
		Scan(&d.DocumentID, &d.Filename, &d.Text, &d.Status, &d.FailReason, &d.CreatedAt, &d.ChunkCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Document{}, util.ErrDocumentNotFound
		}
		return models.Document{}, fmt.Errorf("%w: get document: %v", util.ErrStorageFailure, err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin delete document: %v", util.ErrStorageFailure, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	chunkTag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete chunks: %v", util.ErrStorageFailure, err)
	}
	docTag, err := tx.Exec(ctx, `DELETE FROM documents WHERE document_id=$1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete document: %v", util.ErrStorageFailure, err)
	}
	if docTag.RowsAffected() == 0 {
		return 0, util.ErrDocumentNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit delete: %v", util.ErrStorageFailure, err)
	}
	return int(chunkTag.RowsAffected()), nil
}

func (s *PostgresStore) ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT chunk_id, document_id, chunk_index, text, start_offset, end_offset, created_at
FROM chunks
WHERE document_id=$1
ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks: %v", util.ErrStorageFailure, err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.StartOffset, &c.EndOffset, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", util.ErrStorageFailure, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", util.ErrStorageFailure, err)
	}
	return out, nil
}
