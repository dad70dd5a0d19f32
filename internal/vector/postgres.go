package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/internal/models"
	"docchat/internal/util"
)

// PostgresIndex keeps embeddings in the chunks table's vector column.
// A chunk becomes visible to queries only once its embedding is set,
// so a half-ingested document never serves partial results.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

func (idx *PostgresIndex) Upsert(ctx context.Context, documentID string, items []Item) error {
	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin upsert embeddings: %v", util.ErrStorageFailure, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for _, it := range items {
		tag, err := tx.Exec(ctx, `
UPDATE chunks SET embedding = $3::vector
WHERE document_id = $1 AND chunk_id = $2`,
			documentID, it.ChunkID, ToLiteral(it.Vector))
		if err != nil {
			return fmt.Errorf("%w: set embedding for %s: %v", util.ErrStorageFailure, it.ChunkID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: chunk %s not found for document %s", util.ErrStorageFailure, it.ChunkID, documentID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit embeddings: %v", util.ErrStorageFailure, err)
	}
	return nil
}

func (idx *PostgresIndex) Query(ctx context.Context, documentID string, queryVec []float32, topK int) ([]models.RetrievedChunk, error) {
	if err := validateQuery(queryVec, topK); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidArgument, err)
	}
	lit := ToLiteral(queryVec)
	rows, err := idx.pool.Query(ctx, `
SELECT chunk_id, chunk_index, text, 1 - (embedding <=> $2::vector) AS score
FROM chunks
WHERE document_id = $1 AND embedding IS NOT NULL
ORDER BY embedding <=> $2::vector ASC, chunk_index ASC
LIMIT $3`, documentID, lit, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", util.ErrStorageFailure, err)
	}
	defer rows.Close()
	out := make([]models.RetrievedChunk, 0, topK)
	for rows.Next() {
		var rc models.RetrievedChunk
		if err := rows.Scan(&rc.ChunkID, &rc.ChunkIndex, &rc.Text, &rc.Score); err != nil {
			return nil, fmt.Errorf("%w: scan result: %v", util.ErrStorageFailure, err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate results: %v", util.ErrStorageFailure, err)
	}
	return out, nil
}

func (idx *PostgresIndex) Delete(ctx context.Context, documentID string) error {
	_, err := idx.pool.Exec(ctx, `
UPDATE chunks SET embedding = NULL WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("%w: clear embeddings: %v", util.ErrStorageFailure, err)
	}
	return nil
}
