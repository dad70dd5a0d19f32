package storage

import (
	"context"

	"docchat/internal/models"
)

// DocumentStore is the durable record of ingested documents and their
// chunks. Implementations are injected at process start; there are no
// package-level singletons.
type DocumentStore interface {
	// CreateDocument inserts a fresh document row. The id must be unique.
	CreateDocument(ctx context.Context, doc models.Document) error

	// MarkReady publishes the document: stores the full extracted text and
	// flips the status to ready.
	MarkReady(ctx context.Context, documentID, text string) error

	// MarkFailed records an ingestion failure reason.
	MarkFailed(ctx context.Context, documentID, reason string) error

	// AttachChunks stores the document's chunk batch. Fails with
	// ErrDocumentNotFound for an unknown document id.
	AttachChunks(ctx context.Context, documentID string, chunks []models.Chunk) error

	// GetDocument returns the document or ErrDocumentNotFound.
	GetDocument(ctx context.Context, documentID string) (models.Document, error)

	// DeleteDocument removes the document and all of its chunks in one
	// logical operation and reports how many chunks were removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// ListChunks returns the document's chunks ordered by chunk index.
	ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
}
