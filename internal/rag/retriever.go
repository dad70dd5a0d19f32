package rag

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/providers"
	"docchat/internal/util"
	"docchat/internal/vector"
)

// Retriever embeds a query and pulls the closest chunks of one document.
type Retriever struct {
	providers *providers.Manager
	index     vector.Index
	topK      int
}

// Retrieval is the ranked context for one query.
type Retrieval struct {
	ContextText string
	SourceIDs   []string
}

func NewRetriever(mgr *providers.Manager, index vector.Index, topK int) *Retriever {
	return &Retriever{providers: mgr, index: index, topK: topK}
}

// Retrieve returns the top chunks of documentID for query. An indexed
// document with no hits at all yields ErrNoRelevantContent.
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string) (Retrieval, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Retrieval{}, fmt.Errorf("%w: empty query", util.ErrInvalidArgument)
	}
	if r.topK <= 0 {
		return Retrieval{}, fmt.Errorf("%w: topK must be positive", util.ErrInvalidArgument)
	}

	vecs, _, err := r.providers.EmbedTexts(ctx, "retrieve_query", []string{query})
	if err != nil {
		return Retrieval{}, err
	}

	hits, err := r.index.Query(ctx, documentID, vecs[0], r.topK)
	if err != nil {
		return Retrieval{}, err
	}
	if len(hits) == 0 {
		return Retrieval{}, util.ErrNoRelevantContent
	}

	parts := make([]string, 0, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Text)
		ids = append(ids, h.ChunkID)
	}
	return Retrieval{
		ContextText: strings.Join(parts, "\n\n"),
		SourceIDs:   ids,
	}, nil
}
