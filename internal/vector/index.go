package vector

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"docchat/internal/models"
)

// Item is one embedded chunk ready for indexing.
type Item struct {
	ChunkID    string
	ChunkIndex int
	Text       string
	Vector     []float32
}

// Index stores chunk embeddings grouped by document and answers
// document-scoped nearest-neighbour queries.
type Index interface {
	Upsert(ctx context.Context, documentID string, items []Item) error
	Query(ctx context.Context, documentID string, queryVec []float32, topK int) ([]models.RetrievedChunk, error)
	Delete(ctx context.Context, documentID string) error
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ToLiteral renders a vector as a pgvector literal, e.g. "[0.1,0.2]".
func ToLiteral(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func validateQuery(queryVec []float32, topK int) error {
	if len(queryVec) == 0 {
		return fmt.Errorf("empty query vector")
	}
	if topK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", topK)
	}
	return nil
}
