package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docchat/internal/models"
	"docchat/internal/util"
)

// MemoryIndex is a process-local Index for tests and single-node runs.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]Item
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]map[string]Item)}
}

func (idx *MemoryIndex) Upsert(_ context.Context, documentID string, items []Item) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.docs[documentID] == nil {
		idx.docs[documentID] = make(map[string]Item, len(items))
	}
	for _, it := range items {
		stored := it
		stored.Vector = append([]float32(nil), it.Vector...)
		idx.docs[documentID][it.ChunkID] = stored
	}
	return nil
}

func (idx *MemoryIndex) Query(_ context.Context, documentID string, queryVec []float32, topK int) ([]models.RetrievedChunk, error) {
	if err := validateQuery(queryVec, topK); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidArgument, err)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	items := idx.docs[documentID]
	scored := make([]models.RetrievedChunk, 0, len(items))
	for _, it := range items {
		if len(it.Vector) != len(queryVec) {
			return nil, fmt.Errorf("%w: query dimension %d does not match stored dimension %d",
				util.ErrInvalidArgument, len(queryVec), len(it.Vector))
		}
		scored = append(scored, models.RetrievedChunk{
			ChunkID:    it.ChunkID,
			ChunkIndex: it.ChunkIndex,
			Text:       it.Text,
			Score:      cosineSimilarity(queryVec, it.Vector),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ChunkIndex < scored[j].ChunkIndex
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (idx *MemoryIndex) Delete(_ context.Context, documentID string) error {
	idx.mu.Lock()
	delete(idx.docs, documentID)
	idx.mu.Unlock()
	return nil
}
