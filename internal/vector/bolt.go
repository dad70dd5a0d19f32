package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"docchat/internal/models"
	"docchat/internal/util"
)

var vectorsBucket = []byte("vectors")

type boltEntry struct {
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// BoltIndex persists embeddings in a bbolt file and serves queries from
// an in-memory copy loaded at open time. Keys are document_id/chunk_id.
type BoltIndex struct {
	db *bolt.DB

	mu    sync.RWMutex
	cache map[string]map[string]boltEntry
}

func NewBoltIndex(path string) (*BoltIndex, error) {
	// The file lock is exclusive; fail fast instead of blocking forever
	// when another process already owns the index.
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt index: %w", err)
	}
	idx := &BoltIndex{db: db, cache: make(map[string]map[string]boltEntry)}
	if err := idx.load(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *BoltIndex) Close() error {
	return idx.db.Close()
}

func (idx *BoltIndex) load() error {
	return idx.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			docID, chunkID, ok := strings.Cut(string(k), "/")
			if !ok {
				return nil
			}
			var e boltEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %s: %w", k, err)
			}
			if idx.cache[docID] == nil {
				idx.cache[docID] = make(map[string]boltEntry)
			}
			idx.cache[docID][chunkID] = e
			return nil
		})
	})
}

func (idx *BoltIndex) Upsert(_ context.Context, documentID string, items []Item) error {
	err := idx.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(vectorsBucket)
		if err != nil {
			return err
		}
		for _, it := range items {
			data, err := json.Marshal(boltEntry{ChunkIndex: it.ChunkIndex, Text: it.Text, Vector: it.Vector})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(documentID+"/"+it.ChunkID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: bolt upsert: %v", util.ErrStorageFailure, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.cache[documentID] == nil {
		idx.cache[documentID] = make(map[string]boltEntry)
	}
	for _, it := range items {
		idx.cache[documentID][it.ChunkID] = boltEntry{ChunkIndex: it.ChunkIndex, Text: it.Text, Vector: it.Vector}
	}
	return nil
}

func (idx *BoltIndex) Query(_ context.Context, documentID string, queryVec []float32, topK int) ([]models.RetrievedChunk, error) {
	if err := validateQuery(queryVec, topK); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidArgument, err)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.cache[documentID]
	scored := make([]models.RetrievedChunk, 0, len(entries))
	for chunkID, e := range entries {
		if len(e.Vector) != len(queryVec) {
			return nil, fmt.Errorf("%w: query dimension %d does not match stored dimension %d",
				util.ErrInvalidArgument, len(queryVec), len(e.Vector))
		}
		scored = append(scored, models.RetrievedChunk{
			ChunkID:    chunkID,
			ChunkIndex: e.ChunkIndex,
			Text:       e.Text,
			Score:      cosineSimilarity(queryVec, e.Vector),
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

func (idx *BoltIndex) Delete(_ context.Context, documentID string) error {
	prefix := []byte(documentID + "/")
	err := idx.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		if b == nil {
			return nil
		}
		// Deleting through the cursor keeps iteration valid; Bucket.Delete
		// mid-scan may skip keys.
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: bolt delete: %v", util.ErrStorageFailure, err)
	}

	idx.mu.Lock()
	delete(idx.cache, documentID)
	idx.mu.Unlock()
	return nil
}
