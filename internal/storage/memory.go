package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"docchat/internal/models"
	"docchat/internal/util"
)

// MemoryStore is an in-process DocumentStore used by tests and local runs
// without Postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]models.Document
	chunks map[string][]models.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]models.Document),
		chunks: make(map[string][]models.Chunk),
	}
}

func (s *MemoryStore) CreateDocument(_ context.Context, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.docs[doc.DocumentID] = doc
	return nil
}

func (s *MemoryStore) MarkReady(_ context.Context, documentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return util.ErrDocumentNotFound
	}
	doc.Text = text
	doc.Status = models.DocStatusReady
	doc.FailReason = ""
	s.docs[documentID] = doc
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, documentID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return util.ErrDocumentNotFound
	}
	doc.Status = models.DocStatusFailed
	doc.FailReason = reason
	s.docs[documentID] = doc
	return nil
}

func (s *MemoryStore) AttachChunks(_ context.Context, documentID string, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[documentID]; !ok {
		return util.ErrDocumentNotFound
	}
	existing := s.chunks[documentID]
	byID := make(map[string]int, len(existing))
	for i, c := range existing {
		byID[c.ChunkID] = i
	}
	for _, c := range chunks {
		c.DocumentID = documentID
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		if i, ok := byID[c.ChunkID]; ok {
			existing[i] = c
		} else {
			existing = append(existing, c)
		}
	}
	sort.Slice(existing, func(i, j int) bool {
		return existing[i].ChunkIndex < existing[j].ChunkIndex
	})
	s.chunks[documentID] = existing
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, documentID string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return models.Document{}, util.ErrDocumentNotFound
	}
	doc.ChunkCount = len(s.chunks[documentID])
	return doc, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[documentID]; !ok {
		return 0, util.ErrDocumentNotFound
	}
	n := len(s.chunks[documentID])
	delete(s.docs, documentID)
	delete(s.chunks, documentID)
	return n, nil
}

func (s *MemoryStore) ListChunks(_ context.Context, documentID string) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.chunks[documentID]
	out := make([]models.Chunk, len(src))
	copy(out, src)
	return out, nil
}
