package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docchat/internal/models"
	"docchat/internal/util"
)

func TestMemoryStoreDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc := models.Document{DocumentID: "doc-1", Filename: "a.txt", Status: models.DocStatusProcessing}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.DocStatusProcessing {
		t.Fatalf("expected processing status, got %q", got.Status)
	}

	if err := s.MarkReady(ctx, "doc-1", "full text"); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	got, _ = s.GetDocument(ctx, "doc-1")
	if got.Status != models.DocStatusReady || got.Text != "full text" {
		t.Fatalf("unexpected doc after ready: %+v", got)
	}

	if err := s.MarkFailed(ctx, "doc-1", "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, _ = s.GetDocument(ctx, "doc-1")
	if got.Status != models.DocStatusFailed || got.FailReason != "boom" {
		t.Fatalf("unexpected doc after fail: %+v", got)
	}
}

func TestMemoryStoreUnknownDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetDocument(ctx, "missing"); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := s.MarkReady(ctx, "missing", "t"); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := s.AttachChunks(ctx, "missing", nil); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := s.DeleteDocument(ctx, "missing"); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStoreChunksOrderedAndCounted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.CreateDocument(ctx, models.Document{DocumentID: "doc-1", Status: models.DocStatusProcessing}); err != nil {
		t.Fatalf("create: %v", err)
	}

	chunks := []models.Chunk{
		{ChunkID: "c2", ChunkIndex: 1, Text: "second"},
		{ChunkID: "c1", ChunkIndex: 0, Text: "first"},
		{ChunkID: "c3", ChunkIndex: 2, Text: "third"},
	}
	if err := s.AttachChunks(ctx, "doc-1", chunks); err != nil {
		t.Fatalf("attach: %v", err)
	}

	listed, err := s.ListChunks(ctx, "doc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(listed))
	}
	for i, c := range listed {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d out of order: index %d", i, c.ChunkIndex)
		}
		if c.DocumentID != "doc-1" {
			t.Fatalf("chunk missing document id: %+v", c)
		}
	}

	doc, _ := s.GetDocument(ctx, "doc-1")
	if doc.ChunkCount != 3 {
		t.Fatalf("expected chunk count 3, got %d", doc.ChunkCount)
	}

	// Re-attaching the same ids replaces rather than duplicates.
	if err := s.AttachChunks(ctx, "doc-1", []models.Chunk{{ChunkID: "c1", ChunkIndex: 0, Text: "updated"}}); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	listed, _ = s.ListChunks(ctx, "doc-1")
	if len(listed) != 3 || listed[0].Text != "updated" {
		t.Fatalf("expected upsert semantics, got %+v", listed)
	}
}

func TestMemoryStoreDeleteReturnsChunkCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreateDocument(ctx, models.Document{DocumentID: "doc-1", Status: models.DocStatusProcessing})
	_ = s.AttachChunks(ctx, "doc-1", []models.Chunk{
		{ChunkID: "c1", ChunkIndex: 0, Text: "a"},
		{ChunkID: "c2", ChunkIndex: 1, Text: "b"},
	})

	n, err := s.DeleteDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted chunks, got %d", n)
	}
	if _, err := s.GetDocument(ctx, "doc-1"); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Fatalf("document still present after delete: %v", err)
	}
	listed, _ := s.ListChunks(ctx, "doc-1")
	if len(listed) != 0 {
		t.Fatalf("chunks still present after delete: %d", len(listed))
	}
}

func TestBlobStoreSaveAndRemove(t *testing.T) {
	root := t.TempDir()
	blobs, err := NewBlobStore(root)
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}

	path, err := blobs.Save("doc-1", "report.pdf", []byte("payload"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "payload" {
		t.Fatalf("read back: %v %q", err, data)
	}

	found, err := blobs.Path("doc-1")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if filepath.Base(found) != "report.pdf" {
		t.Fatalf("unexpected stored name: %s", found)
	}

	if err := blobs.Remove("doc-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := blobs.Path("doc-1"); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound after remove, got %v", err)
	}
}

func TestBlobStoreStripsTraversal(t *testing.T) {
	root := t.TempDir()
	blobs, err := NewBlobStore(root)
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	path, err := blobs.Save("doc-1", "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel != filepath.Join("doc-1", "passwd") {
		t.Fatalf("upload escaped data root: %s", path)
	}
}
