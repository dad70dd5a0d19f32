package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"docchat/internal/util"
)

// BlobStore keeps each uploaded file on disk under root/<document_id>/.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) (*BlobStore, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("blob root: %w", err)
	}
	return &BlobStore{root: root}, nil
}

// Save writes the raw upload atomically and returns the stored path.
func (b *BlobStore) Save(documentID, filename string, data []byte) (string, error) {
	dir := util.SafeJoin(b.root, documentID)
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	path := util.SafeJoin(dir, filename)
	if err := util.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Path returns the stored file for a document, or an error when none exists.
func (b *BlobStore) Path(documentID string) (string, error) {
	dir := util.SafeJoin(b.root, documentID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", util.ErrDocumentNotFound
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", util.ErrDocumentNotFound
}

// Remove deletes the document's blob directory.
func (b *BlobStore) Remove(documentID string) error {
	return os.RemoveAll(util.SafeJoin(b.root, documentID))
}
