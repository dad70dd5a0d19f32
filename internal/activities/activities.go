package activities

import (
	"context"
	"fmt"
	"os"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/extract"
	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/storage"
	"docchat/internal/util"
	"docchat/internal/vector"
)

type Activities struct {
	cfg       config.Config
	store     storage.DocumentStore
	index     vector.Index
	blobs     *storage.BlobStore
	providers *providers.Manager
}

func New(cfg config.Config, store storage.DocumentStore, index vector.Index, blobs *storage.BlobStore) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:       cfg,
		store:     store,
		index:     index,
		blobs:     blobs,
		providers: pm,
	}, nil
}

func (a *Activities) CreateDocumentActivity(ctx context.Context, in CreateDocumentInput) error {
	return a.store.CreateDocument(ctx, models.Document{
		DocumentID: in.DocumentID,
		Filename:   in.Filename,
		Status:     models.DocStatusProcessing,
	})
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	path, err := a.blobs.Path(in.DocumentID)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("locate upload for %s: %w", in.DocumentID, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("read upload: %w", err)
	}
	ext, err := extract.Extension(in.Filename)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	text, err := extract.Text(raw, ext)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{Text: text}, nil
}

func (a *Activities) ChunkDocumentActivity(ctx context.Context, in ChunkDocumentInput) (ChunkDocumentOutput, error) {
	_ = ctx
	pieces, err := chunker.Split(in.Text, a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	if err != nil {
		return ChunkDocumentOutput{}, err
	}
	out := ChunkDocumentOutput{Chunks: make([]ChunkPayload, 0, len(pieces))}
	for i, p := range pieces {
		id := util.SHA256Hex([]byte(fmt.Sprintf("%s:%d:%s", in.DocumentID, i, util.SHA256Hex([]byte(p.Text)))))[:16]
		out.Chunks = append(out.Chunks, ChunkPayload{
			ChunkID:     id,
			ChunkIndex:  i,
			Text:        p.Text,
			StartOffset: p.Start,
			EndOffset:   p.End,
		})
	}
	return out, nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	texts := make([]string, 0, len(in.Chunks))
	for _, c := range in.Chunks {
		texts = append(texts, c.Text)
	}
	vecs, info, err := a.providers.EmbedTexts(ctx, "embed_chunks", texts)
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	_ = info
	return EmbedChunksOutput{Vectors: vecs}, nil
}

// PublishDocumentActivity makes the document visible to chat: chunk rows,
// embeddings, and the ready status land together, with the status flip last.
func (a *Activities) PublishDocumentActivity(ctx context.Context, in PublishDocumentInput) (PublishDocumentOutput, error) {
	if len(in.Vectors) != len(in.Chunks) {
		return PublishDocumentOutput{}, fmt.Errorf("%w: %d vectors for %d chunks", util.ErrInvalidArgument, len(in.Vectors), len(in.Chunks))
	}
	chunks := make([]models.Chunk, 0, len(in.Chunks))
	items := make([]vector.Item, 0, len(in.Chunks))
	for i, c := range in.Chunks {
		chunks = append(chunks, models.Chunk{
			ChunkID:     c.ChunkID,
			DocumentID:  in.DocumentID,
			ChunkIndex:  c.ChunkIndex,
			Text:        c.Text,
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
		})
		items = append(items, vector.Item{
			ChunkID:    c.ChunkID,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			Vector:     in.Vectors[i],
		})
	}
	if err := a.store.AttachChunks(ctx, in.DocumentID, chunks); err != nil {
		return PublishDocumentOutput{}, err
	}
	if err := a.index.Upsert(ctx, in.DocumentID, items); err != nil {
		return PublishDocumentOutput{}, err
	}
	if err := a.store.MarkReady(ctx, in.DocumentID, in.Text); err != nil {
		return PublishDocumentOutput{}, err
	}
	return PublishDocumentOutput{ChunkCount: len(chunks)}, nil
}

func (a *Activities) MarkDocumentFailedActivity(ctx context.Context, in MarkDocumentFailedInput) error {
	return a.store.MarkFailed(ctx, in.DocumentID, in.Reason)
}
