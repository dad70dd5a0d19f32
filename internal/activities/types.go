package activities

type CreateDocumentInput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

type ExtractTextInput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

type ExtractTextOutput struct {
	Text string `json:"text"`
}

type ChunkPayload struct {
	ChunkID     string `json:"chunk_id"`
	ChunkIndex  int    `json:"chunk_index"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

type ChunkDocumentInput struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

type ChunkDocumentOutput struct {
	Chunks []ChunkPayload `json:"chunks"`
}

type EmbedChunksInput struct {
	DocumentID string         `json:"document_id"`
	Chunks     []ChunkPayload `json:"chunks"`
}

type EmbedChunksOutput struct {
	Vectors [][]float32 `json:"vectors"`
}

type PublishDocumentInput struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Chunks     []ChunkPayload `json:"chunks"`
	Vectors    [][]float32    `json:"vectors"`
}

type PublishDocumentOutput struct {
	ChunkCount int `json:"chunk_count"`
}

type MarkDocumentFailedInput struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}
