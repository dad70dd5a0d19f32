package workflows

type DocumentIngestInput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

type DocumentIngestResult struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	FailReason string `json:"fail_reason,omitempty"`
}

type DocumentIngestStatus struct {
	DocumentID  string            `json:"document_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Steps       map[string]string `json:"steps"`
}
