package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"docchat/internal/activities"
)

const QueryGetIngestStatus = "GetIngestStatus"

// DocumentIngestWorkflow drives one upload from raw blob to a queryable
// document: extract, chunk, embed, then publish everything at once. A
// document with no usable text is marked failed and the workflow still
// completes, so callers always learn the final status.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (DocumentIngestResult, error) {
	status := DocumentIngestStatus{
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestStatus, func() (DocumentIngestStatus, error) {
		return status, nil
	}); err != nil {
		return DocumentIngestResult{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	failDocument := func(reason string) (DocumentIngestResult, error) {
		status.Status = "failed"
		status.FailReason = reason
		status.Steps[status.CurrentStep] = "failed"
		_ = workflow.ExecuteActivity(ctx, "MarkDocumentFailedActivity", activities.MarkDocumentFailedInput{
			DocumentID: input.DocumentID,
			Reason:     reason,
		}).Get(ctx, nil)
		return DocumentIngestResult{DocumentID: input.DocumentID, Status: status.Status, FailReason: reason}, nil
	}

	status.CurrentStep = "create_document"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "CreateDocumentActivity", activities.CreateDocumentInput{
		DocumentID: input.DocumentID,
		Filename:   input.Filename,
	}).Get(ctx, nil); err != nil {
		return DocumentIngestResult{}, err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_text"
	status.Steps[status.CurrentStep] = "processing"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{
		DocumentID: input.DocumentID,
		Filename:   input.Filename,
	}).Get(ctx, &textOut); err != nil {
		if isNoTextError(err) {
			return failDocument("no extractable text found in document")
		}
		if isUnsupportedFormatError(err) {
			return failDocument("unsupported file format")
		}
		return DocumentIngestResult{}, err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "chunk_document"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ChunkDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkDocumentActivity", activities.ChunkDocumentInput{
		DocumentID: input.DocumentID,
		Text:       textOut.Text,
	}).Get(ctx, &chunkOut); err != nil {
		return DocumentIngestResult{}, err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "embed_chunks"
	status.Steps[status.CurrentStep] = "processing"
	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{
		DocumentID: input.DocumentID,
		Chunks:     chunkOut.Chunks,
	}).Get(ctx, &embedOut); err != nil {
		return DocumentIngestResult{}, err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "publish_document"
	status.Steps[status.CurrentStep] = "processing"
	var publishOut activities.PublishDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "PublishDocumentActivity", activities.PublishDocumentInput{
		DocumentID: input.DocumentID,
		Text:       textOut.Text,
		Chunks:     chunkOut.Chunks,
		Vectors:    embedOut.Vectors,
	}).Get(ctx, &publishOut); err != nil {
		return DocumentIngestResult{}, err
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = "ready"

	return DocumentIngestResult{
		DocumentID: input.DocumentID,
		Status:     status.Status,
		ChunkCount: publishOut.ChunkCount,
	}, nil
}

func isNoTextError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no extractable text")
}

func isUnsupportedFormatError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unsupported file format")
}
