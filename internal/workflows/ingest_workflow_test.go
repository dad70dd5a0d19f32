package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"docchat/internal/activities"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func newIngestEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerActivityName(env, "CreateDocumentActivity", func(context.Context, activities.CreateDocumentInput) error { return nil })
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "ChunkDocumentActivity", func(context.Context, activities.ChunkDocumentInput) (activities.ChunkDocumentOutput, error) {
		return activities.ChunkDocumentOutput{}, nil
	})
	registerActivityName(env, "EmbedChunksActivity", func(context.Context, activities.EmbedChunksInput) (activities.EmbedChunksOutput, error) {
		return activities.EmbedChunksOutput{}, nil
	})
	registerActivityName(env, "PublishDocumentActivity", func(context.Context, activities.PublishDocumentInput) (activities.PublishDocumentOutput, error) {
		return activities.PublishDocumentOutput{}, nil
	})
	registerActivityName(env, "MarkDocumentFailedActivity", func(context.Context, activities.MarkDocumentFailedInput) error { return nil })
	return env
}

func TestDocumentIngestWorkflowSuccess(t *testing.T) {
	env := newIngestEnv(t)

	chunks := []activities.ChunkPayload{
		{ChunkID: "c0", ChunkIndex: 0, Text: "first part", StartOffset: 0, EndOffset: 10},
		{ChunkID: "c1", ChunkIndex: 1, Text: "second part", StartOffset: 8, EndOffset: 19},
	}
	env.OnActivity("CreateDocumentActivity", mock.Anything, activities.CreateDocumentInput{DocumentID: "doc1", Filename: "a.txt"}).Return(nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, activities.ExtractTextInput{DocumentID: "doc1", Filename: "a.txt"}).Return(activities.ExtractTextOutput{Text: "first part second part"}, nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, activities.ChunkDocumentInput{DocumentID: "doc1", Text: "first part second part"}).Return(activities.ChunkDocumentOutput{Chunks: chunks}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, activities.EmbedChunksInput{DocumentID: "doc1", Chunks: chunks}).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.1}, {0.2}}}, nil)
	env.OnActivity("PublishDocumentActivity", mock.Anything, mock.Anything).Return(activities.PublishDocumentOutput{ChunkCount: 2}, nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentID: "doc1", Filename: "a.txt"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out DocumentIngestResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "ready", out.Status)
	require.Equal(t, 2, out.ChunkCount)
	require.Equal(t, "doc1", out.DocumentID)
}

func TestDocumentIngestWorkflowNoTextFailsGracefully(t *testing.T) {
	env := newIngestEnv(t)

	env.OnActivity("CreateDocumentActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{}, errors.New("no extractable text found in document"))
	env.OnActivity("MarkDocumentFailedActivity", mock.Anything, activities.MarkDocumentFailedInput{
		DocumentID: "doc1",
		Reason:     "no extractable text found in document",
	}).Return(nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentID: "doc1", Filename: "scan.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out DocumentIngestResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out.Status)
	require.Equal(t, "no extractable text found in document", out.FailReason)
	require.Zero(t, out.ChunkCount)
}

func TestDocumentIngestWorkflowUnsupportedFormatFailsGracefully(t *testing.T) {
	env := newIngestEnv(t)

	env.OnActivity("CreateDocumentActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{}, errors.New("unsupported file format: \"png\""))
	env.OnActivity("MarkDocumentFailedActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentID: "doc1", Filename: "image.png"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out DocumentIngestResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out.Status)
	require.Equal(t, "unsupported file format", out.FailReason)
}

func TestDocumentIngestWorkflowEmbeddingFailurePropagates(t *testing.T) {
	env := newIngestEnv(t)

	env.OnActivity("CreateDocumentActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{Text: "body"}, nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, mock.Anything).Return(activities.ChunkDocumentOutput{
		Chunks: []activities.ChunkPayload{{ChunkID: "c0", ChunkIndex: 0, Text: "body"}},
	}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{}, errors.New("embedding backend unavailable"))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentID: "doc1", Filename: "a.txt"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
