package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.CreateDocumentActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ChunkDocumentActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.PublishDocumentActivity)
	w.RegisterActivity(a.MarkDocumentFailedActivity)
}
