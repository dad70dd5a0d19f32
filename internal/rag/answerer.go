package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/session"
	"docchat/internal/storage"
	"docchat/internal/util"
)

// InsufficientContextAnswer is returned verbatim when retrieval finds
// nothing usable for the question.
const InsufficientContextAnswer = "I don't have enough information in the document to answer that."

// Answerer runs one grounded chat exchange: retrieve context for the
// question, compose the prompt with session history, and generate.
type Answerer struct {
	store     storage.DocumentStore
	retriever *Retriever
	sessions  *session.Store
	providers *providers.Manager
}

// AnswerResult carries the generated answer and the chunks it drew on.
type AnswerResult struct {
	Answer    string
	SourceIDs []string
}

func NewAnswerer(store storage.DocumentStore, retriever *Retriever, sessions *session.Store, mgr *providers.Manager) *Answerer {
	return &Answerer{store: store, retriever: retriever, sessions: sessions, providers: mgr}
}

// Answer handles one user message against one document within a session.
// Exchanges in the same session are serialized so history stays ordered.
func (a *Answerer) Answer(ctx context.Context, documentID, sessionID, message string) (AnswerResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return AnswerResult{}, fmt.Errorf("%w: empty message", util.ErrInvalidArgument)
	}

	doc, err := a.store.GetDocument(ctx, documentID)
	if err != nil {
		return AnswerResult{}, err
	}
	if doc.Status != models.DocStatusReady {
		return AnswerResult{}, fmt.Errorf("%w: document %s is %s", util.ErrDocumentNotFound, documentID, doc.Status)
	}

	release := a.sessions.Acquire(sessionID)
	defer release()

	retrieval, err := a.retriever.Retrieve(ctx, documentID, message)
	if errors.Is(err, util.ErrNoRelevantContent) {
		// No grounding material, so skip the model entirely and record
		// the exchange with the fixed fallback.
		a.sessions.AppendTurn(sessionID, message, InsufficientContextAnswer)
		return AnswerResult{Answer: InsufficientContextAnswer, SourceIDs: []string{}}, nil
	}
	if err != nil {
		return AnswerResult{}, err
	}

	grounded := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", retrieval.ContextText, message)
	msgs := a.sessions.PromptMessages(sessionID, grounded)

	answer, info, err := a.providers.GenerateText(ctx, "chat_answer", msgs)
	if err != nil {
		return AnswerResult{}, err
	}
	log.Printf("chat answer generated provider=%s model=%s document=%s session=%s sources=%d",
		info.Name, info.Model, documentID, sessionID, len(retrieval.SourceIDs))

	a.sessions.AppendTurn(sessionID, message, answer)
	return AnswerResult{Answer: answer, SourceIDs: retrieval.SourceIDs}, nil
}
