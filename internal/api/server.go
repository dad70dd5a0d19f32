package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"docchat/internal/config"
	"docchat/internal/extract"
	"docchat/internal/providers"
	"docchat/internal/rag"
	"docchat/internal/session"
	"docchat/internal/storage"
	"docchat/internal/util"
	"docchat/internal/vector"
	"docchat/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg       config.Config
	store     storage.DocumentStore
	index     vector.Index
	blobs     *storage.BlobStore
	sessions  *session.Store
	providers *providers.Manager
	answerer  *rag.Answerer
	temporal  tclient.Client
}

// NewServer wires the production backends: Postgres for documents,
// the configured vector backend, and a Temporal client for ingestion.
func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	store := storage.NewPostgresStore(db)
	index, err := BuildIndex(cfg, db)
	if err != nil {
		panic(err)
	}
	blobs, err := storage.NewBlobStore(cfg.DataRoot)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	srv, err := NewServerWith(cfg, store, index, blobs, tc)
	if err != nil {
		panic(err)
	}
	return srv
}

// NewServerWith assembles a server on explicit backends.
func NewServerWith(cfg config.Config, store storage.DocumentStore, index vector.Index, blobs *storage.BlobStore, tc tclient.Client) (*Server, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(cfg.SystemPrompt, cfg.MaxHistoryTurns)
	retriever := rag.NewRetriever(pm, index, cfg.TopK)
	return &Server{
		cfg:       cfg,
		store:     store,
		index:     index,
		blobs:     blobs,
		sessions:  sessions,
		providers: pm,
		answerer:  rag.NewAnswerer(store, retriever, sessions, pm),
		temporal:  tc,
	}, nil
}

// BuildIndex picks the vector backend for the split api/worker deployment.
// Only postgres can be shared between the two processes: the bolt backend
// holds an exclusive file lock and caches at open, and a memory index is
// process-local, so either one would leave the api blind to the worker's
// upserts. Embedded single-process setups construct those backends directly
// and wire them through NewServerWith.
func BuildIndex(cfg config.Config, db *storage.DB) (vector.Index, error) {
	switch cfg.VectorBackend {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres vector backend requires a database")
		}
		return vector.NewPostgresIndex(db.Pool), nil
	case "bolt", "memory":
		return nil, fmt.Errorf("vector backend %q is single-process and cannot be shared between the api and worker; use postgres", cfg.VectorBackend)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentScoped)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/sessions/", s.handleSessionScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

var supportedUploadFormats = map[string]bool{
	"txt":  true,
	"md":   true,
	"pdf":  true,
	"docx": true,
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("file field is required: %w", err))
		return
	}
	defer file.Close()

	ext, err := extract.Extension(header.Filename)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if !supportedUploadFormats[ext] {
		writeErr(w, http.StatusUnsupportedMediaType, fmt.Errorf("%w: %q", util.ErrUnsupportedFormat, ext))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		writeErr(w, http.StatusUnprocessableEntity, util.ErrNoExtractableText)
		return
	}

	documentID := uuid.NewString()
	if _, err := s.blobs.Save(documentID, header.Filename, data); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "ingest-" + documentID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
		DocumentID: documentID,
		Filename:   header.Filename,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("start ingest: %w", err))
		return
	}

	var result workflows.DocumentIngestResult
	if err := we.Get(r.Context(), &result); err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	if result.Status == "failed" {
		code := http.StatusUnprocessableEntity
		if strings.Contains(result.FailReason, "unsupported") {
			code = http.StatusUnsupportedMediaType
		}
		writeErr(w, code, errors.New(result.FailReason))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document_id": result.DocumentID,
		"chunk_count": result.ChunkCount,
		"status":      result.Status,
	})
}

func (s *Server) handleDocumentScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, util.ErrDocumentNotFound)
		return
	}
	documentID := parts[0]

	if len(parts) == 2 && parts[1] == "file" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleDocumentFile(w, r, documentID)
		return
	}
	if len(parts) != 1 {
		writeErr(w, http.StatusNotFound, util.ErrDocumentNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetDocument(w, r, documentID)
	case http.MethodDelete:
		s.handleDeleteDocument(w, r, documentID)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	doc, err := s.store.GetDocument(r.Context(), documentID)
	if err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.DocumentID,
		"filename":    doc.Filename,
		"status":      doc.Status,
		"fail_reason": doc.FailReason,
		"chunk_count": doc.ChunkCount,
		"created_at":  doc.CreatedAt,
	})
}

func (s *Server) handleDocumentFile(w http.ResponseWriter, r *http.Request, documentID string) {
	if _, err := s.store.GetDocument(r.Context(), documentID); err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	path, err := s.blobs.Path(documentID)
	if err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	deleted, err := s.store.DeleteDocument(r.Context(), documentID)
	if err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	if err := s.index.Delete(r.Context(), documentID); err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	if err := s.blobs.Remove(documentID); err != nil {
		log.Printf("remove blob for %s: %v", documentID, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":         documentID,
		"deleted_chunk_count": deleted,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		DocumentID string `json:"document_id"`
		SessionID  string `json:"session_id"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: document_id is required", util.ErrInvalidArgument))
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = s.cfg.DefaultSession
	}

	res, err := s.answerer.Answer(r.Context(), req.DocumentID, sessionID, req.Message)
	if err != nil {
		writeErr(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":     res.Answer,
		"source_ids": res.SourceIDs,
		"session_id": sessionID,
	})
}

func (s *Server) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: session id is required", util.ErrInvalidArgument))
		return
	}
	sessionID := parts[0]

	if len(parts) == 2 && parts[1] == "clear" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.sessions.Clear(sessionID)
		writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "cleared": true})
		return
	}
	if len(parts) == 1 && r.Method == http.MethodDelete {
		s.sessions.Remove(sessionID)
		writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "removed": true})
		return
	}
	writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, util.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, util.ErrNoExtractableText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, util.ErrEmbeddingUnavailable), errors.Is(err, util.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"message": msg},
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
