package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/obaidtambo/doc-struct/internal/config"
	"github.com/obaidtambo/doc-struct/internal/judge"
	"github.com/obaidtambo/doc-struct/internal/pipeline"
	"github.com/obaidtambo/doc-struct/internal/store"
)

// Documents is the record store behind the API.
type Documents interface {
	Create(ctx context.Context, id, filename, filePath string) (*store.Document, error)
	Get(ctx context.Context, id string) (*store.Document, error)
	List(ctx context.Context) ([]store.Document, error)
	SaveState(ctx context.Context, id string, state json.RawMessage) error
}

// Uploads stores incoming PDFs until the pipeline picks them up.
type Uploads interface {
	NewDocumentID(filename string) string
	SavePDF(id string, data []byte) (string, error)
	CleanupPDF(id string)
}

// Queue accepts jobs for background processing.
type Queue interface {
	Submit(ctx context.Context, job *pipeline.Job) error
	JobForDocument(docID string) *pipeline.Job
	Status() pipeline.Status
}

// Oracle exposes the hierarchy oracle's call statistics.
type Oracle interface {
	Model() string
	Stats() *judge.LLMStats
}

// Deps are the collaborators the server routes requests to. Oracle may be
// nil when hierarchy correction is disabled.
type Deps struct {
	Documents Documents
	Uploads   Uploads
	Queue     Queue
	Oracle    Oracle
}

// Server is the HTTP API server for the document pipeline.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/upload-pdf/", s.handleUpload)
	r.Get("/document-status/{documentID}", s.handleStatus)
	r.Post("/save-document-state/", s.handleSaveState)

	r.Get("/documents", s.handleListDocuments)
	r.Get("/documents/{documentID}/export", s.handleExport)

	r.Get("/api/stats/llm", s.handleLLMStats)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"queue":  s.deps.Queue.Status(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes the message under both "error" and "detail"; the editor
// client reads the latter.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg, "detail": msg})
}
