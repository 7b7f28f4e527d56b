package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/export"
	"github.com/obaidtambo/doc-struct/internal/pipeline"
	"github.com/obaidtambo/doc-struct/internal/store"
)

type statusResponse struct {
	DocumentID   string                  `json:"documentId"`
	Filename     string                  `json:"filename"`
	Status       store.Status            `json:"status"`
	Progress     string                  `json:"progress"`
	Processing   bool                    `json:"processing"`
	FinalData    *docstate.DocumentState `json:"finalData"`
	ErrorMessage *string                 `json:"errorMessage"`
	Job          *pipeline.JobSnapshot   `json:"job,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")
	doc, ok := s.document(w, r, id)
	if !ok {
		return
	}

	resp := statusResponse{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Status:     doc.Status,
		Progress:   string(doc.Status),
		Processing: !doc.Status.Terminal(),
	}
	if doc.ErrorMessage != "" {
		resp.ErrorMessage = &doc.ErrorMessage
	}
	if job := s.deps.Queue.JobForDocument(doc.ID); job != nil {
		snap := job.Snapshot()
		resp.Job = &snap
	}

	if len(doc.FinalState) > 0 {
		state, err := docstate.Decode(doc.FinalState)
		if err != nil {
			s.log.Warn("stored document state unreadable", "doc_id", doc.ID, "error", err)
			msg := "Could not load final document state: " + err.Error()
			resp.Progress = "DATA_ERROR: " + string(doc.Status)
			resp.ErrorMessage = &msg
		} else {
			resp.FinalData = state
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	state, err := docstate.Decode(body)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.deps.Documents.Get(r.Context(), state.DocumentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, fmt.Sprintf("Document with ID %s not found.", state.DocumentID), http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	canonical, err := json.Marshal(state)
	if err != nil {
		jsonError(w, "failed to encode document state: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.deps.Documents.SaveState(r.Context(), state.DocumentID, canonical); err != nil {
		s.log.Error("save document state", "doc_id", state.DocumentID, "error", err)
		jsonError(w, "Failed to save document state: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("document state saved", "doc_id", state.DocumentID, "paragraphs", len(state.Paragraphs), "history", len(state.History))

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    fmt.Sprintf("Document state for %s saved successfully.", state.DocumentID),
		"documentId": state.DocumentID,
	})
}

type documentSummary struct {
	DocumentID   string       `json:"documentId"`
	Filename     string       `json:"filename"`
	Status       store.Status `json:"status"`
	IsEdited     bool         `json:"isEdited"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Documents.List(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{
			DocumentID:   d.ID,
			Filename:     d.Filename,
			Status:       d.Status,
			IsEdited:     d.IsEdited,
			ErrorMessage: d.ErrorMessage,
			CreatedAt:    d.CreatedAt,
			UpdatedAt:    d.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, ok := s.document(w, r, chi.URLParam(r, "documentID"))
	if !ok {
		return
	}
	if len(doc.FinalState) == 0 {
		jsonError(w, fmt.Sprintf("document %s has no final state (status %s)", doc.ID, doc.Status), http.StatusConflict)
		return
	}
	state, err := docstate.Decode(doc.FinalState)
	if err != nil {
		jsonError(w, "Could not load final document state: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, state); err != nil {
		s.log.Error("export failed", "doc_id", doc.ID, "format", format, "error", err)
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(doc.ID)))
	_, _ = w.Write(buf.Bytes())
}

// document loads a record, writing the error response itself when it
// cannot.
func (s *Server) document(w http.ResponseWriter, r *http.Request, id string) (*store.Document, bool) {
	doc, err := s.deps.Documents.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "Document not found.", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return doc, true
}
