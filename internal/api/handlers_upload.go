package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/obaidtambo/doc-struct/internal/pdfcheck"
	"github.com/obaidtambo/doc-struct/internal/pipeline"
)

type uploadResponse struct {
	DocumentID string `json:"documentId"`
	Message    string `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, "Only PDF files are allowed.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	info, err := pdfcheck.Inspect(data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	docID := s.deps.Uploads.NewDocumentID(filename)
	log := s.log.With("doc_id", docID)

	path, err := s.deps.Uploads.SavePDF(docID, data)
	if err != nil {
		log.Error("save upload", "error", err)
		jsonError(w, "Could not save file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := s.deps.Documents.Create(r.Context(), docID, filename, path); err != nil {
		log.Error("create document record", "error", err)
		s.deps.Uploads.CleanupPDF(docID)
		jsonError(w, "Failed to create document record in database.", http.StatusInternalServerError)
		return
	}

	job := pipeline.NewJob(docID, filename, data)
	if err := s.deps.Queue.Submit(r.Context(), job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	log.Info("upload accepted", "filename", filename, "pages", info.Pages, "bytes", len(data))

	writeJSON(w, http.StatusAccepted, uploadResponse{
		DocumentID: docID,
		Message:    "PDF uploaded successfully. Processing started in the background.",
	})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
