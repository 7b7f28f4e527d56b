package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/flatten"
	"github.com/obaidtambo/doc-struct/internal/hierarchy"
	"github.com/obaidtambo/doc-struct/internal/ocr"
	"github.com/obaidtambo/doc-struct/internal/pdfcheck"
	"github.com/obaidtambo/doc-struct/internal/store"
)

// Repository is the slice of the store the pipeline writes to.
type Repository interface {
	UpdateStatus(ctx context.Context, id string, status store.Status, u store.StageUpdate) error
}

// Artifacts is the slice of the file manager the pipeline uses.
type Artifacts interface {
	ReadPDF(id string) ([]byte, error)
	CleanupPDF(id string)
	WriteOutput(id, suffix string, v any) (string, error)
}

// Corrector rewrites a section tree in place.
type Corrector interface {
	Correct(ctx context.Context, tree *doctree.DocumentTree) (*hierarchy.Report, error)
}

// Worker processes a single document job.
type Worker struct {
	ocr       ocr.Provider
	corrector Corrector
	repo      Repository
	files     Artifacts
	log       *slog.Logger

	backoff func(attempt int) time.Duration
}

// NewWorker wires the stages. A nil corrector disables hierarchy
// correction; the corrected tree is then a copy of the initial one.
func NewWorker(provider ocr.Provider, corrector Corrector, repo Repository, files Artifacts, log *slog.Logger) *Worker {
	return &Worker{
		ocr:       provider,
		corrector: corrector,
		repo:      repo,
		files:     files,
		log:       log,
		backoff:   Backoff,
	}
}

// Process runs OCR, correction and flattening for a job. Every path ends in
// a persisted COMPLETED or FAILED status, and the upload is removed
// afterwards. The returned error is the failure that was recorded.
func (w *Worker) Process(ctx context.Context, job *Job) error {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	defer func() {
		w.files.CleanupPDF(job.DocID)
		job.releaseFileData()
	}()

	err := w.run(ctx, job, log)
	if err != nil {
		w.fail(ctx, job, log, err)
	}
	return err
}

func (w *Worker) run(ctx context.Context, job *Job, log *slog.Logger) error {
	// Stage 1: OCR and initial tree.
	if err := w.advance(ctx, job, store.StatusOCRInProgress, "ocr", store.StageUpdate{}); err != nil {
		return err
	}
	pdf := job.FileData()
	if pdf == nil {
		var err error
		if pdf, err = w.files.ReadPDF(job.DocID); err != nil {
			return fmt.Errorf("read upload: %w", err)
		}
	}

	res, err := w.analyze(ctx, job, pdf, log)
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	tree := doctree.Build(job.DocID, res.Analysis)
	pages := w.pageDimensions(res.Analysis, pdf, log)
	job.SetOCR(len(pages), tree.Count(), res.Cached)
	log.Info("initial tree built", "sections", tree.Count(), "top_level", len(tree.Structure), "pages", len(pages), "cached", res.Cached)

	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode initial tree: %w", err)
	}
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("encode page dimensions: %w", err)
	}
	if err := w.advance(ctx, job, store.StatusOCRCompleted, "ocr", store.StageUpdate{
		RawOCR:         res.Raw,
		InitialTree:    treeJSON,
		PageDimensions: pagesJSON,
	}); err != nil {
		return err
	}
	w.writeArtifact(job.DocID, "initial_tree", tree, log)

	// Stage 2: hierarchy correction on a copy, so the initial tree stays as
	// recorded.
	if err := w.advance(ctx, job, store.StatusCorrectionInProgress, "correction", store.StageUpdate{}); err != nil {
		return err
	}
	corrected := tree.Clone()
	if w.corrector != nil {
		report, err := w.corrector.Correct(ctx, corrected)
		if err != nil {
			return fmt.Errorf("hierarchy correction: %w", err)
		}
		job.SetCorrection(report.Checks, len(report.Corrections), report.Inconclusive)
	} else {
		log.Info("hierarchy correction disabled, keeping initial tree")
	}

	correctedJSON, err := json.Marshal(corrected)
	if err != nil {
		return fmt.Errorf("encode corrected tree: %w", err)
	}
	if err := w.advance(ctx, job, store.StatusCorrectionCompleted, "correction", store.StageUpdate{
		CorrectedTree: correctedJSON,
	}); err != nil {
		return err
	}
	w.writeArtifact(job.DocID, "corrected_tree", corrected, log)

	// Stage 3: flatten and assemble.
	if err := w.advance(ctx, job, store.StatusFlatteningInProgress, "flattening", store.StageUpdate{}); err != nil {
		return err
	}
	state, err := flatten.Document(corrected, pages)
	if err != nil {
		return fmt.Errorf("flattening: %w", err)
	}
	job.SetParagraphs(len(state.Paragraphs))

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode document state: %w", err)
	}
	if err := w.advance(ctx, job, store.StatusCompleted, "done", store.StageUpdate{
		FinalState: stateJSON,
	}); err != nil {
		return err
	}
	w.writeArtifact(job.DocID, "flattened_initial", state, log)

	log.Info("document processing complete", "paragraphs", len(state.Paragraphs))
	return nil
}

// analyze calls the OCR provider, retrying transient failures.
func (w *Worker) analyze(ctx context.Context, job *Job, pdf []byte, log *slog.Logger) (*ocr.Result, error) {
	var lastErr error
	for attempt := range MaxRetries {
		res, err := w.ocr.Analyze(ctx, job.DocID, pdf)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable ocr error", "attempt", attempt, "error", err)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// pageDimensions prefers the provider's page list and falls back to the
// PDF's own media boxes.
func (w *Worker) pageDimensions(ar *ocr.AnalyzeResult, pdf []byte, log *slog.Logger) []docstate.PageDimensions {
	if ar != nil && len(ar.Pages) > 0 {
		out := make([]docstate.PageDimensions, len(ar.Pages))
		for i, p := range ar.Pages {
			out[i] = docstate.PageDimensions{PageNumber: p.PageNumber, Width: p.Width, Height: p.Height}
		}
		return out
	}
	dims, err := pdfcheck.PageDimensions(pdf)
	if err != nil {
		log.Warn("no page dimensions available", "error", err)
		return []docstate.PageDimensions{}
	}
	return dims
}

// advance moves the job and its durable record to status.
func (w *Worker) advance(ctx context.Context, job *Job, status store.Status, phase string, u store.StageUpdate) error {
	job.SetStatus(status, phase)
	if err := w.repo.UpdateStatus(ctx, job.DocID, status, u); err != nil {
		return fmt.Errorf("persist %s: %w", status, err)
	}
	w.log.Info("stage transition", "doc_id", job.DocID, "status", status)
	return nil
}

// fail records a terminal failure. It persists even when ctx is already
// cancelled so the record never stays in an in-progress state.
func (w *Worker) fail(ctx context.Context, job *Job, log *slog.Logger, cause error) {
	msg := cause.Error()
	if errors.Is(cause, flatten.ErrNoStructure) {
		msg = "flattening produced no data: " + msg
	}
	log.Error("document processing failed", "error", cause)
	job.AddError(msg)
	job.SetStatus(store.StatusFailed, job.Snapshot().Phase)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.repo.UpdateStatus(persistCtx, job.DocID, store.StatusFailed, store.StageUpdate{ErrorMessage: &msg}); err != nil {
		log.Error("persist failure status", "error", err)
	}
}

// Abandon marks a job that never reached a worker as failed and removes its
// upload.
func (w *Worker) Abandon(ctx context.Context, job *Job, cause error) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	w.fail(ctx, job, log, cause)
	w.files.CleanupPDF(job.DocID)
	job.releaseFileData()
}

func (w *Worker) writeArtifact(docID, suffix string, v any, log *slog.Logger) {
	path, err := w.files.WriteOutput(docID, suffix, v)
	if err != nil {
		log.Warn("write artifact failed", "suffix", suffix, "error", err)
		return
	}
	log.Debug("wrote artifact", "path", path)
}
