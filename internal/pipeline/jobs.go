package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obaidtambo/doc-struct/internal/store"
)

// Job tracks one document's pass through the pipeline while it is in
// memory. The durable record lives in the store.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`

	Status store.Status `json:"status"`
	Phase  string       `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Pages        int      `json:"pages"`
	Sections     int      `json:"sections"`
	OCRCached    bool     `json:"ocr_cached"`
	Checks       int      `json:"checks"`
	Corrections  int      `json:"corrections"`
	Inconclusive int      `json:"inconclusive"`
	Paragraphs   int      `json:"paragraphs"`
	Errors       []string `json:"errors"`
}

// NewJob creates a job for an uploaded document.
func NewJob(docID, filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		DocID:       docID,
		Filename:    filename,
		Status:      store.StatusUploaded,
		Phase:       "queued",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// ByDocument returns the most recent job for a document id.
func (s *JobStore) ByDocument(docID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *Job
	for _, j := range s.jobs {
		if j.DocID == docID && (found == nil || j.CreatedAt.After(found.CreatedAt)) {
			found = j
		}
	}
	return found
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status store.Status, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetOCR records what the OCR stage produced.
func (j *Job) SetOCR(pages, sections int, cached bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Pages = pages
	j.Progress.Sections = sections
	j.Progress.OCRCached = cached
	j.UpdatedAt = time.Now()
}

// SetCorrection records the correction stage's counts.
func (j *Job) SetCorrection(checks, corrections, inconclusive int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Checks = checks
	j.Progress.Corrections = corrections
	j.Progress.Inconclusive = inconclusive
	j.UpdatedAt = time.Now()
}

// SetParagraphs records the flattened paragraph count.
func (j *Job) SetParagraphs(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Paragraphs = n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once the pipeline no longer needs it.
func (j *Job) releaseFileData() {
	j.SetFileData(nil)
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string       `json:"job_id"`
	DocID       string       `json:"doc_id"`
	Status      store.Status `json:"status"`
	Phase       string       `json:"phase"`
	Filename    string       `json:"filename"`
	ContentHash string       `json:"content_hash,omitempty"`
	Progress    Progress     `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress:    p,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
