package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/obaidtambo/doc-struct/internal/config"
	"github.com/obaidtambo/doc-struct/internal/store"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("pipeline stopped")
)

// Orchestrator runs document pipelines on a fixed pool of workers.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    config.Config

	mu       sync.Mutex
	closed   bool
	stopOnce sync.Once

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start before submitting.
func NewOrchestrator(cfg config.Config, worker *Worker, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: worker,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					// Failures are recorded on the job and in the store.
					_ = o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels in-flight pipelines and waits for the workers to exit. Jobs
// still queued are marked failed. Calling Stop again is a no-op.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		o.mu.Lock()
		o.closed = true
		close(o.queue)
		o.mu.Unlock()
		o.wg.Wait()

		for job := range o.queue {
			o.worker.Abandon(context.Background(), job, errors.New("server shutting down"))
		}
	})
}

// Submit queues a new job for processing. A full or stopped queue fails the
// job immediately.
func (o *Orchestrator) Submit(ctx context.Context, job *Job) error {
	o.jobs.Put(job)
	err := o.enqueue(job)
	if err != nil {
		o.worker.Abandon(ctx, job, err)
		return err
	}
	o.log.Info("job queued", "job_id", job.ID, "doc_id", job.DocID, "queue_depth", len(o.queue))
	return nil
}

func (o *Orchestrator) enqueue(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrStopped
	}
	select {
	case o.queue <- job:
		return nil
	default:
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// JobForDocument returns the latest in-memory job for a document.
func (o *Orchestrator) JobForDocument(docID string) *Job {
	return o.jobs.ByDocument(docID)
}

// Status summarizes the pool for health checks.
type Status struct {
	Workers    int `json:"workers"`
	QueueDepth int `json:"queue_depth"`
	QueueSize  int `json:"queue_size"`
	Jobs       int `json:"jobs"`
}

func (o *Orchestrator) Status() Status {
	return Status{
		Workers:    o.cfg.WorkerCount,
		QueueDepth: len(o.queue),
		QueueSize:  cap(o.queue),
		Jobs:       o.jobs.Len(),
	}
}

// ensure the store satisfies the pipeline's persistence needs.
var _ Repository = (*store.Store)(nil)
