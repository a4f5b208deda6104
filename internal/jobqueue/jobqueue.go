// Package jobqueue runs background pipeline jobs: subject reprocessing and
// transcription-heavy text-reading integration, which are too slow to run
// inside a webhook request.
package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one queued unit of pipeline work.
type Job struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	SubjectID   string     `json:"subject_id"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Handler executes one job.
type Handler func(ctx context.Context, job *Job) error

// Queue is a bounded in-memory worker pool. Jobs are kept in memory for
// status lookups; there is no persistence, a restart drops pending work.
type Queue struct {
	jobs     chan *Job
	workers  int
	handler  Handler
	logger   *slog.Logger
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu      sync.RWMutex
	records map[string]*Job
}

// New creates a queue with the given worker count and job handler.
func New(workers int, handler Handler, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:     make(chan *Job, workers*4),
		workers:  workers,
		handler:  handler,
		logger:   logger.With(slog.String("component", "jobqueue")),
		shutdown: make(chan struct{}),
		records:  make(map[string]*Job),
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("starting job queue", slog.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop shuts the queue down, waiting up to timeout for in-flight jobs.
func (q *Queue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")
	close(q.shutdown)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.drainPending()
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.drainPending()
		q.logger.Warn("job queue stop timeout exceeded")
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// drainPending fails jobs still buffered after the workers stop, so status
// lookups stay truthful instead of reporting pending forever.
func (q *Queue) drainPending() {
	for {
		select {
		case job := <-q.jobs:
			q.setOutcome(job, StatusFailed, "canceled: job queue stopped")
		default:
			return
		}
	}
}

// Enqueue queues a new job and returns it. A full queue fails fast instead
// of blocking the caller.
func (q *Queue) Enqueue(kind, subjectID string) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		SubjectID: subjectID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.records[job.ID] = job
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("kind", kind),
			slog.String("subject_id", subjectID))
		return q.snapshot(job), nil
	default:
		q.setOutcome(job, StatusFailed, "job queue is full")
		return nil, fmt.Errorf("job queue is full")
	}
}

// GetJob returns a snapshot of a job by ID. Workers keep mutating the stored
// record, so callers never see the shared pointer.
func (q *Queue) GetJob(id string) (*Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.records[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// snapshot copies a job under the lock.
func (q *Queue) snapshot(job *Job) *Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	copied := *job
	return &copied
}

// Stats reports queue utilization.
func (q *Queue) Stats() map[string]any {
	q.mu.RLock()
	tracked := len(q.records)
	q.mu.RUnlock()

	return map[string]any{
		"workers":    q.workers,
		"queue_size": len(q.jobs),
		"queue_cap":  cap(q.jobs),
		"tracked":    tracked,
	}
}

func (q *Queue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.process(ctx, job, logger)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *Job, logger *slog.Logger) {
	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("kind", job.Kind),
		slog.String("subject_id", job.SubjectID),
	)
	logger.Info("processing job started")

	now := time.Now()
	q.mu.Lock()
	job.Status = StatusRunning
	job.StartedAt = &now
	q.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job processing panicked", slog.Any("panic", r))
			q.setOutcome(job, StatusFailed, fmt.Sprintf("job panicked: %v", r))
		}
	}()

	if err := q.handler(ctx, job); err != nil {
		logger.Error("job failed", slog.String("error", err.Error()))
		q.setOutcome(job, StatusFailed, err.Error())
		return
	}

	q.setOutcome(job, StatusCompleted, "")
	logger.Info("processing job completed")
}

func (q *Queue) setOutcome(job *Job, status Status, errMsg string) {
	now := time.Now()
	q.mu.Lock()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
	q.mu.Unlock()
}
