// Package services holds the application services the transport layer calls
// into: subject integration and scoring.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"brainage/internal/extract"
	"brainage/internal/integrate"
	"brainage/internal/jobqueue"
	"brainage/pkg/contracts/domain"
)

// Job kinds the integration service enqueues.
const (
	JobKindReprocess   = "reprocess"
	JobKindTextReading = "textreading"
)

// IntegrationService drives the extraction pipeline for one subject at a
// time and owns the background queue for the slow jobs.
type IntegrationService struct {
	integrator *integrate.Integrator
	normalizer *integrate.Normalizer
	store      *integrate.Store
	queue      *jobqueue.Queue
	projects   map[string]extract.Task
	logger     *slog.Logger

	group singleflight.Group
}

// NewIntegrationService wires the pipeline together. projects maps the
// platform's project directory names onto tasks; workers sizes the
// background queue.
func NewIntegrationService(
	integrator *integrate.Integrator,
	normalizer *integrate.Normalizer,
	store *integrate.Store,
	projects map[string]extract.Task,
	workers int,
	logger *slog.Logger,
) *IntegrationService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &IntegrationService{
		integrator: integrator,
		normalizer: normalizer,
		store:      store,
		projects:   projects,
		logger:     logger,
	}
	s.queue = jobqueue.New(workers, s.runJob, logger)
	return s
}

// Start launches the background queue.
func (s *IntegrationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Queue exposes the job queue for shutdown and status lookups.
func (s *IntegrationService) Queue() *jobqueue.Queue {
	return s.queue
}

// TaskForProject resolves a webhook project name to a task.
func (s *IntegrationService) TaskForProject(project string) (extract.Task, bool) {
	task, ok := s.projects[project]
	return task, ok
}

// IntegrateTasks runs the given tasks for a subject and folds the result
// into the persisted canonical record. Concurrent identical requests (for
// example webhook redeliveries) collapse into one run.
func (s *IntegrationService) IntegrateTasks(ctx context.Context, subjectID string, tasks []extract.Task) error {
	key := flightKey(subjectID, tasks)
	_, err, shared := s.group.Do(key, func() (any, error) {
		rec, err := s.integrator.ProcessSubject(ctx, subjectID, tasks)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			s.logger.InfoContext(ctx, "no features produced",
				"subject_id", subjectID,
				"tasks", len(tasks),
			)
			return nil, nil
		}
		if _, err := s.normalizer.Update(subjectID, rec); err != nil {
			return nil, fmt.Errorf("normalize %s: %w", subjectID, err)
		}
		return nil, nil
	})
	if shared {
		s.logger.DebugContext(ctx, "integration request collapsed", "subject_id", subjectID)
	}
	return err
}

// Reprocess re-runs every task for the subject from the local raw files.
func (s *IntegrationService) Reprocess(ctx context.Context, subjectID string) error {
	return s.IntegrateTasks(ctx, subjectID, allTasks())
}

// EnqueueReprocess queues a full reprocess in the background.
func (s *IntegrationService) EnqueueReprocess(subjectID string) (*jobqueue.Job, error) {
	return s.queue.Enqueue(JobKindReprocess, subjectID)
}

// EnqueueTextReading queues the transcription-heavy reading task in the
// background, keeping webhook handling fast.
func (s *IntegrationService) EnqueueTextReading(subjectID string) (*jobqueue.Job, error) {
	return s.queue.Enqueue(JobKindTextReading, subjectID)
}

// GetIntegratedResult loads the subject's persisted canonical record.
func (s *IntegrationService) GetIntegratedResult(subjectID string) (domain.CanonicalFeatureRecord, error) {
	return s.store.Get(subjectID)
}

func (s *IntegrationService) runJob(ctx context.Context, job *jobqueue.Job) error {
	switch job.Kind {
	case JobKindReprocess:
		return s.Reprocess(ctx, job.SubjectID)
	case JobKindTextReading:
		return s.IntegrateTasks(ctx, job.SubjectID, []extract.Task{extract.TaskTextReading})
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func allTasks() []extract.Task {
	return []extract.Task{
		extract.TaskExclusion,
		extract.TaskOspan,
		extract.TaskSpeechComp,
		extract.TaskGoFitts,
		extract.TaskTextReading,
	}
}

func flightKey(subjectID string, tasks []extract.Task) string {
	parts := make([]string, 0, len(tasks)+1)
	parts = append(parts, subjectID)
	for _, t := range tasks {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, "|")
}
