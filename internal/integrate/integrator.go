package integrate

import (
	"context"
	"errors"
	"log/slog"

	"brainage/internal/extract"
	"brainage/internal/infrastructure"
	"brainage/pkg/contracts/domain"
)

// Integrator runs the per-task extractors for one subject and merges their
// records. Failures are isolated per task: a task that cannot be located or
// extracted is logged and skipped, and the remaining tasks still run.
type Integrator struct {
	registry extract.Registry
	locator  Locator
	dirs     map[extract.Task]string
	logger   *slog.Logger
}

// NewIntegrator creates an integrator over the extractor registry. dirs maps
// each task to its raw-data directory.
func NewIntegrator(registry extract.Registry, dirs map[extract.Task]string, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{
		registry: registry,
		dirs:     dirs,
		logger:   logger,
	}
}

// ProcessSubject extracts the requested tasks for one subject and returns
// the column-union merge of every record produced, keeping the first
// occurrence of a duplicated name. It returns nil when no task produced a
// record.
func (g *Integrator) ProcessSubject(ctx context.Context, subjectID string, tasks []extract.Task) (*domain.FeatureRecord, error) {
	merged := domain.NewFeatureRecord(subjectID)

	produced := 0
	for _, task := range tasks {
		rec, err := g.processTask(ctx, subjectID, task)
		if err != nil {
			level := slog.LevelWarn
			outcome := "failed"
			if errors.Is(err, ErrNoRawFile) || errors.Is(err, extract.ErrNoFeatures) {
				level = slog.LevelInfo
				outcome = "skipped"
			}
			infrastructure.IntegrationRuns.WithLabelValues(string(task), outcome).Inc()
			g.logger.Log(ctx, level, "task extraction skipped",
				"subject_id", subjectID,
				"task", string(task),
				"error", err.Error(),
			)
			continue
		}
		infrastructure.IntegrationRuns.WithLabelValues(string(task), "ok").Inc()
		produced++
		for _, name := range rec.Names {
			if _, exists := merged.Get(name); exists {
				continue
			}
			merged.Set(name, rec.Values[name])
		}
	}

	if produced == 0 {
		return nil, nil
	}

	g.logger.InfoContext(ctx, "subject integrated",
		"subject_id", subjectID,
		"tasks_requested", len(tasks),
		"tasks_produced", produced,
		"features", merged.Len(),
	)
	return merged, nil
}

func (g *Integrator) processTask(ctx context.Context, subjectID string, task extract.Task) (*domain.FeatureRecord, error) {
	extractor, ok := g.registry.Lookup(task)
	if !ok {
		return nil, errors.New("no extractor registered")
	}
	dataDir := g.dirs[task]

	in := extract.Input{SubjectID: subjectID, DataDir: dataDir}
	path, err := g.locator.Locate(task, dataDir, subjectID)
	if err != nil {
		// The reading task scans its data directory itself; a missing
		// locator match only matters for file-based tasks.
		if task != extract.TaskTextReading {
			return nil, err
		}
	} else {
		in.Path = path
	}

	return extractor.Extract(ctx, in)
}
