package extract

import (
	"context"
	"errors"

	"brainage/pkg/contracts/domain"
)

// Task identifies one of the five behavioral tasks the pipeline knows about.
type Task string

const (
	TaskExclusion   Task = "exclusion"
	TaskOspan       Task = "ospan"
	TaskSpeechComp  Task = "speechcomp"
	TaskGoFitts     Task = "gofitts"
	TaskTextReading Task = "textreading"
)

// ErrNoFeatures is returned when a task's raw data exists but yields no
// usable features (for example, no valid transcriptions). The integrator
// skips the task without failing the subject.
var ErrNoFeatures = errors.New("no features extracted")

// Input addresses the raw data an extractor works on. Path is the selected
// raw file for file-based tasks; DataDir is the task's data directory, used
// by the text-reading extractor to collect every recording of the subject.
type Input struct {
	SubjectID string
	Path      string
	DataDir   string
}

// Extractor maps one task's raw trial log onto a flat record of named
// numeric features for one subject.
type Extractor interface {
	Task() Task
	Extract(ctx context.Context, in Input) (*domain.FeatureRecord, error)
}

// Registry is the static task-to-extractor mapping. Extractors are selected
// through this table, never by branching on task-name strings in pipeline
// code.
type Registry map[Task]Extractor

// NewRegistry builds the registry over the five extractors.
func NewRegistry(exclusion, ospan, speechcomp, gofitts, textreading Extractor) Registry {
	return Registry{
		TaskExclusion:   exclusion,
		TaskOspan:       ospan,
		TaskSpeechComp:  speechcomp,
		TaskGoFitts:     gofitts,
		TaskTextReading: textreading,
	}
}

// Lookup returns the extractor registered for the task.
func (r Registry) Lookup(task Task) (Extractor, bool) {
	e, ok := r[task]
	return e, ok
}
