package integrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/internal/extract"
	"brainage/pkg/contracts/domain"
)

type stubExtractor struct {
	task     extract.Task
	features map[string]float64
	order    []string
	err      error
	calls    int
}

func (s *stubExtractor) Task() extract.Task { return s.task }

func (s *stubExtractor) Extract(_ context.Context, in extract.Input) (*domain.FeatureRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	rec := domain.NewFeatureRecord(in.SubjectID)
	for _, name := range s.order {
		rec.Set(name, s.features[name])
	}
	return rec, nil
}

func integratorFixture(t *testing.T, extractors ...*stubExtractor) *Integrator {
	t.Helper()
	registry := make(extract.Registry)
	dirs := make(map[extract.Task]string)
	dir := t.TempDir()
	for _, e := range extractors {
		registry[e.task] = e
		dirs[e.task] = dir
		touch(t, dir, "S001_"+string(e.task)+"_2024.csv")
	}
	// The lowercase task names only hit the locator's lowercase patterns,
	// which exist for every CSV task; that is enough for dispatch tests.
	return NewIntegrator(registry, dirs, nil)
}

func TestIntegrator_MergeKeepsFirstOccurrence(t *testing.T) {
	first := &stubExtractor{
		task:     extract.TaskExclusion,
		order:    []string{"SHARED", "A"},
		features: map[string]float64{"SHARED": 1, "A": 2},
	}
	second := &stubExtractor{
		task:     extract.TaskOspan,
		order:    []string{"SHARED", "B"},
		features: map[string]float64{"SHARED": 9, "B": 3},
	}
	g := integratorFixture(t, first, second)

	rec, err := g.ProcessSubject(context.Background(), "S001", []extract.Task{extract.TaskExclusion, extract.TaskOspan})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, []string{"SHARED", "A", "B"}, rec.Names)
	v, _ := rec.Get("SHARED")
	assert.Equal(t, 1.0, v)
}

func TestIntegrator_FailedTaskIsIsolated(t *testing.T) {
	failing := &stubExtractor{task: extract.TaskExclusion, err: errors.New("parse failure")}
	working := &stubExtractor{
		task:     extract.TaskOspan,
		order:    []string{"B"},
		features: map[string]float64{"B": 3},
	}
	g := integratorFixture(t, failing, working)

	rec, err := g.ProcessSubject(context.Background(), "S001", []extract.Task{extract.TaskExclusion, extract.TaskOspan})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
	assert.Equal(t, []string{"B"}, rec.Names)
}

func TestIntegrator_NothingProducedIsNil(t *testing.T) {
	failing := &stubExtractor{task: extract.TaskExclusion, err: extract.ErrNoFeatures}
	g := integratorFixture(t, failing)

	rec, err := g.ProcessSubject(context.Background(), "S001", []extract.Task{extract.TaskExclusion})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIntegrator_MissingRawFileSkipsTask(t *testing.T) {
	e := &stubExtractor{task: extract.TaskExclusion, order: []string{"A"}, features: map[string]float64{"A": 1}}
	registry := extract.Registry{e.task: e}
	dirs := map[extract.Task]string{e.task: t.TempDir()} // empty dir

	g := NewIntegrator(registry, dirs, nil)
	rec, err := g.ProcessSubject(context.Background(), "S001", []extract.Task{extract.TaskExclusion})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, e.calls)
}
