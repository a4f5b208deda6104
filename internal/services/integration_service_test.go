package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/internal/extract"
	"brainage/internal/integrate"
	"brainage/pkg/contracts/domain"
)

type stubExtractor struct {
	task     extract.Task
	features map[string]float64
}

func (s *stubExtractor) Task() extract.Task { return s.task }

func (s *stubExtractor) Extract(_ context.Context, in extract.Input) (*domain.FeatureRecord, error) {
	rec := domain.NewFeatureRecord(in.SubjectID)
	for name, v := range s.features {
		rec.Set(name, v)
	}
	return rec, nil
}

func serviceFixture(t *testing.T) (*IntegrationService, *integrate.Store) {
	t.Helper()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "S001_ospan_2024.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "S001_exclusion_2024.csv"), []byte("x"), 0o644))

	registry := extract.Registry{
		extract.TaskOspan: &stubExtractor{
			task:     extract.TaskOspan,
			features: map[string]float64{"MEMORY_OSPAN_BEH_LETTER_ACCURACY": 30},
		},
		extract.TaskExclusion: &stubExtractor{
			task:     extract.TaskExclusion,
			features: map[string]float64{"MEMORY_EXCLUSION_BEH_C1_RECOLLECTION": 0.5},
		},
	}
	dirs := map[extract.Task]string{
		extract.TaskOspan:     dataDir,
		extract.TaskExclusion: dataDir,
	}

	store, err := integrate.NewStore(t.TempDir())
	require.NoError(t, err)

	svc := NewIntegrationService(
		integrate.NewIntegrator(registry, dirs, nil),
		integrate.NewNormalizer(store, nil),
		store,
		map[string]extract.Task{"OspanTask": extract.TaskOspan},
		1,
		nil,
	)
	return svc, store
}

func TestIntegrationService_IntegrateTasksPersists(t *testing.T) {
	svc, store := serviceFixture(t)

	err := svc.IntegrateTasks(context.Background(), "S001", []extract.Task{extract.TaskOspan})
	require.NoError(t, err)

	rec, err := store.Get("S001")
	require.NoError(t, err)
	assert.Equal(t, 30.0, rec["MEMORY_OSPAN_BEH_LETTER_ACCURACY"])
	assert.Equal(t, float64(domain.Sentinel), rec["MEMORY_EXCLUSION_BEH_C1_RECOLLECTION"])
}

func TestIntegrationService_UnknownSubjectProducesNothing(t *testing.T) {
	svc, store := serviceFixture(t)

	err := svc.IntegrateTasks(context.Background(), "S999", []extract.Task{extract.TaskOspan})
	require.NoError(t, err)

	_, err = store.Get("S999")
	assert.ErrorIs(t, err, integrate.ErrRecordNotFound)
}

func TestIntegrationService_TaskForProject(t *testing.T) {
	svc, _ := serviceFixture(t)

	task, ok := svc.TaskForProject("OspanTask")
	require.True(t, ok)
	assert.Equal(t, extract.TaskOspan, task)

	_, ok = svc.TaskForProject("UnknownProject")
	assert.False(t, ok)
}

func TestIntegrationService_BackgroundReprocess(t *testing.T) {
	svc, store := serviceFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Queue().Stop(time.Second)

	job, err := svc.EnqueueReprocess("S001")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := store.Get("S001")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	got, ok := svc.Queue().GetJob(job.ID)
	require.True(t, ok)
	assert.Equal(t, "S001", got.SubjectID)
}
