package integrate

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/pkg/contracts/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	rec := domain.NewCanonicalFeatureRecord()
	rec["MEMORY_OSPAN_BEH_MATH_ACCURACY"] = 0.75
	require.NoError(t, store.Put("S001", rec))

	// One flat JSON object per subject, fixed filename.
	_, err = os.Stat(filepath.Join(dir, "S001_integrated_result.json"))
	require.NoError(t, err)

	got, err := store.Get("S001")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStore_UnknownSubject(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("S404")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStore_RejectsPathLikeSubjectIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../S001", "a/b", `a\b`} {
		_, err := store.Get(id)
		assert.Error(t, err, id)
		assert.NotErrorIs(t, err, ErrRecordNotFound, id)
	}
}

func TestStore_SubjectIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put("S002", domain.NewCanonicalFeatureRecord()))
	require.NoError(t, store.Put("S001", domain.NewCanonicalFeatureRecord()))

	ids, err := store.SubjectIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"S001", "S002"}, ids)
}

func TestStore_ConcurrentLockedUpdates(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put("S001", domain.NewCanonicalFeatureRecord()))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock("S001")
			defer unlock()

			rec, err := store.Get("S001")
			assert.NoError(t, err)
			rec["MEMORY_OSPAN_BEH_MATH_ACCURACY"]++
			assert.NoError(t, store.Put("S001", rec))
		}()
	}
	wg.Wait()

	rec, err := store.Get("S001")
	require.NoError(t, err)
	assert.Equal(t, float64(domain.Sentinel+workers), rec["MEMORY_OSPAN_BEH_MATH_ACCURACY"])
}
