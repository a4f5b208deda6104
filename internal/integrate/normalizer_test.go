package integrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/pkg/contracts/domain"
)

func normalizerFixture(t *testing.T) (*Normalizer, *Store) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return NewNormalizer(store, nil), store
}

func record(subjectID string, pairs ...any) *domain.FeatureRecord {
	rec := domain.NewFeatureRecord(subjectID)
	for i := 0; i < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1].(float64))
	}
	return rec
}

func TestNormalizer_InitializesFullSchema(t *testing.T) {
	n, _ := normalizerFixture(t)

	out, err := n.Update("S001", record("S001", "MEMORY_OSPAN_BEH_MATH_ACCURACY", 0.75))
	require.NoError(t, err)

	assert.Len(t, out, len(domain.PlatformFeatures))
	assert.Equal(t, 0.75, out["MEMORY_OSPAN_BEH_MATH_ACCURACY"])
	assert.Equal(t, float64(domain.Sentinel), out["MEMORY_OSPAN_BEH_LETTER_ACCURACY"])
}

func TestNormalizer_RenamesRawNames(t *testing.T) {
	n, _ := normalizerFixture(t)

	out, err := n.Update("S001", record("S001",
		"GOFITTS_BEH_ID0_LeaveTime", 250.0,
		"GOFITTS_BEH_SLOPE_PointTime", 12.5,
		"SPEECHCOMP_PASSIVE_ACCURACY", 66.67,
	))
	require.NoError(t, err)

	// Sequence numbering shifts from 0-based to 1-based.
	assert.Equal(t, 250.0, out["MOTOR_GOFITTS_BEH_ID1_LeaveTime"])
	assert.Equal(t, 12.5, out["MOTOR_GOFITTS_BEH_SLOPE_PointTime"])
	assert.Equal(t, 66.67, out["LANGUAGE_SPEECHCOMP_BEH_PASSIVE_ACCURACY"])
}

func TestNormalizer_DropsNonSchemaNames(t *testing.T) {
	n, _ := normalizerFixture(t)

	out, err := n.Update("S001", record("S001",
		"GOFITTS_BEH_ID0_Throughput", 4.0, // renames off-schema, dropped
		"MEMORY_EXCLUSION_BEH_C1TarHit_RT", 0.3, // computed but off-schema
		"SOME_UNKNOWN_FEATURE", 1.0,
	))
	require.NoError(t, err)

	assert.NotContains(t, out, "GOFITTS_BEH_ID0_Throughput")
	assert.NotContains(t, out, "MOTOR_GOFITTS_BEH_ID1_Throughput")
	assert.NotContains(t, out, "MEMORY_EXCLUSION_BEH_C1TarHit_RT")
	assert.NotContains(t, out, "SOME_UNKNOWN_FEATURE")
	assert.Len(t, out, len(domain.PlatformFeatures))
}

func TestNormalizer_SentinelNeverRegresses(t *testing.T) {
	n, _ := normalizerFixture(t)

	_, err := n.Update("S001", record("S001", "MEMORY_OSPAN_BEH_MATH_ACCURACY", 0.75))
	require.NoError(t, err)

	// A fresh sentinel (here via NaN sanitization) must not erase the value.
	out, err := n.Update("S001", record("S001", "MEMORY_OSPAN_BEH_MATH_ACCURACY", math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, 0.75, out["MEMORY_OSPAN_BEH_MATH_ACCURACY"])

	// A fresh real value overwrites.
	out, err = n.Update("S001", record("S001", "MEMORY_OSPAN_BEH_MATH_ACCURACY", 0.9))
	require.NoError(t, err)
	assert.Equal(t, 0.9, out["MEMORY_OSPAN_BEH_MATH_ACCURACY"])
}

func TestNormalizer_SanitizesNonFinite(t *testing.T) {
	n, _ := normalizerFixture(t)

	out, err := n.Update("S001", record("S001",
		"LANGUAGE_SPEECHCOMP_BEH_PASSIVE_RT", math.Inf(1),
	))
	require.NoError(t, err)
	assert.Equal(t, float64(domain.Sentinel), out["LANGUAGE_SPEECHCOMP_BEH_PASSIVE_RT"])
}

func TestNormalizer_UpdateIsIdempotent(t *testing.T) {
	n, store := normalizerFixture(t)
	incoming := record("S001", "MEMORY_OSPAN_BEH_MATH_ACCURACY", 0.75)

	first, err := n.Update("S001", incoming)
	require.NoError(t, err)
	second, err := n.Update("S001", incoming)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	persisted, err := store.Get("S001")
	require.NoError(t, err)
	assert.Equal(t, second, persisted)
}
