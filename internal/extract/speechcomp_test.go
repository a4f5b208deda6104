package extract

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechCompExtractor(t *testing.T) {
	header := []string{"condition", "stim_resp.corr", "duration"}
	rows := [][]string{
		{"passive_long", "1", "2.0"},
		{"passive_short", "0", "3.0"},
		{"passive_long", "1", "4.0"},
		{"active_long", "1", "9.0"}, // not passive, ignored
	}
	path := writeTrialCSV(t, t.TempDir(), "S001_SpeechComp_1.csv", header, rows)

	rec, err := NewSpeechCompExtractor(nil).Extract(context.Background(), Input{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "S001", rec.SubjectID)

	acc, ok := rec.Get("SPEECHCOMP_PASSIVE_ACCURACY")
	require.True(t, ok)
	assert.InDelta(t, 200.0/3.0, acc, 1e-9)

	rt, ok := rec.Get("SPEECHCOMP_PASSIVE_RT")
	require.True(t, ok)
	assert.InDelta(t, 3.0, rt, 1e-9) // mean duration over correct passive trials
}

func TestSpeechCompExtractor_NoPassiveTrials(t *testing.T) {
	header := []string{"condition", "stim_resp.corr", "duration"}
	rows := [][]string{
		{"active_long", "1", "2.0"},
		{"Passive_long", "1", "2.0"}, // condition match is case-sensitive
	}
	path := writeTrialCSV(t, t.TempDir(), "S001_SpeechComp_1.csv", header, rows)

	rec, err := NewSpeechCompExtractor(nil).Extract(context.Background(), Input{Path: path})
	require.NoError(t, err)

	acc, ok := rec.Get("SPEECHCOMP_PASSIVE_ACCURACY")
	require.True(t, ok)
	assert.True(t, math.IsNaN(acc))

	rt, ok := rec.Get("SPEECHCOMP_PASSIVE_RT")
	require.True(t, ok)
	assert.True(t, math.IsNaN(rt))
}

func TestSpeechCompExtractor_NoCorrectPassiveTrials(t *testing.T) {
	header := []string{"condition", "stim_resp.corr", "duration"}
	rows := [][]string{
		{"passive_long", "0", "2.0"},
	}
	path := writeTrialCSV(t, t.TempDir(), "S001_SpeechComp_1.csv", header, rows)

	rec, err := NewSpeechCompExtractor(nil).Extract(context.Background(), Input{Path: path})
	require.NoError(t, err)

	acc, _ := rec.Get("SPEECHCOMP_PASSIVE_ACCURACY")
	assert.Zero(t, acc)

	rt, _ := rec.Get("SPEECHCOMP_PASSIVE_RT")
	assert.True(t, math.IsNaN(rt))
}
