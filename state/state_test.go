package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithMissingFileStartsEmpty(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.Equal(t, "", m.CurrentMode())
}

func TestSetCurrentModePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	m, err := New(path)
	require.NoError(t, err)
	require.NoError(t, m.SetCurrentMode("performance", 2))

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, "performance", reloaded.CurrentMode())
}

func TestRecordPluginExecutionAveragesDuration(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	require.NoError(t, m.RecordPluginExecution("obs", 10, false))
	require.NoError(t, m.RecordPluginExecution("obs", 30, true))

	stats := m.PluginStatsFor("obs")
	assert.Equal(t, uint64(2), stats.Invocations)
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, float64(20), stats.AvgDurationMs)
}

func TestRecordReloadGrading(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	cases := []struct {
		d     time.Duration
		grade string
	}{
		{10 * time.Millisecond, "Good"},
		{100 * time.Millisecond, "Fair"},
		{500 * time.Millisecond, "Poor"},
	}
	for _, c := range cases {
		require.NoError(t, m.RecordReload(c.d, time.Now()))
		assert.Equal(t, c.grade, m.st.LastReload.Grade)
	}
}
