package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleHappyPath(t *testing.T) {
	l := newLifecycle()
	assert.Equal(t, StateInit, l.current())

	require.NoError(t, l.transition(StateStarting))
	require.NoError(t, l.transition(StateRunning))
	require.NoError(t, l.transition(StateReloading))
	require.NoError(t, l.transition(StateRunning))
	require.NoError(t, l.transition(StateStopping))
	require.NoError(t, l.transition(StateStopped))
}

func TestLifecycleRejectsInvalidTransition(t *testing.T) {
	l := newLifecycle()
	err := l.transition(StateRunning)
	assert.Error(t, err)
	assert.Equal(t, StateInit, l.current())
}

func TestLifecycleStoppedIsTerminal(t *testing.T) {
	l := newLifecycle()
	require.NoError(t, l.transition(StateStarting))
	require.NoError(t, l.transition(StateRunning))
	require.NoError(t, l.transition(StateStopping))
	require.NoError(t, l.transition(StateStopped))

	assert.Error(t, l.transition(StateRunning))
	assert.Error(t, l.transition(StateStarting))
}

func TestLifecycleDegradedReconnectPath(t *testing.T) {
	l := newLifecycle()
	require.NoError(t, l.transition(StateStarting))
	require.NoError(t, l.transition(StateRunning))
	require.NoError(t, l.transition(StateDegraded))
	require.NoError(t, l.transition(StateReconnecting))
	require.NoError(t, l.transition(StateRunning))
}
