package midiout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/relaydev/conductor/devices/midi/miditest"
)

func TestManagerSendsQueuedMessages(t *testing.T) {
	port := miditest.NewPort("out")
	opener := func(name string) (drivers.Out, error) { return port, nil }

	m := New(opener, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.NoError(t, m.Send(ctx, "out", []byte{0x90, 60, 100}))

	require.Eventually(t, func() bool { return len(port.Sent()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0x90, 60, 100}, port.Sent()[0])
}

func TestManagerReusesOpenPortAcrossSends(t *testing.T) {
	opens := 0
	port := miditest.NewPort("out")
	opener := func(name string) (drivers.Out, error) {
		opens++
		return port, nil
	}

	m := New(opener, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.NoError(t, m.Send(ctx, "out", []byte{0x90, 60, 100}))
	require.NoError(t, m.Send(ctx, "out", []byte{0x80, 60, 0}))

	require.Eventually(t, func() bool { return len(port.Sent()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, opens)
}

func TestManagerSendReturnsErrorWhenQueueFull(t *testing.T) {
	port := miditest.NewPort("out")
	opener := func(name string) (drivers.Out, error) { return port, nil }

	m := New(opener, 0)
	// No Run goroutine draining: first Send should find the zero-depth
	// queue already full and report it, never blocking the caller.
	err := m.Send(context.Background(), "out", []byte{0x90, 60, 100})
	assert.Error(t, err)
}
