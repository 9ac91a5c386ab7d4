package midi

import (
	"context"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydev/conductor/devices/midi/miditest"
)

func TestManagerDeliversParsedEvents(t *testing.T) {
	port := miditest.NewPort("mock")
	opener := func(name string) (drivers.In, error) { return port, nil }

	m := New("mock", false, opener)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.Status() == StatusConnected }, time.Second, time.Millisecond)

	port.Inject(gomidi.NoteOn(1, 60, 100))

	select {
	case ev := <-m.Events:
		assert.Equal(t, uint8(60), ev.Note)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for parsed event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}
}

func TestManagerReconnectsWithBackoff(t *testing.T) {
	attempts := 0
	opener := func(name string) (drivers.In, error) {
		attempts++
		if attempts < 2 {
			return nil, assertErr{}
		}
		return miditest.NewPort("mock"), nil
	}

	m := New("mock", true, opener)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.Run(ctx)

	require.Eventually(t, func() bool { return attempts >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
}

type assertErr struct{}

func (assertErr) Error() string { return "mock open failure" }
