package input

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydev/conductor/events"
)

type passthroughProcessor struct{}

func (passthroughProcessor) Process(ev events.InputEvent) []events.ProcessedEvent {
	if ev.Kind == events.PadPressed {
		return []events.ProcessedEvent{{Kind: events.ProcPadPressed, Note: ev.Pad}}
	}
	return nil
}
func (passthroughProcessor) CheckHolds(time.Time) []events.ProcessedEvent { return nil }

func TestManagerMergesSourcesIntoProcessed(t *testing.T) {
	src := make(chan events.InputEvent, 1)
	m := New(passthroughProcessor{}, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	src <- events.InputEvent{Kind: events.PadPressed, Pad: 60}

	select {
	case pe := <-m.Processed:
		assert.Equal(t, uint8(60), pe.Note)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for processed event")
	}
}

func TestSubscribeReceivesEmittedEvents(t *testing.T) {
	src := make(chan events.InputEvent, 1)
	m := New(passthroughProcessor{}, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	ch, cancelSub := m.Subscribe()
	defer cancelSub()

	src <- events.InputEvent{Kind: events.PadPressed, Pad: 42}

	select {
	case pe := <-ch:
		assert.Equal(t, uint8(42), pe.Note)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	src := make(chan events.InputEvent, 1)
	m := New(passthroughProcessor{}, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	ch, cancelSub := m.Subscribe()
	cancelSub()

	src <- events.InputEvent{Kind: events.PadPressed, Pad: 1}

	select {
	case <-ch:
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
	require.Empty(t, m.subs)
}
