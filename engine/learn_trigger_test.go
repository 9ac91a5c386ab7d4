package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydev/conductor/config"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/events"
	"github.com/relaydev/conductor/input"
)

func intPtr(v int) *int { return &v }

func testConfig() config.Config {
	return config.Config{
		Device:   config.Device{Name: "Launchpad X"},
		Advanced: config.DefaultAdvancedSettings(),
		Global: []config.Mapping{
			{
				Trigger: config.Trigger{Type: config.TriggerNote, Note: intPtr(60)},
				Action:  config.Action{Type: config.ActionLaunch, App: "Ableton Live"},
			},
		},
	}
}

type holdlessProcessor struct{}

func (holdlessProcessor) Process(ev events.InputEvent) []events.ProcessedEvent {
	if ev.Kind == events.PadPressed {
		return []events.ProcessedEvent{{Kind: events.ProcPadPressed, Note: ev.Pad}}
	}
	return nil
}
func (holdlessProcessor) CheckHolds(time.Time) []events.ProcessedEvent { return nil }

func TestLearnTriggerReturnsNextGesture(t *testing.T) {
	mgr, err := New("", testConfig(), nil, nil, nil)
	require.NoError(t, err)

	src := make(chan events.InputEvent, 1)
	im := input.New(holdlessProcessor{}, src)
	mgr.SetInputManager(im)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go im.Run(ctx)

	go func() {
		time.Sleep(10 * time.Millisecond)
		src <- events.InputEvent{Kind: events.PadPressed, Pad: 44}
	}()

	ev, err := mgr.LearnTrigger(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint8(44), ev.Note)
}

func TestLearnTriggerTimesOut(t *testing.T) {
	mgr, err := New("", testConfig(), nil, nil, nil)
	require.NoError(t, err)

	src := make(chan events.InputEvent, 1)
	im := input.New(holdlessProcessor{}, src)
	mgr.SetInputManager(im)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go im.Run(ctx)

	_, err = mgr.LearnTrigger(context.Background(), 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindIO))
}

func TestLearnTriggerWithoutInputManagerFails(t *testing.T) {
	mgr, err := New("", testConfig(), nil, nil, nil)
	require.NoError(t, err)

	_, err = mgr.LearnTrigger(context.Background(), 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotImplemented))
}
