package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaydev/conductor/config"
	"github.com/relaydev/conductor/events"
)

func TestMatchNote(t *testing.T) {
	trig := config.Trigger{Type: config.TriggerNote, Note: intPtr(60)}
	assert.True(t, Match(trig, events.ProcessedEvent{Kind: events.ProcPadPressed, Note: 60}))
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcPadPressed, Note: 61}))
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcPadReleased, Note: 60}))
}

func TestMatchVelocityRange(t *testing.T) {
	trig := config.Trigger{Type: config.TriggerVelocityRange, Velocity: "hard"}
	assert.True(t, Match(trig, events.ProcessedEvent{Kind: events.ProcPadPressed, Level: events.Hard}))
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcPadPressed, Level: events.Soft}))
}

func TestMatchLongPressBuckets(t *testing.T) {
	short := 150
	medium := 500
	assert.True(t, Match(config.Trigger{Type: config.TriggerLongPress, DurationMs: &short}, events.ProcessedEvent{Kind: events.ProcShortPress}))
	assert.True(t, Match(config.Trigger{Type: config.TriggerLongPress, DurationMs: &medium}, events.ProcessedEvent{Kind: events.ProcMediumPress}))
	assert.True(t, Match(config.Trigger{Type: config.TriggerLongPress}, events.ProcessedEvent{Kind: events.ProcLongPress}))
}

func TestMatchEncoderTurnDirection(t *testing.T) {
	cw := "Clockwise"
	trig := config.Trigger{Type: config.TriggerEncoderTurn, Direction: &cw}
	assert.True(t, Match(trig, events.ProcessedEvent{Kind: events.ProcEncoderTurned, Direction: events.Clockwise}))
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcEncoderTurned, Direction: events.CounterClockwise}))
}

func TestMatchCC(t *testing.T) {
	trig := config.Trigger{Type: config.TriggerCC, CC: intPtr(7)}
	assert.True(t, Match(trig, events.ProcessedEvent{Kind: events.ProcEncoderTurned, CC: 7}))
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcEncoderTurned, CC: 8}))
}

func TestMatchNoteChordIgnoresOrder(t *testing.T) {
	trig := config.Trigger{Type: config.TriggerNoteChord, Notes: []int{60, 64, 67}}
	assert.True(t, Match(trig, events.ProcessedEvent{Kind: events.ProcChordDetected, Notes: []uint8{67, 60, 64}}))
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcChordDetected, Notes: []uint8{60, 64}}))
}

func TestMatchGamepadButtonRejectsDifferentButton(t *testing.T) {
	trig := config.Trigger{Type: config.TriggerGamepadButton, Button: intPtr(1)}
	assert.False(t, Match(trig, events.ProcessedEvent{Kind: events.ProcPadPressed}))
}
