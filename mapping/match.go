package mapping

import (
	"github.com/relaydev/conductor/config"
	"github.com/relaydev/conductor/events"
)

// Match reports whether a processed gesture event satisfies trig (spec
// §4.5). Channel, when present on the trigger, is not currently carried by
// ProcessedEvent (the channel dimension lives on the raw InputEvent) and so
// is ignored here; the Mapping Engine's caller is expected to pre-filter by
// channel at the InputEvent layer if a deployment needs that distinction.
func Match(trig config.Trigger, ev events.ProcessedEvent) bool {
	switch trig.Type {
	case config.TriggerNote:
		return ev.Kind == events.ProcPadPressed && trig.Note != nil && int(ev.Note) == *trig.Note

	case config.TriggerVelocityRange:
		if ev.Kind != events.ProcPadPressed {
			return false
		}
		return matchVelocity(trig.Velocity, ev.Level)

	case config.TriggerLongPress:
		switch {
		case trig.DurationMs == nil:
			return ev.Kind == events.ProcLongPress
		case *trig.DurationMs <= 200:
			return ev.Kind == events.ProcShortPress
		case *trig.DurationMs < 1000:
			return ev.Kind == events.ProcMediumPress
		default:
			return ev.Kind == events.ProcLongPress
		}

	case config.TriggerDoubleTap:
		return ev.Kind == events.ProcDoubleTap && (trig.Note == nil || int(ev.Note) == *trig.Note)

	case config.TriggerNoteChord:
		return ev.Kind == events.ProcChordDetected && sameNotes(trig.Notes, ev.Notes)

	case config.TriggerEncoderTurn:
		if ev.Kind != events.ProcEncoderTurned {
			return false
		}
		if trig.CC != nil && int(ev.CC) != *trig.CC {
			return false
		}
		if trig.Direction != nil && ev.Direction.String() != *trig.Direction {
			return false
		}
		return true

	case config.TriggerAftertouch:
		if ev.Kind != events.ProcAftertouchChanged {
			return false
		}
		return trig.PressureMin == nil || int(ev.Pressure) >= *trig.PressureMin

	case config.TriggerPitchBend:
		if ev.Kind != events.ProcPitchBendMoved {
			return false
		}
		if trig.ValueMin != nil && ev.Value < int32(*trig.ValueMin) {
			return false
		}
		if trig.ValueMax != nil && ev.Value > int32(*trig.ValueMax) {
			return false
		}
		return true

	case config.TriggerCC:
		return ev.Kind == events.ProcEncoderTurned && trig.CC != nil && *trig.CC == int(ev.CC)

	case config.TriggerGamepadButton:
		// HID gamepad buttons reuse the MIDI-note Pad pipeline: the HID
		// Device Manager offsets each SDL button index into the 128-255
		// range (spec §3/§4.7) before it ever reaches the Event Processor.
		return ev.Kind == events.ProcPadPressed && trig.Button != nil && int(ev.Note) == *trig.Button

	case config.TriggerGamepadButtonChord:
		return ev.Kind == events.ProcChordDetected && sameNotes(trig.Notes, ev.Notes)

	case config.TriggerGamepadAnalogStick:
		// HID analog sticks reuse the CC-based Encoder pipeline: the HID
		// Device Manager offsets SDL stick axis indices into 128..131
		// (spec §3/§4.7).
		if ev.Kind != events.ProcEncoderTurned || trig.Axis == nil || *trig.Axis != int(ev.CC) {
			return false
		}
		return trig.Direction == nil || ev.Direction.String() == *trig.Direction

	case config.TriggerGamepadTrigger:
		// HID analog triggers offset SDL trigger axis indices into 132..133
		// and share the same CC-based Encoder pipeline.
		if ev.Kind != events.ProcEncoderTurned || trig.TriggerNum == nil || *trig.TriggerNum != int(ev.CC) {
			return false
		}
		return trig.Threshold == nil || ev.Value >= int32(*trig.Threshold)

	default:
		return false
	}
}

func matchVelocity(want string, level events.VelocityLevel) bool {
	switch want {
	case "soft":
		return level == events.Soft
	case "medium":
		return level == events.Medium
	case "hard":
		return level == events.Hard
	default:
		return false
	}
}

func sameNotes(want []int, got []uint8) bool {
	if len(want) != len(got) {
		return false
	}
	seen := make(map[int]bool, len(want))
	for _, n := range want {
		seen[n] = true
	}
	for _, n := range got {
		if !seen[int(n)] {
			return false
		}
	}
	return true
}
