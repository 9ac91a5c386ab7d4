package events

import (
	"fmt"
	"time"

	"github.com/relaydev/conductor/errs"
)

const opParseMIDI = "events.ParseMIDI"

// ParseMIDI turns a raw MIDI byte slice (status byte plus its data bytes, as
// delivered by a driver callback) into a unified InputEvent, timestamped with
// the monotonic instant the call observes (spec §4.1).
//
// NoteOn with velocity 0 is reported as PadReleased, matching the long-
// standing MIDI convention that many controllers use instead of a real
// Note Off. System messages (status 0xF0 and above) return a KindUnsupported
// error; anything too short to contain its required data bytes returns a
// KindParse error.
func ParseMIDI(data []byte) (InputEvent, error) {
	now := time.Now()
	if len(data) == 0 {
		return InputEvent{}, errs.New(errs.KindParse, opParseMIDI, "empty message")
	}

	status := data[0]
	if status >= 0xF0 {
		return InputEvent{}, errs.New(errs.KindUnsupported, opParseMIDI, fmt.Sprintf("system message 0x%02x not supported", status))
	}

	msgType := status & 0xF0
	channel := status & 0x0F

	need := func(n int) error {
		if len(data) < n+1 {
			return errs.New(errs.KindParse, opParseMIDI, "truncated message")
		}
		return nil
	}

	switch msgType {
	case 0x80: // Note off
		if err := need(2); err != nil {
			return InputEvent{}, err
		}
		return InputEvent{Kind: PadReleased, Pad: data[1], Channel: channel, Time: now}, nil

	case 0x90: // Note on
		if err := need(2); err != nil {
			return InputEvent{}, err
		}
		velocity := data[2]
		if velocity == 0 {
			return InputEvent{Kind: PadReleased, Pad: data[1], Channel: channel, Time: now}, nil
		}
		return InputEvent{Kind: PadPressed, Pad: data[1], Velocity: velocity, Channel: channel, Time: now}, nil

	case 0xA0: // Polyphonic key pressure
		if err := need(2); err != nil {
			return InputEvent{}, err
		}
		return InputEvent{Kind: PolyPressure, Pad: data[1], Pressure: data[2], Channel: channel, Time: now}, nil

	case 0xB0: // Control change
		if err := need(2); err != nil {
			return InputEvent{}, err
		}
		return InputEvent{Kind: ControlChange, Encoder: data[1], Value: int32(data[2]), Channel: channel, Time: now}, nil

	case 0xC0: // Program change
		if err := need(1); err != nil {
			return InputEvent{}, err
		}
		return InputEvent{Kind: ProgramChange, Value: int32(data[1]), Channel: channel, Time: now}, nil

	case 0xD0: // Channel aftertouch
		if err := need(1); err != nil {
			return InputEvent{}, err
		}
		return InputEvent{Kind: Aftertouch, Pressure: data[1], Channel: channel, Time: now}, nil

	case 0xE0: // Pitch bend
		if err := need(2); err != nil {
			return InputEvent{}, err
		}
		value := int32(data[1]) | int32(data[2])<<7
		return InputEvent{Kind: PitchBend, Value: value, Channel: channel, Time: now}, nil

	default:
		return InputEvent{}, errs.New(errs.KindParse, opParseMIDI, fmt.Sprintf("unrecognized status byte 0x%02x", status))
	}
}
