// Package events defines the unified input event model (spec §4.1/§3) that
// the MIDI and HID device managers convert their native protocols into, and
// the higher-level ProcessedEvent gestures the event processor (§4.2) emits
// from them. Kept as tagged structs rather than an interface hierarchy, in
// the spirit of gomidi's own Message type: a dense switch on Kind replaces
// type assertions on the hot path.
package events

import "time"

// Kind tags the variant of an InputEvent.
type Kind int

const (
	PadPressed Kind = iota
	PadReleased
	EncoderTurned
	PolyPressure
	Aftertouch
	PitchBend
	ControlChange
	ProgramChange
)

func (k Kind) String() string {
	switch k {
	case PadPressed:
		return "PadPressed"
	case PadReleased:
		return "PadReleased"
	case EncoderTurned:
		return "EncoderTurned"
	case PolyPressure:
		return "PolyPressure"
	case Aftertouch:
		return "Aftertouch"
	case PitchBend:
		return "PitchBend"
	case ControlChange:
		return "ControlChange"
	case ProgramChange:
		return "ProgramChange"
	default:
		return "Unknown"
	}
}

// InputEvent is the protocol-agnostic event produced by both device managers.
// MIDI notes/pads occupy 0-127; HID gamepad buttons occupy 128-255 and HID
// analog axes/triggers are surfaced on the EncoderTurned channel in the same
// range (spec §3).
type InputEvent struct {
	Kind Kind

	// Pad carries the note/pad/button number for PadPressed, PadReleased and
	// PolyPressure.
	Pad uint8

	// Velocity carries NoteOn velocity for PadPressed.
	Velocity uint8

	// Encoder carries the CC/axis number for EncoderTurned and ControlChange.
	Encoder uint8

	// Value carries the raw value for EncoderTurned/ControlChange (0-127),
	// the program number for ProgramChange, or the 14-bit pitch bend value
	// for PitchBend (0-16383, center 8192).
	Value int32

	// Pressure carries PolyPressure or channel Aftertouch pressure (0-127).
	Pressure uint8

	// Channel is the originating MIDI channel (0-15); zero for HID events.
	Channel uint8

	// Time is captured from a monotonic clock at the moment the event was
	// observed, never wall-clock time, so that gesture timing in the
	// processor cannot be perturbed by clock adjustments (spec §9).
	Time time.Time
}

// VelocityLevel classifies a NoteOn velocity per spec §4.2.
type VelocityLevel int

const (
	Soft VelocityLevel = iota
	Medium
	Hard
)

// ClassifyVelocity implements the total, order-preserving classification
// required by spec §8: 0-40 Soft, 41-80 Medium, 81-127 Hard.
func ClassifyVelocity(v uint8) VelocityLevel {
	switch {
	case v <= 40:
		return Soft
	case v <= 80:
		return Medium
	default:
		return Hard
	}
}

// Direction is the inferred rotation of an encoder/CC/axis.
type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

func (d Direction) String() string {
	if d == CounterClockwise {
		return "CounterClockwise"
	}
	return "Clockwise"
}

// ProcessedKind tags the variant of a ProcessedEvent.
type ProcessedKind int

const (
	ProcPadPressed ProcessedKind = iota
	ProcPadReleased
	ProcShortPress
	ProcMediumPress
	ProcLongPress
	ProcHoldDetected
	ProcDoubleTap
	ProcChordDetected
	ProcEncoderTurned
	ProcAftertouchChanged
	ProcPitchBendMoved
)

// ProcessedEvent is the higher-level gesture the event processor infers from
// a sequence of InputEvents (spec §3/§4.2).
type ProcessedEvent struct {
	Kind ProcessedKind

	Note     uint8
	Velocity uint8
	Level    VelocityLevel

	// HoldMS is the press-to-release duration in milliseconds, set on
	// ProcPadReleased/ProcShortPress/ProcMediumPress/ProcLongPress.
	HoldMS int64

	// Notes carries the distinct notes of a detected chord.
	Notes []uint8

	// CC/Value/Direction/Delta carry encoder gesture data.
	CC        uint8
	Value     int32
	Direction Direction
	Delta     int32

	// Pressure carries AftertouchChanged's pressure value.
	Pressure uint8

	Time time.Time
}
