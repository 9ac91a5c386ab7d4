// Package action implements the Action Executor (spec §4.4): the in-memory
// action program tree the Mapping Engine compiles config.Action nodes into,
// and the single-threaded executor that runs them against a set of platform
// backend interfaces. Platform-specific keystroke/mouse/shell/volume/launch
// backends are external collaborators (spec §1's "deliberately out of
// scope"); this package only defines the interfaces they must satisfy.
package action

import (
	"github.com/relaydev/conductor/condition"
	"github.com/relaydev/conductor/keycode"
)

// Kind tags the variant of a Program node.
type Kind int

const (
	Keystroke Kind = iota
	Text
	Launch
	Shell
	Sequence
	Delay
	MouseClick
	Repeat
	Conditional
	VolumeControl
	ModeChange
	SendMidi
	Plugin
)

// VolumeOp enumerates VolumeControl's op values (spec §3/§4.10).
type VolumeOp string

const (
	VolumeUp     VolumeOp = "Up"
	VolumeDown   VolumeOp = "Down"
	VolumeMute   VolumeOp = "Mute"
	VolumeUnmute VolumeOp = "Unmute"
	VolumeSet    VolumeOp = "Set"
)

// Program is a compiled action tree node (spec §3).
type Program struct {
	Kind Kind

	// Keystroke.
	Keys      []keycode.Key
	Modifiers []keycode.Modifier

	// Text.
	Text string

	// Launch.
	App string

	// Shell. Argv is the pre-tokenized command (spec §4.4: argv form, no
	// shell interpreter).
	Argv []string

	// Sequence.
	Children []Program

	// Delay.
	DelayMs int

	// MouseClick.
	Button keycode.MouseButton
	X, Y   *int

	// Repeat.
	Child        *Program
	Count        int
	IterDelayMs  *int

	// Conditional.
	Condition condition.Condition
	Then      *Program
	Else      *Program

	// VolumeControl.
	VolOp    VolumeOp
	VolValue *int

	// ModeChange.
	ModeName string

	// SendMidi.
	MidiPort    string
	MidiType    MidiMessageType
	MidiChannel uint8
	MidiParams  MidiParams

	// Plugin.
	PluginName   string
	PluginParams map[string]string
}

// MidiMessageType enumerates SendMidi's msg_type values (spec §3/§4.4).
type MidiMessageType string

const (
	MidiNoteOn         MidiMessageType = "NoteOn"
	MidiNoteOff        MidiMessageType = "NoteOff"
	MidiControlChange  MidiMessageType = "ControlChange"
	MidiProgramChange  MidiMessageType = "ProgramChange"
	MidiPitchBend      MidiMessageType = "PitchBend"
	MidiAftertouch     MidiMessageType = "Aftertouch"
)

// MidiParams carries SendMidi's per-message-type fields (spec §3/§4.4).
type MidiParams struct {
	Note     *uint8
	CC       *uint8
	Value    *int32
	Program  *uint8

	VelocityMapping VelocityMapping
}

// VelocityMappingKind tags VelocityMapping's variant (spec §4.4).
type VelocityMappingKind int

const (
	VelFixed VelocityMappingKind = iota
	VelPassThrough
	VelLinear
	VelCurve
)

// CurveShape tags a Curve velocity mapping's shape (spec §4.4).
type CurveShape int

const (
	CurveExponential CurveShape = iota
	CurveLogarithmic
	CurveSCurve
)

// VelocityMapping resolves a SendMidi NoteOn/Off's final velocity from the
// triggering gesture's velocity (spec §4.4).
type VelocityMapping struct {
	Kind VelocityMappingKind

	Fixed int // default 100, also PassThrough's fallback when context velocity is unknown

	Min, Max int // Linear

	Shape     CurveShape
	Intensity float64
}
