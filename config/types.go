// Package config implements the Config Model & Validator (spec §4.10): the
// typed TOML schema (spec §6), semantic validation, and safe atomic
// load/save. Trigger and Action are modeled as flat, type-tagged structs
// (a "type" discriminator plus every variant's optional fields) rather than
// as a Go interface hierarchy, since that is what decodes cleanly from TOML
// tables with BurntSushi/toml and keeps unknown-field forward compatibility
// trivial — the same shape the config types in the retrieved pack's
// MIDI-domain daemons use (adapted here from JSON tags to TOML tags; see
// DESIGN.md).
package config

// Config is the root configuration record (spec §3).
type Config struct {
	Device   Device           `toml:"device"`
	Modes    []Mode           `toml:"modes"`
	Global   []Mapping        `toml:"global_mappings"`
	Logging  *Logging         `toml:"logging,omitempty"`
	Advanced AdvancedSettings `toml:"advanced_settings"`
}

// Device configures the MIDI input device (spec §3/§6).
type Device struct {
	Name          string `toml:"name"`
	AutoConnect   bool   `toml:"auto_connect"`
	AutoReconnect bool   `toml:"auto_reconnect"`
	Port          *int   `toml:"port,omitempty"`
}

// Mode is a named, ordered set of mappings (spec §3).
type Mode struct {
	Name     string    `toml:"name"`
	Color    *string   `toml:"color,omitempty"`
	Mappings []Mapping `toml:"mappings"`
}

// Mapping binds a Trigger to an Action (spec §3).
type Mapping struct {
	Trigger     Trigger `toml:"trigger"`
	Action      Action  `toml:"action"`
	Description *string `toml:"description,omitempty"`
}

// Logging configures the daemon's logging{level, file} section (spec §3/§6).
type Logging struct {
	Level string  `toml:"level"`
	File  *string `toml:"file,omitempty"`
}

// AdvancedSettings holds the three gesture-timing windows (spec §3).
type AdvancedSettings struct {
	ChordTimeoutMs     int `toml:"chord_timeout_ms"`
	DoubleTapTimeoutMs int `toml:"double_tap_timeout_ms"`
	HoldThresholdMs    int `toml:"hold_threshold_ms"`
}

// DefaultAdvancedSettings matches spec §3's documented defaults.
func DefaultAdvancedSettings() AdvancedSettings {
	return AdvancedSettings{
		ChordTimeoutMs:     50,
		DoubleTapTimeoutMs: 300,
		HoldThresholdMs:    2000,
	}
}

// TriggerType enumerates the trigger `type` tag values (spec §6).
type TriggerType string

const (
	TriggerNote               TriggerType = "Note"
	TriggerVelocityRange      TriggerType = "VelocityRange"
	TriggerLongPress          TriggerType = "LongPress"
	TriggerDoubleTap          TriggerType = "DoubleTap"
	TriggerNoteChord          TriggerType = "NoteChord"
	TriggerEncoderTurn        TriggerType = "EncoderTurn"
	TriggerAftertouch         TriggerType = "Aftertouch"
	TriggerPitchBend          TriggerType = "PitchBend"
	TriggerCC                 TriggerType = "CC"
	TriggerGamepadButton      TriggerType = "GamepadButton"
	TriggerGamepadButtonChord TriggerType = "GamepadButtonChord"
	TriggerGamepadAnalogStick TriggerType = "GamepadAnalogStick"
	TriggerGamepadTrigger     TriggerType = "GamepadTrigger"
)

// Trigger is a flat representation of every trigger variant (spec §3/§6).
type Trigger struct {
	Type TriggerType `toml:"type"`

	Note    *int `toml:"note,omitempty"`
	Channel *int `toml:"channel,omitempty"`

	// VelocityRange.
	Velocity string `toml:"velocity,omitempty"` // "soft" | "medium" | "hard"

	// LongPress.
	DurationMs *int `toml:"duration_ms,omitempty"`

	// NoteChord / GamepadButtonChord.
	Notes []int `toml:"notes,omitempty"`

	// EncoderTurn / CC.
	CC        *int    `toml:"cc,omitempty"`
	ValueMin  *int    `toml:"value_min,omitempty"`
	Direction *string `toml:"direction,omitempty"` // "Clockwise" | "CounterClockwise"

	// Aftertouch.
	PressureMin *int `toml:"pressure_min,omitempty"`

	// PitchBend.
	ValueMax *int `toml:"value_max,omitempty"`

	// GamepadButton.
	Button *int `toml:"button,omitempty"`

	// GamepadAnalogStick.
	Axis *int `toml:"axis,omitempty"`

	// GamepadTrigger.
	TriggerNum *int `toml:"trigger,omitempty"`
	Threshold  *int `toml:"threshold,omitempty"`
}

// ActionType enumerates the action `type` tag values (spec §6).
type ActionType string

const (
	ActionKeystroke     ActionType = "Keystroke"
	ActionText          ActionType = "Text"
	ActionLaunch        ActionType = "Launch"
	ActionShell         ActionType = "Shell"
	ActionSequence      ActionType = "Sequence"
	ActionDelay         ActionType = "Delay"
	ActionMouseClick    ActionType = "MouseClick"
	ActionVolumeControl ActionType = "VolumeControl"
	ActionModeChange    ActionType = "ModeChange"
	ActionRepeat        ActionType = "Repeat"
	ActionConditional   ActionType = "Conditional"
	ActionSendMidi      ActionType = "SendMidi"
	ActionPlugin        ActionType = "Plugin"
)

// Action is a flat representation of every action variant (spec §3/§6).
type Action struct {
	Type ActionType `toml:"type"`

	// Keystroke.
	Keys      []string `toml:"keys,omitempty"`
	Modifiers []string `toml:"modifiers,omitempty"`

	// Text.
	Text string `toml:"text,omitempty"`

	// Launch.
	App string `toml:"app,omitempty"`

	// Shell.
	Command string `toml:"command,omitempty"`

	// Sequence.
	Children []Action `toml:"children,omitempty"`

	// Delay.
	Ms int `toml:"ms,omitempty"`

	// MouseClick.
	Button string `toml:"button,omitempty"`
	X      *int   `toml:"x,omitempty"`
	Y      *int   `toml:"y,omitempty"`

	// Repeat.
	Child     *Action `toml:"child,omitempty"`
	Count     int     `toml:"count,omitempty"`
	DelayMs   *int    `toml:"delay_ms,omitempty"`

	// Conditional.
	Condition Condition `toml:"condition"`
	Then      *Action   `toml:"then,omitempty"`
	Else      *Action   `toml:"else,omitempty"`

	// VolumeControl.
	Op    string `toml:"op,omitempty"`
	Value *int   `toml:"value,omitempty"`

	// ModeChange.
	Mode string `toml:"mode,omitempty"`

	// SendMidi.
	Port      string         `toml:"port,omitempty"`
	MsgType   string         `toml:"msg_type,omitempty"`
	Channel   *int           `toml:"channel,omitempty"`
	Params    SendMidiParams `toml:"params,omitempty"`

	// Plugin.
	Name         string            `toml:"name,omitempty"`
	PluginParams map[string]string `toml:"plugin_params,omitempty"`
}

// SendMidiParams holds SendMidi's per-message-type fields and velocity
// remapping configuration (spec §4.4).
type SendMidiParams struct {
	Note     *int `toml:"note,omitempty"`
	Velocity *int `toml:"velocity,omitempty"` // legacy fixed-velocity field (spec §9)
	CC       *int `toml:"cc,omitempty"`
	Value    *int `toml:"value,omitempty"`
	Program  *int `toml:"program,omitempty"`

	VelocityMapping *VelocityMapping `toml:"velocity_mapping,omitempty"`
}

// VelocityMappingKind tags VelocityMapping's variant.
type VelocityMappingKind string

const (
	VelocityFixed       VelocityMappingKind = "Fixed"
	VelocityPassThrough VelocityMappingKind = "PassThrough"
	VelocityLinear      VelocityMappingKind = "Linear"
	VelocityCurve       VelocityMappingKind = "Curve"
)

// CurveShape tags the Curve velocity mapping's shape (spec §4.4).
type CurveShape string

const (
	CurveExponential CurveShape = "Exponential"
	CurveLogarithmic CurveShape = "Logarithmic"
	CurveSCurve      CurveShape = "SCurve"
)

// VelocityMapping resolves a SendMidi NoteOn/Off's final velocity (spec §4.4).
type VelocityMapping struct {
	Kind VelocityMappingKind `toml:"kind"`

	Fixed int `toml:"fixed,omitempty"` // default 100

	// Linear.
	Min int `toml:"min,omitempty"`
	Max int `toml:"max,omitempty"`

	// Curve.
	Shape     CurveShape `toml:"shape,omitempty"`
	Intensity float64    `toml:"intensity,omitempty"`
}

// Condition is the recursively tagged predicate tree used by Conditional
// actions (spec §3/§4.5). Kept in the config package, distinct from
// condition.Condition, so the TOML schema can evolve independently of the
// evaluator's in-memory representation; compiled into a condition.Condition
// by the mapping engine at reload time.
type Condition struct {
	Type string `toml:"type"` // Always|Never|TimeRange|DayOfWeek|AppRunning|AppFrontmost|ModeIs|And|Or|Not

	Start string `toml:"start,omitempty"`
	End   string `toml:"end,omitempty"`

	Days []int `toml:"days,omitempty"`

	Name string `toml:"name,omitempty"`

	List  []Condition `toml:"list,omitempty"`
	Inner *Condition  `toml:"inner,omitempty"`
}
