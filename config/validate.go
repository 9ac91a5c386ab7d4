package config

import (
	"regexp"
	"strings"

	"github.com/relaydev/conductor/errs"
)

const opValidate = "config.Validate"

// shellPattern is one injection pattern the Shell action's command is
// scanned for (spec §4.10). Patterns are tried longest-prefix-first so a
// two-character pattern like "&&" is recognized before its single-character
// prefix "&" would otherwise mask it.
type shellPattern struct {
	pattern string
	desc    string
}

// shellPatterns is deliberately ordered: longer patterns that share a
// prefix with a shorter one (">>"/">", "<<"/"<") are listed first.
var shellPatterns = []shellPattern{
	{"&&", "command chaining with &&"},
	{"||", "command chaining with ||"},
	{";", "command chaining with semicolon"},
	{"|", "pipe to another command with |"},
	{"`", "command substitution with backticks"},
	{"$(", "command substitution with $()"},
	{"${", "parameter expansion with ${}"},
	{">>", "output append redirection with >>"},
	{"<<", "here-document redirection with <<"},
	{">", "output redirection with >"},
	{"<", "input redirection with <"},
}

// launchAppPattern is the character allowlist a Launch action's app name
// must satisfy (spec §4.10).
var launchAppPattern = regexp.MustCompile(`^[A-Za-z0-9 \-_./]+$`)

var allowedModifiers = map[string]bool{"cmd": true, "command": true, "ctrl": true, "control": true, "alt": true, "option": true, "shift": true, "fn": true}
var allowedMouseButtons = map[string]bool{"left": true, "right": true, "middle": true}
var allowedVelocities = map[string]bool{"soft": true, "medium": true, "hard": true}
var allowedDirections = map[string]bool{"Clockwise": true, "CounterClockwise": true}

// Validate checks cfg against spec §4.10's semantic rules: mode names are
// unique and non-empty, every mapping's trigger and action are well-formed
// for their declared type, Shell commands contain no shell metacharacters,
// Conditional/Sequence/Repeat trees are structurally sound, and numeric
// fields fall within their documented ranges.
func Validate(cfg Config) error {
	if cfg.Device.Name == "" {
		return errs.New(errs.KindValidation, opValidate, "device.name is required")
	}

	seen := make(map[string]bool, len(cfg.Modes))
	for _, m := range cfg.Modes {
		if m.Name == "" {
			return errs.New(errs.KindValidation, opValidate, "mode name must not be empty")
		}
		if seen[m.Name] {
			return errs.New(errs.KindValidation, opValidate, "duplicate mode name: "+m.Name)
		}
		seen[m.Name] = true
		for _, mp := range m.Mappings {
			if err := validateMapping(mp, seen); err != nil {
				return err
			}
		}
	}

	for _, mp := range cfg.Global {
		if err := validateMapping(mp, seen); err != nil {
			return err
		}
	}

	if cfg.Advanced.ChordTimeoutMs <= 0 || cfg.Advanced.DoubleTapTimeoutMs <= 0 || cfg.Advanced.HoldThresholdMs <= 0 {
		return errs.New(errs.KindValidation, opValidate, "advanced_settings timing windows must be positive")
	}

	if cfg.Logging != nil {
		switch strings.ToLower(cfg.Logging.Level) {
		case "debug", "info", "warn", "error":
		default:
			return errs.New(errs.KindValidation, opValidate, "logging.level must be one of debug|info|warn|error")
		}
	}

	return nil
}

func validateMapping(mp Mapping, modeNames map[string]bool) error {
	if err := validateTrigger(mp.Trigger); err != nil {
		return err
	}
	return validateAction(mp.Action, modeNames)
}

// outOfRange0127 reports whether v falls outside MIDI's 0-127 byte range.
func outOfRange0127(v int) bool { return v < 0 || v > 127 }

func validateTrigger(t Trigger) error {
	if t.Channel != nil && (*t.Channel < 0 || *t.Channel > 15) {
		return errs.New(errs.KindValidation, opValidate, string(t.Type)+" trigger channel must be 0-15")
	}
	if t.Note != nil && outOfRange0127(*t.Note) {
		return errs.New(errs.KindValidation, opValidate, string(t.Type)+" trigger note must be 0-127")
	}
	if t.CC != nil && outOfRange0127(*t.CC) {
		return errs.New(errs.KindValidation, opValidate, string(t.Type)+" trigger cc must be 0-127")
	}

	switch t.Type {
	case TriggerNote, TriggerDoubleTap, TriggerAftertouch:
		if t.Note == nil && t.Type != TriggerAftertouch {
			return errs.New(errs.KindValidation, opValidate, string(t.Type)+" trigger requires note")
		}
	case TriggerVelocityRange:
		if !allowedVelocities[strings.ToLower(t.Velocity)] {
			return errs.New(errs.KindValidation, opValidate, "VelocityRange trigger requires velocity in {soft,medium,hard}")
		}
	case TriggerLongPress:
		if t.DurationMs != nil && *t.DurationMs <= 0 {
			return errs.New(errs.KindValidation, opValidate, "LongPress duration_ms must be positive")
		}
	case TriggerNoteChord:
		if len(t.Notes) < 2 {
			return errs.New(errs.KindValidation, opValidate, "NoteChord trigger requires at least 2 notes")
		}
		for _, n := range t.Notes {
			if outOfRange0127(n) {
				return errs.New(errs.KindValidation, opValidate, "NoteChord trigger notes must be 0-127")
			}
		}
	case TriggerEncoderTurn:
		if t.Direction != nil && !allowedDirections[*t.Direction] {
			return errs.New(errs.KindValidation, opValidate, "EncoderTurn direction must be Clockwise or CounterClockwise")
		}
	case TriggerCC:
		if t.CC == nil {
			return errs.New(errs.KindValidation, opValidate, "CC trigger requires cc")
		}
	case TriggerPitchBend:
		if t.ValueMin != nil && (*t.ValueMin < -8192 || *t.ValueMin > 8191) {
			return errs.New(errs.KindValidation, opValidate, "PitchBend value_min must be within -8192..8191")
		}
		if t.ValueMax != nil && (*t.ValueMax < -8192 || *t.ValueMax > 8191) {
			return errs.New(errs.KindValidation, opValidate, "PitchBend value_max must be within -8192..8191")
		}
		if t.ValueMin != nil && t.ValueMax != nil && *t.ValueMin > *t.ValueMax {
			return errs.New(errs.KindValidation, opValidate, "PitchBend value_min must not exceed value_max")
		}
	case TriggerGamepadButton:
		if t.Button == nil || *t.Button < 128 {
			return errs.New(errs.KindValidation, opValidate, "GamepadButton trigger requires button >= 128")
		}
	case TriggerGamepadButtonChord:
		if len(t.Notes) == 0 {
			return errs.New(errs.KindValidation, opValidate, "GamepadButtonChord trigger requires at least one button")
		}
		for _, n := range t.Notes {
			if n < 128 {
				return errs.New(errs.KindValidation, opValidate, "GamepadButtonChord trigger buttons must be >= 128")
			}
		}
	case TriggerGamepadAnalogStick:
		if t.Axis == nil || *t.Axis < 128 || *t.Axis > 131 {
			return errs.New(errs.KindValidation, opValidate, "GamepadAnalogStick trigger requires axis within 128-131")
		}
	case TriggerGamepadTrigger:
		if t.TriggerNum == nil || *t.TriggerNum < 132 || *t.TriggerNum > 133 {
			return errs.New(errs.KindValidation, opValidate, "GamepadTrigger trigger requires trigger within 132-133")
		}
		if t.Threshold != nil && outOfRange0127(*t.Threshold) {
			return errs.New(errs.KindValidation, opValidate, "GamepadTrigger threshold must be 0-127")
		}
	default:
		return errs.New(errs.KindValidation, opValidate, "unknown trigger type: "+string(t.Type))
	}
	return nil
}

func validateAction(a Action, modeNames map[string]bool) error {
	switch a.Type {
	case ActionKeystroke:
		if len(a.Keys) == 0 {
			return errs.New(errs.KindValidation, opValidate, "Keystroke action requires at least one key")
		}
		for _, m := range a.Modifiers {
			if !allowedModifiers[strings.ToLower(m)] {
				return errs.New(errs.KindValidation, opValidate, "unknown modifier: "+m)
			}
		}
	case ActionText:
		if a.Text == "" {
			return errs.New(errs.KindValidation, opValidate, "Text action requires text")
		}
	case ActionLaunch:
		if a.App == "" {
			return errs.New(errs.KindValidation, opValidate, "Launch action requires app")
		}
		if err := validateLaunchApp(a.App); err != nil {
			return err
		}
	case ActionShell:
		if a.Command == "" {
			return errs.New(errs.KindValidation, opValidate, "Shell action requires command")
		}
		if err := validateShellCommand(a.Command); err != nil {
			return err
		}
	case ActionSequence:
		if len(a.Children) == 0 {
			return errs.New(errs.KindValidation, opValidate, "Sequence action requires at least one child")
		}
		for _, c := range a.Children {
			if err := validateAction(c, modeNames); err != nil {
				return err
			}
		}
	case ActionDelay:
		if a.Ms <= 0 {
			return errs.New(errs.KindValidation, opValidate, "Delay action requires ms > 0")
		}
	case ActionMouseClick:
		if !allowedMouseButtons[strings.ToLower(a.Button)] {
			return errs.New(errs.KindValidation, opValidate, "MouseClick button must be one of left|right|middle")
		}
	case ActionRepeat:
		if a.Child == nil {
			return errs.New(errs.KindValidation, opValidate, "Repeat action requires child")
		}
		if a.Count <= 0 {
			return errs.New(errs.KindValidation, opValidate, "Repeat action requires count > 0")
		}
		if err := validateAction(*a.Child, modeNames); err != nil {
			return err
		}
	case ActionConditional:
		if a.Then == nil && a.Else == nil {
			return errs.New(errs.KindValidation, opValidate, "Conditional action requires then and/or else")
		}
		if a.Then != nil {
			if err := validateAction(*a.Then, modeNames); err != nil {
				return err
			}
		}
		if a.Else != nil {
			if err := validateAction(*a.Else, modeNames); err != nil {
				return err
			}
		}
	case ActionVolumeControl:
		switch a.Op {
		case "Up", "Down", "Mute", "Unmute":
		case "Set":
			if a.Value == nil {
				return errs.New(errs.KindValidation, opValidate, "VolumeControl Set requires value")
			}
			if *a.Value < 0 || *a.Value > 100 {
				return errs.New(errs.KindValidation, opValidate, "VolumeControl Set value must be 0-100")
			}
		default:
			return errs.New(errs.KindValidation, opValidate, "unknown VolumeControl op: "+a.Op)
		}
	case ActionModeChange:
		if a.Mode == "" {
			return errs.New(errs.KindValidation, opValidate, "ModeChange action requires mode")
		}
	case ActionSendMidi:
		if a.Port == "" {
			return errs.New(errs.KindValidation, opValidate, "SendMidi action requires port")
		}
		if err := validateSendMidi(a); err != nil {
			return err
		}
	case ActionPlugin:
		if a.Name == "" {
			return errs.New(errs.KindValidation, opValidate, "Plugin action requires name")
		}
	default:
		return errs.New(errs.KindValidation, opValidate, "unknown action type: "+string(a.Type))
	}
	return nil
}

// validateLaunchApp enforces spec §4.10's Launch app name allowlist and
// rejects any ".." path-traversal component.
func validateLaunchApp(app string) error {
	if !launchAppPattern.MatchString(app) {
		return errs.New(errs.KindValidation, opValidate, "Launch app name contains disallowed characters: "+app)
	}
	for _, part := range strings.Split(app, "/") {
		if part == ".." {
			return errs.New(errs.KindValidation, opValidate, "Launch app name must not contain a .. path component: "+app)
		}
	}
	return nil
}

// validateShellCommand scans cmd for shell injection patterns in
// longest-prefix-first order (spec §4.10), then separately checks for
// trailing or newline-terminated backgrounding with "&".
func validateShellCommand(cmd string) error {
	for _, p := range shellPatterns {
		if strings.Contains(cmd, p.pattern) {
			return errs.New(errs.KindValidation, opValidate, "Shell command rejected: "+p.desc+": "+cmd)
		}
	}
	if strings.HasSuffix(strings.TrimRight(cmd, "\n"), "&") {
		return errs.New(errs.KindValidation, opValidate, "Shell command rejected: background execution with trailing &: "+cmd)
	}
	return nil
}

// validateSendMidi range-checks a SendMidi action's params according to its
// chosen message_type (spec §4.10).
func validateSendMidi(a Action) error {
	if a.Channel != nil && (*a.Channel < 0 || *a.Channel > 15) {
		return errs.New(errs.KindValidation, opValidate, "SendMidi channel must be 0-15")
	}

	p := a.Params
	switch a.MsgType {
	case "NoteOn", "NoteOff":
		if p.Note == nil {
			return errs.New(errs.KindValidation, opValidate, string(a.MsgType)+" SendMidi requires params.note")
		}
		if outOfRange0127(*p.Note) {
			return errs.New(errs.KindValidation, opValidate, "SendMidi note must be 0-127")
		}
	case "ControlChange":
		if p.CC == nil {
			return errs.New(errs.KindValidation, opValidate, "ControlChange SendMidi requires params.cc")
		}
		if outOfRange0127(*p.CC) {
			return errs.New(errs.KindValidation, opValidate, "SendMidi cc must be 0-127")
		}
		if p.Value == nil {
			return errs.New(errs.KindValidation, opValidate, "ControlChange SendMidi requires params.value")
		}
		if outOfRange0127(*p.Value) {
			return errs.New(errs.KindValidation, opValidate, "SendMidi value must be 0-127")
		}
	case "ProgramChange":
		if p.Program == nil {
			return errs.New(errs.KindValidation, opValidate, "ProgramChange SendMidi requires params.program")
		}
		if outOfRange0127(*p.Program) {
			return errs.New(errs.KindValidation, opValidate, "SendMidi program must be 0-127")
		}
	case "PitchBend":
		if p.Value == nil {
			return errs.New(errs.KindValidation, opValidate, "PitchBend SendMidi requires params.value")
		}
		if *p.Value < -8192 || *p.Value > 8191 {
			return errs.New(errs.KindValidation, opValidate, "SendMidi pitch bend value must be within -8192..8191")
		}
	case "Aftertouch":
		if p.Value == nil {
			return errs.New(errs.KindValidation, opValidate, "Aftertouch SendMidi requires params.value")
		}
		if outOfRange0127(*p.Value) {
			return errs.New(errs.KindValidation, opValidate, "SendMidi value must be 0-127")
		}
	default:
		return errs.New(errs.KindValidation, opValidate, "unknown SendMidi msg_type: "+a.MsgType)
	}

	if p.Velocity != nil && outOfRange0127(*p.Velocity) {
		return errs.New(errs.KindValidation, opValidate, "SendMidi velocity must be 0-127")
	}
	if p.VelocityMapping != nil {
		if err := validateVelocityMapping(*p.VelocityMapping); err != nil {
			return err
		}
	}
	return nil
}

func validateVelocityMapping(v VelocityMapping) error {
	switch v.Kind {
	case VelocityFixed:
		if v.Fixed < 0 || v.Fixed > 127 {
			return errs.New(errs.KindValidation, opValidate, "velocity_mapping fixed must be 0-127")
		}
	case VelocityLinear:
		if v.Min < 0 || v.Max > 127 {
			return errs.New(errs.KindValidation, opValidate, "velocity_mapping linear min/max must be within 0-127")
		}
	case VelocityCurve:
		switch v.Shape {
		case CurveExponential, CurveLogarithmic, CurveSCurve:
		default:
			return errs.New(errs.KindValidation, opValidate, "velocity_mapping curve shape must be Exponential|Logarithmic|SCurve")
		}
		if v.Intensity < 0 {
			return errs.New(errs.KindValidation, opValidate, "velocity_mapping curve intensity must be >= 0")
		}
	case VelocityPassThrough:
	default:
		return errs.New(errs.KindValidation, opValidate, "unknown velocity_mapping kind")
	}
	return nil
}
