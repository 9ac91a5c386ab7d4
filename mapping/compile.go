// Package mapping implements the Mapping Engine (spec §4.5): compiling the
// config package's TOML-facing Trigger/Action/Condition schema into the
// action package's runtime Program tree and the condition package's
// evaluator tree, and matching incoming processed gesture events against the
// global (then the active mode's) compiled mappings.
package mapping

import (
	"strings"

	"github.com/relaydev/conductor/action"
	"github.com/relaydev/conductor/condition"
	"github.com/relaydev/conductor/config"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/events"
	"github.com/relaydev/conductor/keycode"
)

const opCompile = "mapping.Compile"

// CompiledMapping pairs a matchable Trigger with its compiled action.Program.
type CompiledMapping struct {
	Trigger     config.Trigger
	Program     action.Program
	Description string
}

// CompiledMode is one mode's compiled mappings plus its display metadata.
type CompiledMode struct {
	Name     string
	Color    string
	Mappings []CompiledMapping
}

// Table is the fully compiled mapping set for a loaded config: each mode's
// mappings plus the global mappings that apply regardless of mode (spec
// §4.3/§9's layering: global mappings take priority over mode-specific
// mappings on conflict, so an escape hatch like a panic-stop CC stays
// reachable no matter which mode is active).
type Table struct {
	Modes        []CompiledMode
	ModesByName  map[string]int
	Global       []CompiledMapping
}

// Compile builds a Table from a validated config.Config (spec §4.5/§4.10).
func Compile(cfg config.Config) (*Table, error) {
	t := &Table{ModesByName: make(map[string]int)}

	for _, m := range cfg.Modes {
		cm := CompiledMode{Name: m.Name}
		if m.Color != nil {
			cm.Color = *m.Color
		}
		for _, mp := range m.Mappings {
			prog, err := compileAction(mp.Action)
			if err != nil {
				return nil, errs.Wrap(errs.KindParse, opCompile, err)
			}
			desc := ""
			if mp.Description != nil {
				desc = *mp.Description
			}
			cm.Mappings = append(cm.Mappings, CompiledMapping{Trigger: mp.Trigger, Program: prog, Description: desc})
		}
		t.ModesByName[m.Name] = len(t.Modes)
		t.Modes = append(t.Modes, cm)
	}

	for _, mp := range cfg.Global {
		prog, err := compileAction(mp.Action)
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, opCompile, err)
		}
		desc := ""
		if mp.Description != nil {
			desc = *mp.Description
		}
		t.Global = append(t.Global, CompiledMapping{Trigger: mp.Trigger, Program: prog, Description: desc})
	}

	return t, nil
}

// ModeByName looks up a compiled mode by name.
func (t *Table) ModeByName(name string) (CompiledMode, bool) {
	i, ok := t.ModesByName[name]
	if !ok {
		return CompiledMode{}, false
	}
	return t.Modes[i], true
}

func compileAction(a config.Action) (action.Program, error) {
	switch a.Type {
	case config.ActionKeystroke:
		keys, err := parseKeys(a.Keys)
		if err != nil {
			return action.Program{}, err
		}
		mods, err := parseModifiers(a.Modifiers)
		if err != nil {
			return action.Program{}, err
		}
		return action.Program{Kind: action.Keystroke, Keys: keys, Modifiers: mods}, nil

	case config.ActionText:
		return action.Program{Kind: action.Text, Text: a.Text}, nil

	case config.ActionLaunch:
		return action.Program{Kind: action.Launch, App: a.App}, nil

	case config.ActionShell:
		return action.Program{Kind: action.Shell, Argv: tokenizeShell(a.Command)}, nil

	case config.ActionSequence:
		children := make([]action.Program, 0, len(a.Children))
		for _, c := range a.Children {
			cp, err := compileAction(c)
			if err != nil {
				return action.Program{}, err
			}
			children = append(children, cp)
		}
		return action.Program{Kind: action.Sequence, Children: children}, nil

	case config.ActionDelay:
		return action.Program{Kind: action.Delay, DelayMs: a.Ms}, nil

	case config.ActionMouseClick:
		btn, ok := keycode.ParseMouseButton(a.Button)
		if !ok {
			return action.Program{}, errs.New(errs.KindValidation, opCompile, "unknown mouse button: "+a.Button)
		}
		return action.Program{Kind: action.MouseClick, Button: btn, X: a.X, Y: a.Y}, nil

	case config.ActionRepeat:
		if a.Child == nil {
			return action.Program{}, errs.New(errs.KindValidation, opCompile, "Repeat requires a child action")
		}
		child, err := compileAction(*a.Child)
		if err != nil {
			return action.Program{}, err
		}
		return action.Program{Kind: action.Repeat, Child: &child, Count: a.Count, IterDelayMs: a.DelayMs}, nil

	case config.ActionConditional:
		cond := compileCondition(a.Condition)
		p := action.Program{Kind: action.Conditional, Condition: cond}
		if a.Then != nil {
			then, err := compileAction(*a.Then)
			if err != nil {
				return action.Program{}, err
			}
			p.Then = &then
		}
		if a.Else != nil {
			els, err := compileAction(*a.Else)
			if err != nil {
				return action.Program{}, err
			}
			p.Else = &els
		}
		return p, nil

	case config.ActionVolumeControl:
		return action.Program{Kind: action.VolumeControl, VolOp: action.VolumeOp(a.Op), VolValue: a.Value}, nil

	case config.ActionModeChange:
		return action.Program{Kind: action.ModeChange, ModeName: a.Mode}, nil

	case config.ActionSendMidi:
		return compileSendMidi(a)

	case config.ActionPlugin:
		return action.Program{Kind: action.Plugin, PluginName: a.Name, PluginParams: a.PluginParams}, nil

	default:
		return action.Program{}, errs.New(errs.KindValidation, opCompile, "unknown action type: "+string(a.Type))
	}
}

func compileSendMidi(a config.Action) (action.Program, error) {
	p := action.Program{
		Kind:     action.SendMidi,
		MidiPort: a.Port,
		MidiType: action.MidiMessageType(a.MsgType),
	}
	if a.Channel != nil {
		p.MidiChannel = uint8(*a.Channel)
	}

	params := action.MidiParams{}
	if a.Params.Note != nil {
		n := uint8(*a.Params.Note)
		params.Note = &n
	}
	if a.Params.CC != nil {
		c := uint8(*a.Params.CC)
		params.CC = &c
	}
	if a.Params.Value != nil {
		v := int32(*a.Params.Value)
		params.Value = &v
	}
	if a.Params.Program != nil {
		pr := uint8(*a.Params.Program)
		params.Program = &pr
	}

	if a.Params.VelocityMapping != nil {
		params.VelocityMapping = compileVelocityMapping(*a.Params.VelocityMapping)
	} else {
		fixed := 100
		if a.Params.Velocity != nil {
			fixed = *a.Params.Velocity
		}
		params.VelocityMapping = action.VelocityMapping{Kind: action.VelFixed, Fixed: fixed}
	}

	p.MidiParams = params
	return p, nil
}

func compileVelocityMapping(v config.VelocityMapping) action.VelocityMapping {
	out := action.VelocityMapping{Min: v.Min, Max: v.Max, Intensity: v.Intensity}
	if v.Fixed != 0 {
		out.Fixed = v.Fixed
	} else {
		out.Fixed = 100
	}
	switch v.Shape {
	case config.CurveLogarithmic:
		out.Shape = action.CurveLogarithmic
	case config.CurveSCurve:
		out.Shape = action.CurveSCurve
	default:
		out.Shape = action.CurveExponential
	}
	switch v.Kind {
	case config.VelocityPassThrough:
		out.Kind = action.VelPassThrough
	case config.VelocityLinear:
		out.Kind = action.VelLinear
	case config.VelocityCurve:
		out.Kind = action.VelCurve
	default:
		out.Kind = action.VelFixed
	}
	return out
}

var conditionKinds = map[string]condition.Kind{
	"Always":       condition.Always,
	"Never":        condition.Never,
	"TimeRange":    condition.TimeRange,
	"DayOfWeek":    condition.DayOfWeek,
	"AppRunning":   condition.AppRunning,
	"AppFrontmost": condition.AppFrontmost,
	"ModeIs":       condition.ModeIs,
	"And":          condition.And,
	"Or":           condition.Or,
	"Not":          condition.Not,
}

func compileCondition(c config.Condition) condition.Condition {
	kind, ok := conditionKinds[c.Type]
	if !ok {
		kind = condition.Never
	}
	out := condition.Condition{
		Kind:  kind,
		Start: c.Start,
		End:   c.End,
		Days:  c.Days,
		Name:  c.Name,
	}
	for _, ch := range c.List {
		out.Children = append(out.Children, compileCondition(ch))
	}
	if c.Inner != nil {
		inner := compileCondition(*c.Inner)
		out.Inner = &inner
	}
	return out
}

func parseKeys(keys []string) ([]keycode.Key, error) {
	out := make([]keycode.Key, 0, len(keys))
	for _, k := range keys {
		key, ok := keycode.Parse(k)
		if !ok {
			return nil, errs.New(errs.KindValidation, opCompile, "unknown key: "+k)
		}
		out = append(out, key)
	}
	return out, nil
}

func parseModifiers(mods []string) ([]keycode.Modifier, error) {
	out := make([]keycode.Modifier, 0, len(mods))
	for _, m := range mods {
		mod, ok := keycode.ParseModifier(m)
		if !ok {
			return nil, errs.New(errs.KindValidation, opCompile, "unknown modifier: "+m)
		}
		out = append(out, mod)
	}
	return out, nil
}

// tokenizeShell splits a Shell action's command into argv form on whitespace.
// This is intentionally naive (no quoting support): spec §4.4/§9 requires
// Shell actions to run via argv, never through a shell interpreter, and the
// config validator (config.Validate) rejects shell metacharacters up front,
// so commands reaching here are already restricted to simple argv-shaped
// invocations.
func tokenizeShell(cmd string) []string {
	return strings.Fields(cmd)
}
