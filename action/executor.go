package action

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relaydev/conductor/condition"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/logging"
)

const opExecute = "action.Execute"

// Context carries the per-execution state an action program is run against
// (spec §4.4/§4.5).
type Context struct {
	Velocity     *uint8
	CurrentMode  string
	Now          time.Time
	FrontmostApp string
	RunningApps  []string
}

func (c Context) conditionContext() condition.Context {
	return condition.Context{
		Now:          c.Now,
		CurrentMode:  c.CurrentMode,
		FrontmostApp: c.FrontmostApp,
		RunningApps:  c.RunningApps,
	}
}

// Backends bundles every platform collaborator the executor dispatches to.
// A nil field means that action kind is unsupported on this platform and
// returns a KindIO error if exercised.
type Backends struct {
	Keyboard KeyboardBackend
	Launch   LaunchBackend
	Shell    ShellBackend
	Mouse    MouseBackend
	Volume   VolumeBackend
	Midi     MidiSender
	Mode     ModeSwitcher
	Plugin   PluginInvoker
}

// Executor runs Program trees one at a time: spec §4.4/§9 require action
// execution to be single-threaded with respect to a given daemon so that
// ModeChange's effects are observable in order.
type Executor struct {
	mu       sync.Mutex
	backends Backends
	log      *slog.Logger
}

// NewExecutor constructs an Executor over the given platform backends.
func NewExecutor(backends Backends) *Executor {
	return &Executor{backends: backends, log: logging.Get(logging.Engine)}
}

// Execute runs p to completion (or until a fatal error) under ctx,
// serialized against any other concurrent Execute call.
func (e *Executor) Execute(ctx context.Context, p Program, actx Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run(ctx, p, actx)
}

func (e *Executor) run(ctx context.Context, p Program, actx Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.KindIO, opExecute, err)
	}

	switch p.Kind {
	case Keystroke:
		if e.backends.Keyboard == nil {
			return errs.New(errs.KindIO, opExecute, "no keyboard backend configured")
		}
		return errs.Wrap(errs.KindIO, opExecute, e.backends.Keyboard.Keystroke(ctx, p.Keys, p.Modifiers))

	case Text:
		if e.backends.Keyboard == nil {
			return errs.New(errs.KindIO, opExecute, "no keyboard backend configured")
		}
		return errs.Wrap(errs.KindIO, opExecute, e.backends.Keyboard.TypeText(ctx, p.Text))

	case Launch:
		if e.backends.Launch == nil {
			return errs.New(errs.KindIO, opExecute, "no launch backend configured")
		}
		return errs.Wrap(errs.KindIO, opExecute, e.backends.Launch.Launch(ctx, p.App))

	case Shell:
		if e.backends.Shell == nil {
			return errs.New(errs.KindIO, opExecute, "no shell backend configured")
		}
		return errs.Wrap(errs.KindIO, opExecute, e.backends.Shell.Run(ctx, p.Argv))

	case Sequence:
		for _, child := range p.Children {
			if err := e.run(ctx, child, actx); err != nil {
				if errs.IsFatal(err) {
					return err
				}
				e.log.Warn("sequence child failed, continuing", "error", err)
			}
		}
		return nil

	case Delay:
		t := time.NewTimer(time.Duration(p.DelayMs) * time.Millisecond)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return errs.Wrap(errs.KindIO, opExecute, ctx.Err())
		}

	case MouseClick:
		if e.backends.Mouse == nil {
			return errs.New(errs.KindIO, opExecute, "no mouse backend configured")
		}
		return errs.Wrap(errs.KindIO, opExecute, e.backends.Mouse.Click(ctx, p.Button, p.X, p.Y))

	case Repeat:
		if p.Child == nil {
			return nil
		}
		for i := 0; i < p.Count; i++ {
			if err := e.run(ctx, *p.Child, actx); err != nil && errs.IsFatal(err) {
				return err
			}
			if p.IterDelayMs != nil && i < p.Count-1 {
				t := time.NewTimer(time.Duration(*p.IterDelayMs) * time.Millisecond)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return errs.Wrap(errs.KindIO, opExecute, ctx.Err())
				}
				t.Stop()
			}
		}
		return nil

	case Conditional:
		if condition.Eval(p.Condition, actx.conditionContext()) {
			if p.Then != nil {
				return e.run(ctx, *p.Then, actx)
			}
			return nil
		}
		if p.Else != nil {
			return e.run(ctx, *p.Else, actx)
		}
		return nil

	case VolumeControl:
		if e.backends.Volume == nil {
			return errs.New(errs.KindIO, opExecute, "no volume backend configured")
		}
		switch p.VolOp {
		case VolumeSet:
			if p.VolValue == nil {
				return errs.New(errs.KindValidation, opExecute, "VolumeControl Set requires a value")
			}
			return errs.Wrap(errs.KindIO, opExecute, e.backends.Volume.Set(ctx, *p.VolValue))
		case VolumeUp:
			return errs.Wrap(errs.KindIO, opExecute, e.backends.Volume.Step(ctx, true))
		case VolumeDown:
			return errs.Wrap(errs.KindIO, opExecute, e.backends.Volume.Step(ctx, false))
		case VolumeMute:
			return errs.Wrap(errs.KindIO, opExecute, e.backends.Volume.Mute(ctx, true))
		case VolumeUnmute:
			return errs.Wrap(errs.KindIO, opExecute, e.backends.Volume.Mute(ctx, false))
		default:
			return errs.New(errs.KindValidation, opExecute, "unknown VolumeControl op")
		}

	case ModeChange:
		if e.backends.Mode == nil {
			return errs.New(errs.KindIO, opExecute, "no mode switcher configured")
		}
		if err := e.backends.Mode.SetMode(p.ModeName); err != nil {
			return errs.Wrap(errs.KindUnknownMode, opExecute, err)
		}
		return nil

	case SendMidi:
		if e.backends.Midi == nil {
			return errs.New(errs.KindIO, opExecute, "no MIDI output backend configured")
		}
		data, err := buildMidiMessage(p, actx.Velocity)
		if err != nil {
			return err
		}
		return errs.Wrap(errs.KindIO, opExecute, e.backends.Midi.Send(ctx, p.MidiPort, data))

	case Plugin:
		if e.backends.Plugin == nil {
			return errs.New(errs.KindPluginExecution, opExecute, "no plugin backend configured")
		}
		tc := TriggerContext{Velocity: actx.Velocity, CurrentMode: actx.CurrentMode}
		return errs.Wrap(errs.KindPluginExecution, opExecute, e.backends.Plugin.Execute(ctx, p.PluginName, p.PluginParams, tc))

	default:
		return errs.New(errs.KindValidation, opExecute, "unknown action kind")
	}
}
