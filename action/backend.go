package action

import (
	"context"

	"github.com/relaydev/conductor/keycode"
)

// KeyboardBackend synthesizes keystrokes and typed text. Implementations
// hold modifiers for the duration of the key presses and release them on
// return (spec §4.4).
type KeyboardBackend interface {
	Keystroke(ctx context.Context, keys []keycode.Key, modifiers []keycode.Modifier) error
	TypeText(ctx context.Context, s string) error
}

// LaunchBackend opens an application by name or absolute path.
type LaunchBackend interface {
	Launch(ctx context.Context, app string) error
}

// ShellBackend runs a command in argv form, never through a shell
// interpreter (spec §4.4/§9).
type ShellBackend interface {
	Run(ctx context.Context, argv []string) error
}

// MouseBackend synthesizes mouse clicks, optionally at an absolute position.
type MouseBackend interface {
	Click(ctx context.Context, button keycode.MouseButton, x, y *int) error
}

// VolumeBackend adjusts system output volume.
type VolumeBackend interface {
	Set(ctx context.Context, value int) error
	Step(ctx context.Context, up bool) error
	Mute(ctx context.Context, mute bool) error
}

// MidiSender emits a raw MIDI message on a named output port (the MIDI
// Output Manager, spec §4.9).
type MidiSender interface {
	Send(ctx context.Context, port string, data []byte) error
}

// ModeSwitcher changes the engine's active mode (spec §4.14's reload/mode
// state, mutated here via ModeChange).
type ModeSwitcher interface {
	// SetMode returns errs.KindUnknownMode if mode is not a configured mode.
	SetMode(mode string) error
}

// PluginInvoker delegates a Plugin action to the Plugin Manager (spec §4.16).
type PluginInvoker interface {
	Execute(ctx context.Context, name string, params map[string]string, trigger TriggerContext) error
}

// TriggerContext is the subset of Context a plugin's guest code receives
// about the gesture that triggered it (spec §4.15).
type TriggerContext struct {
	Velocity    *uint8
	CurrentMode string
}
