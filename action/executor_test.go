package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydev/conductor/condition"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/keycode"
)

type fakeKeyboard struct {
	keystrokes [][]keycode.Key
	typed      []string
}

func (f *fakeKeyboard) Keystroke(_ context.Context, keys []keycode.Key, _ []keycode.Modifier) error {
	f.keystrokes = append(f.keystrokes, keys)
	return nil
}
func (f *fakeKeyboard) TypeText(_ context.Context, s string) error {
	f.typed = append(f.typed, s)
	return nil
}

type fakeMode struct {
	set    []string
	reject string
}

func (f *fakeMode) SetMode(mode string) error {
	if mode == f.reject {
		return errs.New(errs.KindUnknownMode, "fakeMode.SetMode", "unknown mode: "+mode)
	}
	f.set = append(f.set, mode)
	return nil
}

type fakeMidi struct {
	sent [][]byte
}

func (f *fakeMidi) Send(_ context.Context, _ string, data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

type fakePlugin struct {
	calls int
	err   error
}

func (f *fakePlugin) Execute(_ context.Context, _ string, _ map[string]string, _ TriggerContext) error {
	f.calls++
	return f.err
}

func TestExecuteKeystroke(t *testing.T) {
	kb := &fakeKeyboard{}
	e := NewExecutor(Backends{Keyboard: kb})
	key, ok := keycode.Parse("a")
	require.True(t, ok)
	err := e.Execute(context.Background(), Program{Kind: Keystroke, Keys: []keycode.Key{key}}, Context{})
	require.NoError(t, err)
	assert.Len(t, kb.keystrokes, 1)
}

func TestExecuteMissingBackendReturnsIOError(t *testing.T) {
	e := NewExecutor(Backends{})
	err := e.Execute(context.Background(), Program{Kind: Keystroke}, Context{})
	assert.True(t, errs.Is(err, errs.KindIO))
}

func TestExecuteSequenceAbortsOnFatalError(t *testing.T) {
	kb := &fakeKeyboard{}
	e := NewExecutor(Backends{Keyboard: kb})
	prog := Program{Kind: Sequence, Children: []Program{
		{Kind: Text, Text: "one"},
		{Kind: Launch}, // no Launch backend configured -> fatal, aborts the sequence
		{Kind: Text, Text: "two"},
	}}
	err := e.Execute(context.Background(), prog, Context{})
	assert.True(t, errs.Is(err, errs.KindIO))
	assert.Equal(t, []string{"one"}, kb.typed)
}

func TestExecuteSequenceContinuesPastPluginError(t *testing.T) {
	kb := &fakeKeyboard{}
	plugin := &fakePlugin{err: assertErr{}}
	e := NewExecutor(Backends{Keyboard: kb, Plugin: plugin})
	prog := Program{Kind: Sequence, Children: []Program{
		{Kind: Plugin, PluginName: "obs"},
		{Kind: Text, Text: "after"},
	}}
	err := e.Execute(context.Background(), prog, Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, plugin.calls)
	assert.Equal(t, []string{"after"}, kb.typed)
}

func TestExecuteModeChangeUnknownMode(t *testing.T) {
	mode := &fakeMode{reject: "nope"}
	e := NewExecutor(Backends{Mode: mode})
	err := e.Execute(context.Background(), Program{Kind: ModeChange, ModeName: "nope"}, Context{})
	assert.True(t, errs.Is(err, errs.KindUnknownMode))
}

func TestExecuteConditionalBranches(t *testing.T) {
	kb := &fakeKeyboard{}
	e := NewExecutor(Backends{Keyboard: kb})
	prog := Program{
		Kind:      Conditional,
		Condition: condition.Condition{Kind: condition.ModeIs, Name: "performance"},
		Then:      &Program{Kind: Text, Text: "then"},
		Else:      &Program{Kind: Text, Text: "else"},
	}
	require.NoError(t, e.Execute(context.Background(), prog, Context{CurrentMode: "performance"}))
	assert.Equal(t, []string{"then"}, kb.typed)

	kb.typed = nil
	require.NoError(t, e.Execute(context.Background(), prog, Context{CurrentMode: "idle"}))
	assert.Equal(t, []string{"else"}, kb.typed)
}

func TestExecuteRepeatRunsCountTimesWithDelayBetween(t *testing.T) {
	kb := &fakeKeyboard{}
	e := NewExecutor(Backends{Keyboard: kb})
	delay := 1
	prog := Program{Kind: Repeat, Count: 3, IterDelayMs: &delay, Child: &Program{Kind: Text, Text: "x"}}
	start := time.Now()
	require.NoError(t, e.Execute(context.Background(), prog, Context{}))
	assert.Len(t, kb.typed, 3)
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
}

func TestExecuteSendMidiUsesFixedVelocityDefault(t *testing.T) {
	midi := &fakeMidi{}
	e := NewExecutor(Backends{Midi: midi})
	note := uint8(60)
	prog := Program{
		Kind:     SendMidi,
		MidiPort: "loopback",
		MidiType: MidiNoteOn,
		MidiParams: MidiParams{
			Note:            &note,
			VelocityMapping: VelocityMapping{Kind: VelFixed, Fixed: 90},
		},
	}
	require.NoError(t, e.Execute(context.Background(), prog, Context{}))
	require.Len(t, midi.sent, 1)
	assert.Equal(t, byte(90), midi.sent[0][2])
}

type assertErr struct{}

func (assertErr) Error() string { return "plugin failed" }
