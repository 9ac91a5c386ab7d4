package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydev/conductor/action"
	"github.com/relaydev/conductor/config"
)

func TestCompileBuildsModesAndGlobals(t *testing.T) {
	cfg := config.Config{
		Modes: []config.Mode{
			{
				Name: "performance",
				Mappings: []config.Mapping{
					{
						Trigger: config.Trigger{Type: config.TriggerNote, Note: intPtr(60)},
						Action:  config.Action{Type: config.ActionLaunch, App: "Ableton Live"},
					},
				},
			},
		},
		Global: []config.Mapping{
			{
				Trigger: config.Trigger{Type: config.TriggerNote, Note: intPtr(61)},
				Action:  config.Action{Type: config.ActionModeChange, Mode: "idle"},
			},
		},
	}

	table, err := Compile(cfg)
	require.NoError(t, err)

	mode, ok := table.ModeByName("performance")
	require.True(t, ok)
	require.Len(t, mode.Mappings, 1)
	assert.Equal(t, action.Launch, mode.Mappings[0].Program.Kind)
	assert.Equal(t, "Ableton Live", mode.Mappings[0].Program.App)

	require.Len(t, table.Global, 1)
	assert.Equal(t, action.ModeChange, table.Global[0].Program.Kind)
}

func TestCompileSendMidiDefaultsToFixedVelocity(t *testing.T) {
	cfg := config.Config{
		Global: []config.Mapping{
			{
				Trigger: config.Trigger{Type: config.TriggerNote, Note: intPtr(60)},
				Action: config.Action{
					Type:    config.ActionSendMidi,
					Port:    "loopback",
					MsgType: "NoteOn",
					Params:  config.SendMidiParams{Note: intPtr(60)},
				},
			},
		},
	}

	table, err := Compile(cfg)
	require.NoError(t, err)

	params := table.Global[0].Program.MidiParams
	assert.Equal(t, action.VelFixed, params.VelocityMapping.Kind)
	assert.Equal(t, 100, params.VelocityMapping.Fixed)
}

func TestCompileRejectsUnknownKey(t *testing.T) {
	cfg := config.Config{
		Global: []config.Mapping{
			{
				Trigger: config.Trigger{Type: config.TriggerNote, Note: intPtr(60)},
				Action:  config.Action{Type: config.ActionKeystroke, Keys: []string{"NotARealKey"}},
			},
		},
	}
	_, err := Compile(cfg)
	assert.Error(t, err)
}

func intPtr(v int) *int { return &v }
