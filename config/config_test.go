package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Device:   Device{Name: "Launchpad X"},
		Advanced: DefaultAdvancedSettings(),
		Global: []Mapping{
			{
				Trigger: Trigger{Type: TriggerNote, Note: intPtr(60)},
				Action:  Action{Type: ActionLaunch, App: "Ableton Live"},
			},
		},
	}
}

func intPtr(v int) *int { return &v }

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsMissingDeviceName(t *testing.T) {
	cfg := validConfig()
	cfg.Device.Name = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsDuplicateModeNames(t *testing.T) {
	cfg := validConfig()
	cfg.Modes = []Mode{{Name: "a"}, {Name: "a"}}
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsShellMetacharacters(t *testing.T) {
	cfg := validConfig()
	cfg.Global[0].Action = Action{Type: ActionShell, Command: "rm -rf $(pwd)"}
	assert.Error(t, Validate(cfg))
}

func TestValidateAcceptsPlainShellCommand(t *testing.T) {
	cfg := validConfig()
	cfg.Global[0].Action = Action{Type: ActionShell, Command: "open -a Terminal"}
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsNonPositiveTimingWindows(t *testing.T) {
	cfg := validConfig()
	cfg.Advanced.ChordTimeoutMs = 0
	assert.Error(t, Validate(cfg))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := validConfig()

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Device.Name, loaded.Device.Name)
	require.Len(t, loaded.Global, 1)
	assert.Equal(t, TriggerNote, loaded.Global[0].Trigger.Type)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[device]\nname = \"\"\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := validConfig()
	cfg.Device.Name = ""
	assert.Error(t, Save(path, cfg))
}
