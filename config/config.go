package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/relaydev/conductor/errs"
)

const opLoad = "config.Load"
const opSave = "config.Save"

// Load reads and validates a config file at path (spec §4.10).
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errs.Wrap(errs.KindParse, opLoad, err)
	}
	if cfg.Advanced == (AdvancedSettings{}) {
		cfg.Advanced = DefaultAdvancedSettings()
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save validates and atomically writes cfg to path: it is written to a
// sibling temp file, fsynced, then renamed over path so a crash mid-write
// never leaves a truncated config behind (spec §4.10/§9).
func Save(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return errs.Wrap(errs.KindIO, opSave, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, opSave, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, opSave, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindIO, opSave, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.KindIO, opSave, err)
	}
	return nil
}
