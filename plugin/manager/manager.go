// Package manager implements the Plugin Manager (spec §4.16): discovering
// plugin directories, loading their manifest + WASM binary (optionally
// signature-verified), enforcing declared capabilities at execution time,
// and recording running per-plugin statistics. Grounded on the original
// Rust daemon's plugin_manager.rs discover/load/execute lifecycle.
package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaydev/conductor/action"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/plugin"
	"github.com/relaydev/conductor/plugin/signing"
	"github.com/relaydev/conductor/plugin/wasm"
	"github.com/relaydev/conductor/state"
)

const opDiscover = "manager.Discover"
const opLoad = "manager.Load"
const opExecute = "manager.Execute"

const manifestFile = "plugin.yaml"
const binaryFile = "plugin.wasm"
const sigFile = "plugin.wasm.sig"

type loadedPlugin struct {
	meta    plugin.Metadata
	sandbox *wasm.Sandbox
	caps    map[plugin.Capability]bool
}

// Manager loads and runs plugins discovered under a plugins directory
// (spec §4.16). It satisfies action.PluginInvoker.
type Manager struct {
	pluginsDir  string
	requireSig  bool
	trustedKeys []string
	state       *state.Manager
	grants      map[string][]plugin.Capability

	mu     sync.RWMutex
	loaded map[string]*loadedPlugin
}

// New constructs a Manager rooted at pluginsDir. When requireSignature is
// set, Load refuses any plugin lacking a valid `.wasm.sig` signed by one of
// trustedKeys. grants maps a plugin name to the elevated capabilities
// (Filesystem, Subprocess, SystemControl) an operator has explicitly
// approved for it; low-risk capabilities (Network, Audio, Midi) need no
// entry here since they are auto-granted (spec §4.15). A nil grants map
// behaves as if no plugin has been granted any elevated capability.
func New(pluginsDir string, requireSignature bool, trustedKeys []string, st *state.Manager, grants map[string][]plugin.Capability) *Manager {
	return &Manager{
		pluginsDir:  pluginsDir,
		requireSig:  requireSignature,
		trustedKeys: trustedKeys,
		state:       st,
		grants:      grants,
		loaded:      make(map[string]*loadedPlugin),
	}
}

// grantedCapabilities computes the effective capability set for a plugin
// named name that declares declared: every low-risk capability it declares,
// plus any elevated capability it declares that also appears in this
// Manager's explicit grants for name (spec §4.15/§4.16).
func (m *Manager) grantedCapabilities(name string, declared []plugin.Capability) map[plugin.Capability]bool {
	explicit := make(map[plugin.Capability]bool, len(m.grants[name]))
	for _, c := range m.grants[name] {
		explicit[c] = true
	}
	granted := make(map[plugin.Capability]bool, len(declared))
	for _, c := range declared {
		if plugin.IsLowRisk(c) || explicit[c] {
			granted[c] = true
		}
	}
	return granted
}

// Discover scans the plugins directory and returns the names of
// subdirectories containing a valid manifest, without loading them.
func (m *Manager) Discover() ([]string, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		return nil, errs.Wrap(errs.KindPluginLoad, opDiscover, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(m.pluginsDir, e.Name(), manifestFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Load reads a plugin's manifest and WASM binary, optionally verifying its
// signature, and compiles it into a ready-to-call sandbox.
func (m *Manager) Load(ctx context.Context, name string) error {
	dir := filepath.Join(m.pluginsDir, name)

	manifestBytes, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return errs.Wrap(errs.KindPluginLoad, opLoad, err)
	}
	var meta plugin.Metadata
	if err := yaml.Unmarshal(manifestBytes, &meta); err != nil {
		return errs.Wrap(errs.KindPluginLoad, opLoad, err)
	}

	binaryPath := filepath.Join(dir, binaryFile)
	if m.requireSig || meta.Signed {
		if err := signing.Verify(binaryPath, filepath.Join(dir, sigFile), m.trustedKeys); err != nil {
			return errs.Wrap(errs.KindPluginLoad, opLoad, err)
		}
	}

	wasmBytes, err := os.ReadFile(binaryPath)
	if err != nil {
		return errs.Wrap(errs.KindPluginLoad, opLoad, err)
	}

	granted := m.grantedCapabilities(name, meta.Capabilities)

	cfg := wasm.DefaultConfig()
	caps := make([]plugin.Capability, 0, len(granted))
	for c := range granted {
		caps = append(caps, c)
	}
	cfg.Capabilities = caps

	sb, err := wasm.Load(ctx, wasmBytes, meta, cfg)
	if err != nil {
		return errs.Wrap(errs.KindPluginLoad, opLoad, err)
	}

	m.mu.Lock()
	m.loaded[name] = &loadedPlugin{meta: meta, sandbox: sb, caps: granted}
	m.mu.Unlock()
	return nil
}

// Unload releases a loaded plugin's sandbox.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	lp, ok := m.loaded[name]
	if ok {
		delete(m.loaded, name)
	}
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.KindPluginLoad, "manager.Unload", "plugin not loaded: "+name)
	}
	return lp.sandbox.Close(ctx)
}

// ListLoaded returns the names of currently loaded plugins.
func (m *Manager) ListLoaded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	return names
}

// Execute implements action.PluginInvoker: invokes a loaded plugin with the
// triggering gesture's context, recording duration/failure stats (spec
// §4.16's supplemented per-plugin stats).
func (m *Manager) Execute(ctx context.Context, name string, params map[string]string, trig action.TriggerContext) error {
	m.mu.RLock()
	lp, ok := m.loaded[name]
	m.mu.RUnlock()
	if !ok {
		return errs.New(errs.KindPluginExecution, opExecute, "plugin not loaded: "+name)
	}

	for _, c := range lp.meta.Capabilities {
		if !lp.caps[c] {
			return errs.New(errs.KindPermissionDenied, opExecute, "plugin "+name+" is not granted capability "+string(c))
		}
	}

	pt := plugin.TriggerContext{Velocity: trig.Velocity, CurrentMode: trig.CurrentMode}

	start := time.Now()
	err := lp.sandbox.Call(ctx, pt, params)
	duration := time.Since(start)

	if m.state != nil {
		if serr := m.state.RecordPluginExecution(name, float64(duration.Milliseconds()), err != nil); serr != nil {
			return errs.Wrap(errs.KindPluginExecution, opExecute, serr)
		}
	}

	if err != nil {
		return errs.Wrap(errs.KindPluginExecution, opExecute, err)
	}
	return nil
}
