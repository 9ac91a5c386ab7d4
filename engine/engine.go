package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/relaydev/conductor/action"
	"github.com/relaydev/conductor/config"
	"github.com/relaydev/conductor/configwatch"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/events"
	"github.com/relaydev/conductor/input"
	"github.com/relaydev/conductor/logging"
	"github.com/relaydev/conductor/mapping"
	"github.com/relaydev/conductor/state"
)

const opReload = "engine.Manager.Reload"
const opSetMode = "engine.Manager.SetMode"

// AppInspector supplies the frontmost/running application state Conditional
// actions can branch on (spec §4.5); an external collaborator since the
// concrete mechanism is platform-specific.
type AppInspector interface {
	FrontmostApp() string
	RunningApps() []string
}

// ListDevicesFunc enumerates the names of available input devices (spec
// §4.13's ListDevices command); cmd/conductord wires this to the concrete
// device manager's port enumeration (e.g. devices/midi.ListPorts).
type ListDevicesFunc func() []string

// DeviceStatusFunc reports the active input device's current connection
// state (spec §4.13's GetDevice command and §3's Persisted State); wired to
// the concrete device manager's status accessor.
type DeviceStatusFunc func() state.DeviceStatus

// Manager is the Engine Manager (spec §4.14): it owns the active config,
// compiled mapping table, and current mode, drives the Input Manager's
// processed-event stream through matching mappings into the Action
// Executor. Reload swaps the config and table under mu; an execution already
// in flight finishes against the table it started with.
type Manager struct {
	mu          sync.RWMutex
	cfg         config.Config
	table       *mapping.Table
	currentMode string

	configPath string
	executor   *action.Executor
	st         *state.Manager
	inspector  AppInspector
	input      *input.Manager
	startedAt  time.Time

	listDevices    ListDevicesFunc
	listHIDDevices ListDevicesFunc
	deviceStatus   DeviceStatusFunc

	lifecycle *lifecycle
	log       *slog.Logger
}

// New constructs a Manager from an already-loaded, already-validated config.
func New(configPath string, cfg config.Config, executor *action.Executor, st *state.Manager, inspector AppInspector) (*Manager, error) {
	table, err := mapping.Compile(cfg)
	if err != nil {
		return nil, err
	}

	mode := ""
	if len(cfg.Modes) > 0 {
		mode = cfg.Modes[0].Name
	}
	if st != nil {
		if saved := st.CurrentMode(); saved != "" {
			if _, ok := table.ModeByName(saved); ok {
				mode = saved
			}
		}
	}

	startedAt := time.Now()
	if st != nil {
		_ = st.SetDaemonInfo(StateInit.String(), startedAt)
		_ = st.SetConfigInfo(configPath, startedAt, checksumFile(configPath))
		if idx, ok := table.ModesByName[mode]; ok {
			_ = st.SetCurrentMode(mode, idx)
		}
	}

	return &Manager{
		cfg:         cfg,
		table:       table,
		currentMode: mode,
		configPath:  configPath,
		executor:    executor,
		st:          st,
		inspector:   inspector,
		startedAt:   startedAt,
		lifecycle:   newLifecycle(),
		log:         logging.Get(logging.Engine),
	}, nil
}

// checksumFile returns "sha256:<hex>" of path's contents, or "" if it cannot
// be read (spec §3's config.checksum).
func checksumFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// SetListDevicesFunc attaches the input-port enumerator used by the
// ListDevices IPC command.
func (m *Manager) SetListDevicesFunc(f ListDevicesFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDevices = f
}

// SetDeviceStatusFunc attaches the device-status accessor used by the
// Status and GetDevice IPC commands.
func (m *Manager) SetDeviceStatusFunc(f DeviceStatusFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deviceStatus = f
}

// SetListHIDDevicesFunc attaches the HID gamepad enumerator reported in the
// Status command's device list (spec §4.13).
func (m *Manager) SetListHIDDevicesFunc(f ListDevicesFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listHIDDevices = f
}

// ListHIDDevices enumerates attached HID gamepad names, or nil if no
// enumerator has been attached.
func (m *Manager) ListHIDDevices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listHIDDevices == nil {
		return nil
	}
	return m.listHIDDevices()
}

// ListDevices enumerates available input device names, or nil if no
// enumerator has been attached.
func (m *Manager) ListDevices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listDevices == nil {
		return nil
	}
	return m.listDevices()
}

// DeviceStatus reports the active input device's current connection state,
// or a zero-value state.DeviceStatus if no accessor has been attached.
func (m *Manager) DeviceStatus() state.DeviceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.deviceStatus == nil {
		return state.DeviceStatus{}
	}
	return m.deviceStatus()
}

// Statistics returns the Engine Manager's running statistics (spec §4.14),
// or a zero value if no State Manager is attached.
func (m *Manager) Statistics() state.Statistics {
	if m.st == nil {
		return state.Statistics{}
	}
	return m.st.Snapshot().Statistics
}

// Uptime returns how long the Engine Manager has been running.
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// ConfigPath returns the path of the config file this Manager was loaded
// from.
func (m *Manager) ConfigPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// ValidateConfigResult is the ValidateConfig IPC command's response (spec
// §4.13): whether the config loaded and validated cleanly, the modes and
// total mapping count it compiled to, and any non-fatal warnings.
type ValidateConfigResult struct {
	Valid    bool     `json:"valid"`
	Modes    []string `json:"modes"`
	Mappings int      `json:"mappings"`
	Warnings []string `json:"warnings"`
}

// ValidateConfig loads, validates, and compiles the config at path (or the
// currently loaded config's path, if empty) without swapping it into the
// running Manager (spec §4.13). Load/validate/compile failures are reported
// as a warning with Valid=false rather than an error, matching ValidateConfig's
// contract of always returning a result.
func (m *Manager) ValidateConfig(path string) ValidateConfigResult {
	if path == "" {
		m.mu.RLock()
		path = m.configPath
		m.mu.RUnlock()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return ValidateConfigResult{Warnings: []string{err.Error()}}
	}
	table, err := mapping.Compile(cfg)
	if err != nil {
		return ValidateConfigResult{Warnings: []string{err.Error()}}
	}

	modes := make([]string, len(table.Modes))
	count := len(table.Global)
	for i, mode := range table.Modes {
		modes[i] = mode.Name
		count += len(mode.Mappings)
	}
	return ValidateConfigResult{Valid: true, Modes: modes, Mappings: count}
}

// SetInputManager attaches the Input Manager whose raw gesture stream
// LearnTrigger subscribes to. It is a setter rather than a New parameter;
// cmd/conductord attaches the Input Manager here once both exist.
func (m *Manager) SetInputManager(im *input.Manager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input = im
}

// State returns the Manager's current lifecycle state.
func (m *Manager) State() State {
	return m.lifecycle.current()
}

// CurrentMode returns the active mode's name.
func (m *Manager) CurrentMode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentMode
}

// Start transitions Init -> Starting -> Running (spec §4.14).
func (m *Manager) Start() error {
	if err := m.lifecycle.transition(StateStarting); err != nil {
		return err
	}
	if err := m.lifecycle.transition(StateRunning); err != nil {
		return err
	}
	m.recordLifecycle()
	return nil
}

// Stop transitions the current state to Stopping -> Stopped.
func (m *Manager) Stop() error {
	if err := m.lifecycle.transition(StateStopping); err != nil {
		return err
	}
	m.recordLifecycle()
	if err := m.lifecycle.transition(StateStopped); err != nil {
		return err
	}
	m.recordLifecycle()
	return nil
}

// recordLifecycle persists the Engine Manager's current lifecycle state
// label (spec §3's daemon.lifecycle_state).
func (m *Manager) recordLifecycle() {
	if m.st != nil {
		_ = m.st.SetLifecycleState(m.lifecycle.current().String())
	}
}

// SetMode implements action.ModeSwitcher: switching to an unknown mode
// fails with errs.KindUnknownMode, leaving the current mode unchanged
// (spec §4.5/§4.14).
func (m *Manager) SetMode(name string) error {
	m.mu.Lock()
	_, ok := m.table.ModeByName(name)
	if !ok {
		m.mu.Unlock()
		return errs.New(errs.KindUnknownMode, opSetMode, "unknown mode: "+name)
	}
	m.currentMode = name
	idx := m.table.ModesByName[name]
	m.mu.Unlock()

	if m.st != nil {
		return m.st.SetCurrentMode(name, idx)
	}
	return nil
}

// ListModes returns every configured mode's name.
func (m *Manager) ListModes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.table.Modes))
	for i, mode := range m.table.Modes {
		names[i] = mode.Name
	}
	return names
}

// Reload re-reads and recompiles the config at configPath, then atomically
// swaps it in. The swap is built-then-swap: compilation happens against a
// local copy so the critical section under the write lock is just the
// pointer swap, bounding how long concurrent event handling is blocked
// (spec §4.10/§9).
func (m *Manager) Reload() error {
	start := time.Now()

	cfg, err := config.Load(m.configPath)
	if err != nil {
		return errs.Wrap(errs.KindParse, opReload, err)
	}
	table, err := mapping.Compile(cfg)
	if err != nil {
		return err
	}

	if err := m.lifecycle.transition(StateReloading); err != nil {
		return err
	}
	m.recordLifecycle()

	m.mu.Lock()
	m.cfg = cfg
	m.table = table
	if _, ok := table.ModeByName(m.currentMode); !ok {
		if len(table.Modes) > 0 {
			m.currentMode = table.Modes[0].Name
		} else {
			m.currentMode = ""
		}
	}
	idx := table.ModesByName[m.currentMode]
	mode := m.currentMode
	m.mu.Unlock()

	if err := m.lifecycle.transition(StateRunning); err != nil {
		return err
	}
	m.recordLifecycle()

	if m.st != nil {
		_ = m.st.RecordReload(time.Since(start), time.Now())
		_ = m.st.SetConfigInfo(m.configPath, time.Now(), checksumFile(m.configPath))
		_ = m.st.SetCurrentMode(mode, idx)
	}
	m.log.Info("config reloaded", "duration", time.Since(start))
	return nil
}

const opLearnTrigger = "engine.Manager.LearnTrigger"

// LearnTrigger blocks for the next gesture on the raw processed-event
// stream, or until timeout elapses (supplemented feature D.1: watching the
// input stream for one gesture to help build a mapping interactively,
// without touching the mapping table).
func (m *Manager) LearnTrigger(ctx context.Context, timeout time.Duration) (events.ProcessedEvent, error) {
	m.mu.RLock()
	im := m.input
	m.mu.RUnlock()
	if im == nil {
		return events.ProcessedEvent{}, errs.New(errs.KindNotImplemented, opLearnTrigger, "no input manager attached")
	}

	ch, cancel := im.Subscribe()
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-ch:
		return ev, nil
	case <-timer.C:
		return events.ProcessedEvent{}, errs.New(errs.KindIO, opLearnTrigger, "timed out waiting for a gesture")
	case <-ctx.Done():
		return events.ProcessedEvent{}, errs.Wrap(errs.KindIO, opLearnTrigger, ctx.Err())
	}
}

// WatchConfig runs a configwatch.Watcher's debounced change notifications
// into Reload until ctx is cancelled.
func (m *Manager) WatchConfig(ctx context.Context, w *configwatch.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Changed:
			if err := m.Reload(); err != nil {
				m.log.Error("config reload failed", "error", err)
			}
		}
	}
}

// HandleProcessedEvent matches ev against the global mappings, then falls
// back to the active mode's mappings, executing the first match's action
// (spec §4.3/§9: global mappings win over mode-specific mappings if both
// match, so an escape-hatch mapping like a panic-stop CC stays reliable
// across user-defined modes). Only the first matching mapping runs; later
// ones are not considered.
func (m *Manager) HandleProcessedEvent(ctx context.Context, ev events.ProcessedEvent) {
	if m.st != nil {
		m.st.RecordEvent()
	}

	m.mu.RLock()
	mode, _ := m.table.ModeByName(m.currentMode)
	global := m.table.Global
	currentMode := m.currentMode
	m.mu.RUnlock()

	prog, desc, ok := matchMappings(global, ev)
	if !ok {
		prog, desc, ok = matchMappings(mode.Mappings, ev)
	}
	if !ok {
		return
	}

	actx := action.Context{CurrentMode: currentMode, Now: time.Now()}
	if ev.Kind == events.ProcPadPressed {
		v := ev.Velocity
		actx.Velocity = &v
	}
	if m.inspector != nil {
		actx.FrontmostApp = m.inspector.FrontmostApp()
		actx.RunningApps = m.inspector.RunningApps()
	}

	if err := m.executor.Execute(ctx, prog, actx); err != nil {
		m.log.Error("action execution failed", "mapping", desc, "error", err)
		if m.st != nil {
			_ = m.st.RecordError(desc + ": " + err.Error())
		}
	}
}

func matchMappings(mappings []mapping.CompiledMapping, ev events.ProcessedEvent) (action.Program, string, bool) {
	for _, cm := range mappings {
		if mapping.Match(cm.Trigger, ev) {
			return cm.Program, cm.Description, true
		}
	}
	return action.Program{}, "", false
}

// RunInput drives processed events from an input.Manager into
// HandleProcessedEvent until its channel closes or ctx is cancelled.
func (m *Manager) RunInput(ctx context.Context, im *input.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-im.Processed:
			if !ok {
				return
			}
			m.HandleProcessedEvent(ctx, ev)
		}
	}
}
