// Package state implements the State Manager (spec §4.12): persistence of
// the daemon's lifecycle and config identity, per-plugin running statistics,
// the Engine Manager's rolling statistics, and a bounded recent-error log,
// written atomically so a crash mid-write never corrupts the on-disk record.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relaydev/conductor/errs"
)

const opLoad = "state.Load"
const opSave = "state.Save"

// stateVersion tags the persisted schema so a future format change can
// detect and migrate older state files.
const stateVersion = "1"

// maxErrorLog bounds the recent-error log the Engine Manager owns (spec
// §3/§5): inserting an 11th entry drops the oldest.
const maxErrorLog = 10

// PluginStats is the running-average execution stats kept per plugin (spec
// §4.16, supplemented feature D.3 in the expanded spec).
type PluginStats struct {
	Invocations   uint64  `json:"invocations"`
	Failures      uint64  `json:"failures"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// ReloadGrade records the wall-clock cost of the most recent config reload
// (supplemented feature D.2): Good/Fair/Poor bucketed from its duration.
// This is distinct from Statistics.Grade (spec §4.14's A/B/C rolling-average
// performance grade) — the two gradings serve different questions.
type ReloadGrade struct {
	Grade      string    `json:"grade"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// DaemonInfo is the daemon process's own identity (spec §3's Persisted
// State).
type DaemonInfo struct {
	LifecycleState string    `json:"lifecycle_state"`
	StartedAt      time.Time `json:"started_at"`
	PID            int       `json:"pid"`
}

// ConfigInfo identifies the config file the running daemon last loaded.
type ConfigInfo struct {
	Path     string    `json:"path"`
	LoadedAt time.Time `json:"loaded_at"`
	Checksum string    `json:"checksum"`
}

// DeviceStatus summarizes one input device's connection state (spec §3).
type DeviceStatus struct {
	Connected   bool       `json:"connected"`
	Name        string     `json:"name,omitempty"`
	Port        int        `json:"port,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// EngineInfo is the Engine Manager's current runtime position (spec §3).
type EngineInfo struct {
	CurrentMode      string       `json:"current_mode"`
	CurrentModeIndex int          `json:"current_mode_index"`
	DeviceStatus     DeviceStatus `json:"device_status"`
}

// Statistics is the Engine Manager's running counters (spec §4.14): event
// and error counts since start, reload counts and timing, and the rolling
// A(<20ms)/B(<50ms)/C(otherwise) performance grade derived from the average
// reload duration.
type Statistics struct {
	EventsProcessed      uint64  `json:"events_processed"`
	ErrorsSinceStart     uint64  `json:"errors_since_start"`
	ConfigReloads        uint64  `json:"config_reloads"`
	UptimeSecs           int64   `json:"uptime_secs"`
	LastReloadDurationMs int64   `json:"last_reload_duration_ms"`
	FastestReloadMs      int64   `json:"fastest_reload_ms"`
	SlowestReloadMs      int64   `json:"slowest_reload_ms"`
	AvgReloadMs          float64 `json:"avg_reload_ms"`
	Grade                string  `json:"grade"`
}

// ErrorLogEntry is one entry in the bounded recent-error log (spec §3/§5).
type ErrorLogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// State is the full persisted record (spec §3/§4.12).
type State struct {
	Version     string                 `json:"version"`
	Daemon      DaemonInfo             `json:"daemon"`
	Config      ConfigInfo             `json:"config"`
	Engine      EngineInfo             `json:"engine"`
	Statistics  Statistics             `json:"statistics"`
	LastErrors  []ErrorLogEntry        `json:"last_errors"`
	PluginStats map[string]PluginStats `json:"plugin_stats"`
	LastReload  *ReloadGrade           `json:"last_reload,omitempty"`
	SavedAt     time.Time              `json:"saved_at"`
}

// Manager guards State behind a mutex and persists it atomically to a single
// file path.
type Manager struct {
	mu   sync.RWMutex
	path string
	st   State
}

// New constructs a Manager over path, loading any existing state file. A
// missing file is not an error: it starts from a zero-value State (spec
// §4.12's first-run behavior).
func New(path string) (*Manager, error) {
	m := &Manager{path: path, st: State{PluginStats: make(map[string]PluginStats), Version: stateVersion}}
	if err := m.load(); err != nil && !os.IsNotExist(err) {
		return nil, errs.Wrap(errs.KindStatePersistence, opLoad, err)
	}
	if m.st.Version == "" {
		m.st.Version = stateVersion
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return errs.Wrap(errs.KindParse, opLoad, err)
	}
	if st.PluginStats == nil {
		st.PluginStats = make(map[string]PluginStats)
	}
	m.st = st
	return nil
}

// CurrentMode returns the persisted current mode name.
func (m *Manager) CurrentMode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Engine.CurrentMode
}

// SetCurrentMode records the active mode (and its index into the compiled
// mode table) and persists it.
func (m *Manager) SetCurrentMode(mode string, index int) error {
	m.mu.Lock()
	m.st.Engine.CurrentMode = mode
	m.st.Engine.CurrentModeIndex = index
	m.mu.Unlock()
	return m.persist()
}

// SetDaemonInfo records the daemon process's lifecycle state and identity
// and persists it. PID is taken from the running process.
func (m *Manager) SetDaemonInfo(lifecycleState string, startedAt time.Time) error {
	m.mu.Lock()
	m.st.Daemon = DaemonInfo{LifecycleState: lifecycleState, StartedAt: startedAt, PID: os.Getpid()}
	m.mu.Unlock()
	return m.persist()
}

// SetLifecycleState updates just the daemon's lifecycle state label without
// touching its recorded start time.
func (m *Manager) SetLifecycleState(lifecycleState string) error {
	m.mu.Lock()
	m.st.Daemon.LifecycleState = lifecycleState
	m.mu.Unlock()
	return m.persist()
}

// SetConfigInfo records which config file is loaded, when, and its checksum,
// and persists it.
func (m *Manager) SetConfigInfo(path string, loadedAt time.Time, checksum string) error {
	m.mu.Lock()
	m.st.Config = ConfigInfo{Path: path, LoadedAt: loadedAt, Checksum: checksum}
	m.mu.Unlock()
	return m.persist()
}

// SetDeviceStatus records the input device's current connection state. This
// is re-derived from the live device manager on every Status query, so it is
// not persisted on every call.
func (m *Manager) SetDeviceStatus(ds DeviceStatus) {
	m.mu.Lock()
	m.st.Engine.DeviceStatus = ds
	m.mu.Unlock()
}

// RecordEvent increments the events-processed counter (spec §4.14). It does
// not persist: called once per processed gesture, it would otherwise make
// every input event pay for an fsync.
func (m *Manager) RecordEvent() {
	m.mu.Lock()
	m.st.Statistics.EventsProcessed++
	m.mu.Unlock()
}

// RecordError increments the errors-since-start counter, appends msg to the
// bounded 10-entry recent-error log (dropping the oldest entry past that
// bound), and persists the result (spec §3/§5).
func (m *Manager) RecordError(msg string) error {
	m.mu.Lock()
	m.st.Statistics.ErrorsSinceStart++
	m.st.LastErrors = append(m.st.LastErrors, ErrorLogEntry{At: timeNow(), Message: msg})
	if len(m.st.LastErrors) > maxErrorLog {
		m.st.LastErrors = m.st.LastErrors[len(m.st.LastErrors)-maxErrorLog:]
	}
	m.mu.Unlock()
	return m.persist()
}

// RecordPluginExecution folds one plugin invocation's outcome into its
// running-average stats (supplemented feature D.3).
func (m *Manager) RecordPluginExecution(name string, durationMs float64, failed bool) error {
	m.mu.Lock()
	s := m.st.PluginStats[name]
	n := float64(s.Invocations)
	s.AvgDurationMs = (s.AvgDurationMs*n + durationMs) / (n + 1)
	s.Invocations++
	if failed {
		s.Failures++
	}
	m.st.PluginStats[name] = s
	m.mu.Unlock()
	return m.persist()
}

// PluginStatsFor returns a copy of one plugin's stats.
func (m *Manager) PluginStatsFor(name string) PluginStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.PluginStats[name]
}

// RecordReload grades and persists the duration of a completed config
// reload (supplemented feature D.2's Good/Fair/Poor single-reload grade),
// and folds it into the Engine Manager's rolling reload statistics (spec
// §4.14): count, fastest/slowest/average duration, and the A(<20ms)/
// B(<50ms)/C(otherwise) performance grade derived from the rolling average.
func (m *Manager) RecordReload(duration time.Duration, at time.Time) error {
	ms := duration.Milliseconds()
	grade := "Poor"
	switch {
	case ms <= 50:
		grade = "Good"
	case ms <= 250:
		grade = "Fair"
	}

	m.mu.Lock()
	m.st.LastReload = &ReloadGrade{Grade: grade, DurationMs: ms, At: at}

	s := &m.st.Statistics
	s.ConfigReloads++
	s.LastReloadDurationMs = ms
	if s.ConfigReloads == 1 || ms < s.FastestReloadMs {
		s.FastestReloadMs = ms
	}
	if ms > s.SlowestReloadMs {
		s.SlowestReloadMs = ms
	}
	s.AvgReloadMs = (s.AvgReloadMs*float64(s.ConfigReloads-1) + float64(ms)) / float64(s.ConfigReloads)
	s.Grade = reloadPerformanceGrade(s.AvgReloadMs)
	m.mu.Unlock()
	return m.persist()
}

// reloadPerformanceGrade buckets the Engine Manager's rolling average reload
// duration into spec §4.14's A/B/C performance grade.
func reloadPerformanceGrade(avgMs float64) string {
	switch {
	case avgMs < 20:
		return "A"
	case avgMs < 50:
		return "B"
	default:
		return "C"
	}
}

// Snapshot returns a copy of the current persisted record with UptimeSecs
// computed live from the daemon's recorded start time (spec §4.14).
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	st := m.st
	m.mu.RUnlock()
	if !st.Daemon.StartedAt.IsZero() {
		st.Statistics.UptimeSecs = int64(timeNow().Sub(st.Daemon.StartedAt).Seconds())
	}
	return st
}

// persist writes the current state to a sibling temp file, fsyncs it, then
// renames it over the target path so a crash mid-write never leaves a
// truncated or partially-written state file behind (spec §4.12/§9).
func (m *Manager) persist() error {
	m.mu.RLock()
	m.st.SavedAt = timeNow()
	data, err := json.MarshalIndent(m.st, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return errs.Wrap(errs.KindStatePersistence, opSave, err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return errs.Wrap(errs.KindStatePersistence, opSave, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindStatePersistence, opSave, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindStatePersistence, opSave, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindStatePersistence, opSave, err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return errs.Wrap(errs.KindStatePersistence, opSave, err)
	}
	return nil
}

// timeNow is a seam so tests can observe deterministic SavedAt values.
var timeNow = defaultTimeNow
