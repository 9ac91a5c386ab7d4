// Package midi implements the MIDI Input Device Manager (spec §4.8): opening
// a gomidi input port, translating its raw messages into events.InputEvent,
// and reconnecting with the shared backoff schedule when the device drops.
package midi

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/relaydev/conductor/backoff"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/events"
	"github.com/relaydev/conductor/logging"
)

const opRun = "midi.Manager.Run"
const opConnect = "midi.Manager.connect"

// Status is the Manager's current connection state, surfaced to the Engine
// Manager's lifecycle state machine (spec §4.14).
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusReconnecting
	StatusFailed
)

// PortOpener abstracts gomidi's port lookup so tests can substitute a mock
// port instead of a real driver (spec's devices/midi_harness pattern).
type PortOpener func(name string) (drivers.In, error)

// DeviceInfo summarizes the MIDI input device's current connection state for
// the IPC Status/GetDevice commands (spec §4.13).
type DeviceInfo struct {
	Connected   bool
	Name        string
	Port        int
	LastEventAt time.Time
}

// Manager owns one MIDI input port's lifecycle: connect, listen, and
// reconnect-with-backoff on disconnection (spec §4.8).
type Manager struct {
	deviceName string
	openPort   PortOpener
	autoReconn bool

	mu            sync.RWMutex
	status        Status
	stop          func()
	connectedName string
	connectedPort int
	lastEventAt   time.Time

	Events chan events.InputEvent

	log *slog.Logger
}

// New constructs a Manager for deviceName. opener is typically
// OpenGomidiPort; tests substitute a function returning a mock port.
func New(deviceName string, autoReconnect bool, opener PortOpener) *Manager {
	return &Manager{
		deviceName: deviceName,
		openPort:   opener,
		autoReconn: autoReconnect,
		Events:     make(chan events.InputEvent, 256),
		log:        logging.Get(logging.MIDIIn),
	}
}

// ListPorts enumerates the names of every available MIDI input port (spec
// §4.13's ListDevices command).
func ListPorts() []string {
	ins := gomidi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// OpenGomidiPort selects an input port by substring match of the configured
// name against each available port's name, falling back to port 0 (logged
// as a warning) when nothing matches (spec §4.6/§4.8; grounded on the
// original Rust daemon's midi_device.rs connect(), which does
// `name.contains(&self.device_name)` then falls back to `ports[0]`).
func OpenGomidiPort(name string) (drivers.In, error) {
	ins := gomidi.GetInPorts()
	if len(ins) == 0 {
		return nil, errs.New(errs.KindDevice, opConnect, "no MIDI input ports available")
	}
	for _, in := range ins {
		if strings.Contains(in.String(), name) {
			return in, nil
		}
	}
	logging.Get(logging.MIDIIn).Warn("no MIDI input port matched configured name, falling back to port 0",
		"configured", name, "fallback", ins[0].String())
	return ins[0], nil
}

// connect opens the configured device by name and returns the resolved
// port's index and name (spec §4.8's `connect() -> (port_index, port_name)`).
func (m *Manager) connect() (int, string, drivers.In, error) {
	in, err := m.openPort(m.deviceName)
	if err != nil {
		return 0, "", nil, errs.Wrap(errs.KindDevice, opConnect, err)
	}
	index := -1
	for i, candidate := range gomidi.GetInPorts() {
		if candidate.String() == in.String() {
			index = i
			break
		}
	}
	return index, in.String(), in, nil
}

// Status returns the Manager's current connection state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// DeviceInfo returns the MIDI input device's current connection state (spec
// §4.8's device_info() and §4.13's GetDevice command).
func (m *Manager) DeviceInfo() DeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return DeviceInfo{
		Connected:   m.status == StatusConnected,
		Name:        m.connectedName,
		Port:        m.connectedPort,
		LastEventAt: m.lastEventAt,
	}
}

// Run connects and listens until ctx is cancelled, reconnecting on
// disconnection per the shared backoff schedule when autoReconn is set.
// It closes Events and returns when ctx is cancelled or reconnection is
// exhausted.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.Events)

	for {
		err := m.runOnce(ctx)
		if ctx.Err() != nil {
			m.setStatus(StatusDisconnected)
			return nil
		}
		if !m.autoReconn {
			m.setStatus(StatusFailed)
			return errs.Wrap(errs.KindDevice, opRun, err)
		}

		m.setStatus(StatusReconnecting)
		m.log.Warn("MIDI device disconnected, reconnecting", "device", m.deviceName, "error", err)

		attempt := 0
		for {
			if backoff.Exhausted(attempt) {
				m.setStatus(StatusFailed)
				return errs.New(errs.KindReconnection, opRun, "reconnection attempts exhausted for "+m.deviceName)
			}
			delay := backoff.Delay(attempt)
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				m.setStatus(StatusDisconnected)
				return nil
			case <-t.C:
			}
			if _, perr := m.openPort(m.deviceName); perr == nil {
				break
			}
			attempt++
		}
	}
}

func (m *Manager) runOnce(ctx context.Context) error {
	index, name, in, err := m.connect()
	if err != nil {
		return err
	}
	if err := in.Open(); err != nil {
		return errs.Wrap(errs.KindDevice, opConnect, err)
	}
	defer in.Close()

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		ev, err := events.ParseMIDI(msg.Bytes())
		if err != nil {
			m.log.Debug("dropped unparseable MIDI message", "error", err)
			return
		}
		ev.Time = time.Now()
		m.mu.Lock()
		m.lastEventAt = ev.Time
		m.mu.Unlock()
		select {
		case m.Events <- ev:
		default:
			m.log.Warn("input event queue full, dropping event")
		}
	})
	if err != nil {
		return errs.Wrap(errs.KindDevice, opConnect, err)
	}

	m.mu.Lock()
	m.stop = stop
	m.status = StatusConnected
	m.connectedName = name
	m.connectedPort = index
	m.mu.Unlock()
	m.log.Info("MIDI device connected", "device", m.deviceName, "resolved_name", name, "port", index)

	// gomidi's ListenTo has no disconnect callback; an unplugged device
	// surfaces here only as ctx cancellation from its caller, or silence
	// on Events. Runtime disconnect detection beyond that is out of scope.
	<-ctx.Done()
	stop()
	return ctx.Err()
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}
