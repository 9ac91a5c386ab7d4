// Package hid implements the HID Gamepad Device Manager (spec §4.8's HID
// path): polling SDL2's GameController subsystem for button/axis/trigger
// events and translating them into events.InputEvent, reconnecting a
// disconnected controller with the shared backoff schedule. Gamepad button
// numbers are offset into 128-255 so they share events.InputEvent's Pad
// field with MIDI note numbers without colliding (spec §3).
package hid

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/relaydev/conductor/backoff"
	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/events"
	"github.com/relaydev/conductor/logging"
)

const opRun = "hid.Manager.Run"

// buttonBase offsets SDL2 GameController button indices (0-20) into the
// shared 128-255 HID range of events.InputEvent.Pad.
const buttonBase = 128

// axisBase offsets SDL2's GameControllerAxis indices (LEFTX=0, LEFTY=1,
// RIGHTX=2, RIGHTY=3, TRIGGERLEFT=4, TRIGGERRIGHT=5) into spec §3's HID
// analog range: sticks land at 128..131, triggers at 132..133.
const axisBase = 128

// pollInterval governs how often PollEvent is drained; SDL2's event queue
// does not block, so the manager must poll it rather than wait on it.
const pollInterval = 4 * time.Millisecond

// Manager owns one SDL2 GameController's lifecycle (spec §4.8).
type Manager struct {
	autoReconn bool

	mu         sync.RWMutex
	status     ManagerStatus
	controller *sdl.GameController

	Events chan events.InputEvent
	log    *slog.Logger
}

// ManagerStatus mirrors midi.Status for the HID path.
type ManagerStatus int

const (
	StatusDisconnected ManagerStatus = iota
	StatusConnected
	StatusReconnecting
	StatusFailed
)

// New constructs a Manager. sdl.Init(sdl.INIT_GAMECONTROLLER) must already
// have been called by the process (typically once, in cmd/conductord).
func New(autoReconnect bool) *Manager {
	return &Manager{
		autoReconn: autoReconnect,
		Events:     make(chan events.InputEvent, 256),
		log:        logging.Get(logging.HID),
	}
}

// Status returns the Manager's current connection state.
func (m *Manager) Status() ManagerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// ListControllers enumerates the names of every SDL2 game controller
// currently attached (spec §4.13's Status command HID device list).
func ListControllers() []string {
	var names []string
	for i := 0; i < sdl.NumJoysticks(); i++ {
		if sdl.IsGameController(i) {
			if name := sdl.GameControllerNameForIndex(i); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// Run opens the first available game controller and polls it until ctx is
// cancelled, reconnecting with backoff if it disappears mid-run.
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
		m.log.Warn("gamepad disconnected, reconnecting", "error", err)

		attempt := 0
		for {
			if backoff.Exhausted(attempt) {
				m.setStatus(StatusFailed)
				return errs.New(errs.KindReconnection, opRun, "gamepad reconnection attempts exhausted")
			}
			t := time.NewTimer(backoff.Delay(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				m.setStatus(StatusDisconnected)
				return nil
			case <-t.C:
			}
			if openFirstController() != nil {
				break
			}
			attempt++
		}
	}
}

func (m *Manager) runOnce(ctx context.Context) error {
	ctrl := openFirstController()
	if ctrl == nil {
		return errs.New(errs.KindDevice, opRun, "no game controller found")
	}
	defer ctrl.Close()

	m.mu.Lock()
	m.controller = ctrl
	m.status = StatusConnected
	m.mu.Unlock()
	m.log.Info("gamepad connected", "name", ctrl.Name())

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !ctrl.Attached() {
				return errs.New(errs.KindDevice, opRun, "gamepad detached")
			}
			for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
				m.handle(ev)
			}
		}
	}
}

func (m *Manager) handle(ev sdl.Event) {
	now := time.Now()
	switch e := ev.(type) {
	case *sdl.ControllerButtonEvent:
		kind := events.PadReleased
		if e.State == sdl.PRESSED {
			kind = events.PadPressed
		}
		m.emit(events.InputEvent{Kind: kind, Pad: buttonBase + e.Button, Velocity: 127, Time: now})

	case *sdl.ControllerAxisEvent:
		// Normalize SDL2's signed 16-bit axis range to 0-127 so triggers and
		// analog sticks share EncoderTurned's Value convention with MIDI CCs.
		v := int32((int32(e.Value) + 32768) * 127 / 65535)
		m.emit(events.InputEvent{Kind: events.EncoderTurned, Encoder: axisBase + e.Axis, Value: v, Time: now})
	}
}

func (m *Manager) emit(ev events.InputEvent) {
	select {
	case m.Events <- ev:
	default:
		m.log.Warn("HID input event queue full, dropping event")
	}
}

func (m *Manager) setStatus(s ManagerStatus) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func openFirstController() *sdl.GameController {
	for i := 0; i < sdl.NumJoysticks(); i++ {
		if sdl.IsGameController(i) {
			if ctrl := sdl.GameControllerOpen(i); ctrl != nil {
				return ctrl
			}
		}
	}
	return nil
}
