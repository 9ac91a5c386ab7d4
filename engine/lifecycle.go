// Package engine implements the Engine Manager (spec §4.14): the daemon's
// lifecycle state machine, its main event loop wiring the Input Manager,
// Mapping Engine, and Action Executor together, and its config reload
// pipeline. Grounded on the original Rust daemon's engine_manager.rs state
// machine and run loop.
package engine

import (
	"sync"

	"github.com/relaydev/conductor/errs"
)

const opTransition = "engine.transitionState"

// State is one state in the Engine Manager's lifecycle (spec §4.14).
type State int

const (
	StateInit State = iota
	StateStarting
	StateRunning
	StateReloading
	StateDegraded
	StateReconnecting
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateReloading:
		return "Reloading"
	case StateDegraded:
		return "Degraded"
	case StateReconnecting:
		return "Reconnecting"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// validTransitions enumerates the lifecycle's allowed edges (spec §4.14).
var validTransitions = map[State]map[State]bool{
	StateInit:         {StateStarting: true},
	StateStarting:     {StateRunning: true, StateStopping: true},
	StateRunning:      {StateReloading: true, StateDegraded: true, StateStopping: true},
	StateReloading:    {StateRunning: true, StateStopping: true},
	StateDegraded:     {StateReconnecting: true, StateStopping: true},
	StateReconnecting: {StateRunning: true, StateDegraded: true, StateStopping: true},
	StateStopping:     {StateStopped: true},
	StateStopped:      {},
}

// lifecycle guards the current State behind a mutex and rejects any
// transition not present in validTransitions (spec §4.14).
type lifecycle struct {
	mu    sync.RWMutex
	state State
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateInit}
}

func (l *lifecycle) current() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *lifecycle) transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !validTransitions[l.state][to] {
		return errs.New(errs.KindInvalidStateTransition, opTransition, l.state.String()+" -> "+to.String())
	}
	l.state = to
	return nil
}
