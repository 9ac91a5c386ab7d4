// Package midiout implements the MIDI Output Manager (spec §4.9): an async
// send queue, shared by all output ports, so SendMidi actions never block the
// single-threaded Action Executor on a slow or backlogged output port.
package midiout

import (
	"context"
	"log/slog"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/logging"
)

const opSend = "midiout.Manager.Send"
const opOpen = "midiout.Manager.openPort"

type outMessage struct {
	port string
	data []byte
}

// PortOpener abstracts gomidi's output port lookup for testability.
type PortOpener func(name string) (drivers.Out, error)

// Manager multiplexes SendMidi requests for any number of named output
// ports through one bounded queue; each port's connection is opened lazily.
type Manager struct {
	openPort PortOpener

	mu    sync.Mutex
	ports map[string]drivers.Out

	queue chan outMessage
	log   *slog.Logger
}

// OpenGomidiOutPort looks up an output port by name (spec §4.9; grounded on
// the teacher's devices/midi.go FindOutPort usage).
func OpenGomidiOutPort(name string) (drivers.Out, error) {
	out, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, errs.Wrap(errs.KindDevice, opOpen, err)
	}
	return out, nil
}

// New constructs a Manager with the given queue depth.
func New(opener PortOpener, queueDepth int) *Manager {
	m := &Manager{
		openPort: opener,
		ports:    make(map[string]drivers.Out),
		queue:    make(chan outMessage, queueDepth),
		log:      logging.Get(logging.MIDIOut),
	}
	return m
}

// Run drains the send queue until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case msg := <-m.queue:
			if err := m.sendNow(msg.port, msg.data); err != nil {
				m.log.Error("failed to send MIDI output message", "port", msg.port, "error", err)
			}
		}
	}
}

// Send implements action.MidiSender: it enqueues data for asynchronous
// delivery to port, returning an error only if the queue is full.
func (m *Manager) Send(ctx context.Context, port string, data []byte) error {
	select {
	case m.queue <- outMessage{port: port, data: data}:
		return nil
	default:
		return errs.New(errs.KindIO, opSend, "MIDI output queue full for port "+port)
	}
}

func (m *Manager) sendNow(port string, data []byte) error {
	out, err := m.portFor(port)
	if err != nil {
		return err
	}
	return out.Send(data)
}

func (m *Manager) portFor(name string) (drivers.Out, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if out, ok := m.ports[name]; ok {
		return out, nil
	}
	out, err := m.openPort(name)
	if err != nil {
		return nil, errs.Wrap(errs.KindDevice, opOpen, err)
	}
	if err := out.Open(); err != nil {
		return nil, errs.Wrap(errs.KindDevice, opOpen, err)
	}
	m.ports[name] = out
	return out, nil
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, out := range m.ports {
		if err := out.Close(); err != nil {
			m.log.Warn("failed to close MIDI output port", "port", name, "error", err)
		}
	}
}
