// Package miditest provides an in-memory drivers.In/drivers.Out substitute
// for exercising devices/midi and devices/midiout without a real driver,
// adapted from the teacher's devices/midi_harness mock port.
package miditest

import (
	"errors"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Port is a fake MIDI port satisfying both drivers.In and drivers.Out.
type Port struct {
	mu sync.Mutex

	name string

	sent      [][]byte
	listeners []func(msg []byte, timestampms int32)

	shouldError bool
	isOpen      bool
}

// NewPort constructs a named fake port.
func NewPort(name string) *Port {
	return &Port{name: name}
}

func (p *Port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return errors.New("miditest: open error")
	}
	p.isOpen = true
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	return nil
}

func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

func (p *Port) Number() int { return 0 }

func (p *Port) String() string { return p.name }

func (p *Port) Underlying() interface{} { return p }

// Send implements drivers.Out, recording the raw bytes for assertions.
func (p *Port) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return errors.New("miditest: send error")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	p.sent = append(p.sent, cp)
	return nil
}

// Listen implements drivers.In, registering onMsg to be invoked by Inject.
func (p *Port) Listen(onMsg func(msg []byte, timestampms int32), _ drivers.ListenConfig) (stopFn func(), err error) {
	p.mu.Lock()
	p.listeners = append(p.listeners, onMsg)
	p.mu.Unlock()
	return func() {}, nil
}

// Inject simulates the device sending msg to every registered listener.
func (p *Port) Inject(msg gomidi.Message) {
	p.mu.Lock()
	listeners := make([]func([]byte, int32), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, l := range listeners {
		l(msg.Bytes(), 0)
	}
}

// SetError makes subsequent Open/Send calls fail, for reconnect-path tests.
func (p *Port) SetError(shouldError bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shouldError = shouldError
}

// Sent returns every byte slice passed to Send so far.
func (p *Port) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent))
	copy(out, p.sent)
	return out
}
