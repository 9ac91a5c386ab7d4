// Package input implements the Input Manager (spec §4.1): merging the MIDI
// and HID device managers' InputEvent streams into one ordered channel and
// periodically polling the event processor for hold detection.
package input

import (
	"context"
	"sync"
	"time"

	"github.com/relaydev/conductor/events"
)

// holdPollInterval is how often the Input Manager asks the processor to
// scan for in-progress long presses (spec §4.2's HoldDetected gesture,
// which fires while a pad is still down, not on release).
const holdPollInterval = 50 * time.Millisecond

// Processor is the subset of *processor.Processor the Input Manager drives.
type Processor interface {
	Process(ev events.InputEvent) []events.ProcessedEvent
	CheckHolds(now time.Time) []events.ProcessedEvent
}

// Manager merges one or more raw InputEvent sources, runs them through a
// Processor, and exposes the resulting ProcessedEvent stream.
type Manager struct {
	sources   []<-chan events.InputEvent
	proc      Processor
	Processed chan events.ProcessedEvent

	subMu sync.Mutex
	subs  map[chan events.ProcessedEvent]struct{}
}

// New constructs a Manager over proc, merging every source channel given.
func New(proc Processor, sources ...<-chan events.InputEvent) *Manager {
	return &Manager{
		sources:   sources,
		proc:      proc,
		Processed: make(chan events.ProcessedEvent, 256),
		subs:      make(map[chan events.ProcessedEvent]struct{}),
	}
}

// Subscribe registers a listener for every ProcessedEvent emitted
// from now on, for the supplemented MIDI-learn IPC command (spec §4.1/D.1):
// watching the raw gesture stream for the next match without touching the
// mapping table. The returned cancel func must be called to stop receiving
// and release the channel.
func (m *Manager) Subscribe() (<-chan events.ProcessedEvent, func()) {
	ch := make(chan events.ProcessedEvent, 1)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		delete(m.subs, ch)
		m.subMu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) broadcast(pe events.ProcessedEvent) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- pe:
		default:
		}
	}
}

// Run fans every source into the processor and emits ProcessedEvents until
// ctx is cancelled or every source channel closes.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.Processed)

	merged := make(chan events.InputEvent, 256)
	var closed int
	done := make(chan struct{})

	for _, src := range m.sources {
		go func(src <-chan events.InputEvent) {
			for {
				select {
				case ev, ok := <-src:
					if !ok {
						select {
						case done <- struct{}{}:
						case <-ctx.Done():
						}
						return
					}
					select {
					case merged <- ev:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(src)
	}

	ticker := time.NewTicker(holdPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-done:
			closed++
			if closed == len(m.sources) {
				return
			}

		case ev := <-merged:
			for _, pe := range m.proc.Process(ev) {
				m.emit(pe)
			}

		case <-ticker.C:
			for _, pe := range m.proc.CheckHolds(time.Now()) {
				m.emit(pe)
			}
		}
	}
}

func (m *Manager) emit(pe events.ProcessedEvent) {
	select {
	case m.Processed <- pe:
	default:
	}
	m.broadcast(pe)
}
