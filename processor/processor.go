// Package processor implements the Event Processor (spec §4.2): it infers
// high-level gestures from a stream of raw InputEvents using per-device-group
// timing state. One Processor instance is created per logical input group —
// in this daemon that means one for the merged MIDI+HID stream, matching the
// Input Manager's "Both" mode (spec §4.8).
package processor

import (
	"sort"
	"sync"
	"time"

	"github.com/relaydev/conductor/events"
)

// Windows holds the three timing windows from AdvancedSettings (spec §3).
type Windows struct {
	ChordTimeout     time.Duration
	DoubleTapTimeout time.Duration
	HoldThreshold    time.Duration
}

// DefaultWindows matches the config defaults in spec §3.
func DefaultWindows() Windows {
	return Windows{
		ChordTimeout:     50 * time.Millisecond,
		DoubleTapTimeout: 300 * time.Millisecond,
		HoldThreshold:    2000 * time.Millisecond,
	}
}

type chordEntry struct {
	note uint8
	at   time.Time
}

// Processor holds the mutable gesture-inference state for one input group.
type Processor struct {
	mu sync.Mutex

	windows Windows

	pressTime map[uint8]time.Time
	held      map[uint8]time.Time
	lastCC    map[uint8]int32
	lastTap   map[uint8]time.Time
	chord     []chordEntry
}

// New creates a Processor using the given timing windows.
func New(w Windows) *Processor {
	return &Processor{
		windows:   w,
		pressTime: make(map[uint8]time.Time),
		held:      make(map[uint8]time.Time),
		lastCC:    make(map[uint8]int32),
		lastTap:   make(map[uint8]time.Time),
	}
}

// SetWindows updates the timing windows, e.g. after a config reload.
func (p *Processor) SetWindows(w Windows) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows = w
}

// Process consumes one InputEvent and returns zero or more inferred gestures.
func (p *Processor) Process(ev events.InputEvent) []events.ProcessedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case events.PadPressed:
		return p.onPadPressed(ev)
	case events.PadReleased:
		return p.onPadReleased(ev)
	case events.EncoderTurned, events.ControlChange:
		return p.onEncoder(ev)
	case events.Aftertouch:
		return []events.ProcessedEvent{{Kind: events.ProcAftertouchChanged, Pressure: ev.Pressure, Time: ev.Time}}
	case events.PitchBend:
		return []events.ProcessedEvent{{Kind: events.ProcPitchBendMoved, Value: ev.Value, Time: ev.Time}}
	case events.PolyPressure, events.ProgramChange:
		// Retained but not promoted to a gesture in this release (spec §4.2).
		return nil
	default:
		return nil
	}
}

func (p *Processor) onPadPressed(ev events.InputEvent) []events.ProcessedEvent {
	note := ev.Pad
	now := ev.Time

	p.pressTime[note] = now
	p.held[note] = now

	var out []events.ProcessedEvent

	if last, ok := p.lastTap[note]; ok && now.Sub(last) < p.windows.DoubleTapTimeout {
		out = append(out, events.ProcessedEvent{Kind: events.ProcDoubleTap, Note: note, Time: now})
		delete(p.lastTap, note)
	} else {
		p.lastTap[note] = now
	}

	level := events.ClassifyVelocity(ev.Velocity)
	out = append(out, events.ProcessedEvent{
		Kind:     events.ProcPadPressed,
		Note:     note,
		Velocity: ev.Velocity,
		Level:    level,
		Time:     now,
	})

	p.chord = append(p.chord, chordEntry{note: note, at: now})
	p.purgeChord(now)
	if notes := p.chordNotes(); len(notes) >= 2 {
		out = append(out, events.ProcessedEvent{Kind: events.ProcChordDetected, Notes: notes, Time: now})
	}

	return out
}

func (p *Processor) onPadReleased(ev events.InputEvent) []events.ProcessedEvent {
	note := ev.Pad
	now := ev.Time

	delete(p.held, note)
	p.removeFromChord(note)

	pressed, ok := p.pressTime[note]
	if !ok {
		return nil
	}
	delete(p.pressTime, note)

	durationMs := now.Sub(pressed).Milliseconds()

	out := []events.ProcessedEvent{
		{Kind: events.ProcPadReleased, Note: note, HoldMS: durationMs, Time: now},
	}

	switch {
	case durationMs < 200:
		out = append(out, events.ProcessedEvent{Kind: events.ProcShortPress, Note: note, HoldMS: durationMs, Time: now})
	case durationMs < 1000:
		out = append(out, events.ProcessedEvent{Kind: events.ProcMediumPress, Note: note, HoldMS: durationMs, Time: now})
	default:
		out = append(out, events.ProcessedEvent{Kind: events.ProcLongPress, Note: note, HoldMS: durationMs, Time: now})
	}

	return out
}

func (p *Processor) onEncoder(ev events.InputEvent) []events.ProcessedEvent {
	cc := ev.Encoder
	last, ok := p.lastCC[cc]
	p.lastCC[cc] = ev.Value
	if !ok {
		return nil
	}
	if ev.Value == last {
		return nil
	}
	dir := events.Clockwise
	if ev.Value < last {
		dir = events.CounterClockwise
	}
	delta := ev.Value - last
	if delta < 0 {
		delta = -delta
	}
	return []events.ProcessedEvent{{
		Kind:      events.ProcEncoderTurned,
		CC:        cc,
		Value:     ev.Value,
		Direction: dir,
		Delta:     delta,
		Time:      ev.Time,
	}}
}

// purgeChord drops chord entries older than the chord timeout. Caller must
// hold p.mu.
func (p *Processor) purgeChord(now time.Time) {
	cutoff := now.Add(-p.windows.ChordTimeout)
	kept := p.chord[:0]
	for _, e := range p.chord {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	p.chord = kept
}

// chordNotes returns the distinct notes currently buffered, sorted for
// deterministic output. Caller must hold p.mu.
func (p *Processor) chordNotes() []uint8 {
	seen := make(map[uint8]struct{}, len(p.chord))
	notes := make([]uint8, 0, len(p.chord))
	for _, e := range p.chord {
		if _, ok := seen[e.note]; ok {
			continue
		}
		seen[e.note] = struct{}{}
		notes = append(notes, e.note)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	return notes
}

func (p *Processor) removeFromChord(note uint8) {
	kept := p.chord[:0]
	for _, e := range p.chord {
		if e.note != note {
			kept = append(kept, e)
		}
	}
	p.chord = kept
}

// CheckHolds scans the held-note table and returns a HoldDetected gesture for
// every note pressed longer ago than the hold threshold. Duplicate
// suppression across repeated calls is intentionally left to the caller
// (spec §4.2/§9: HoldDetected is at-least-once until a policy is formalized).
func (p *Processor) CheckHolds(now time.Time) []events.ProcessedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []events.ProcessedEvent
	for note, pressed := range p.held {
		if now.Sub(pressed) >= p.windows.HoldThreshold {
			out = append(out, events.ProcessedEvent{Kind: events.ProcHoldDetected, Note: note, Time: now})
		}
	}
	return out
}
