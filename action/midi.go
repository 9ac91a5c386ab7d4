package action

import "github.com/relaydev/conductor/errs"

const opBuildMidi = "action.buildMidiMessage"

// buildMidiMessage encodes a SendMidi Program node into a raw MIDI message,
// resolving NoteOn/NoteOff velocity through its VelocityMapping against the
// triggering gesture's velocity, if any (spec §4.4).
func buildMidiMessage(p Program, triggerVelocity *uint8) ([]byte, error) {
	channel := p.MidiChannel & 0x0F

	switch p.MidiType {
	case MidiNoteOn:
		note, err := requireU8(p.MidiParams.Note, "note")
		if err != nil {
			return nil, err
		}
		velocity := p.MidiParams.VelocityMapping.Resolve(triggerVelocity)
		return []byte{0x90 | channel, note, velocity}, nil

	case MidiNoteOff:
		note, err := requireU8(p.MidiParams.Note, "note")
		if err != nil {
			return nil, err
		}
		velocity := p.MidiParams.VelocityMapping.Resolve(triggerVelocity)
		return []byte{0x80 | channel, note, velocity}, nil

	case MidiControlChange:
		cc, err := requireU8(p.MidiParams.CC, "cc")
		if err != nil {
			return nil, err
		}
		value, err := requireValue(p.MidiParams.Value)
		if err != nil {
			return nil, err
		}
		return []byte{0xB0 | channel, cc, clamp127(int(value))}, nil

	case MidiProgramChange:
		program, err := requireU8(p.MidiParams.Program, "program")
		if err != nil {
			return nil, err
		}
		return []byte{0xC0 | channel, program}, nil

	case MidiPitchBend:
		value, err := requireValue(p.MidiParams.Value)
		if err != nil {
			return nil, err
		}
		// 14-bit value centered at 8192, little-endian 7-bit halves.
		v := value + 8192
		if v < 0 {
			v = 0
		}
		if v > 16383 {
			v = 16383
		}
		return []byte{0xE0 | channel, byte(v & 0x7F), byte((v >> 7) & 0x7F)}, nil

	case MidiAftertouch:
		value, err := requireValue(p.MidiParams.Value)
		if err != nil {
			return nil, err
		}
		return []byte{0xD0 | channel, clamp127(int(value))}, nil

	default:
		return nil, errs.New(errs.KindValidation, opBuildMidi, "unknown SendMidi message type")
	}
}

func requireU8(v *uint8, field string) (uint8, error) {
	if v == nil {
		return 0, errs.New(errs.KindValidation, opBuildMidi, "SendMidi missing required field: "+field)
	}
	return *v, nil
}

func requireValue(v *int32) (int32, error) {
	if v == nil {
		return 0, errs.New(errs.KindValidation, opBuildMidi, "SendMidi missing required field: value")
	}
	return *v, nil
}
