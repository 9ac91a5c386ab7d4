package action

import "math"

// Resolve computes the final 0-127 velocity for a SendMidi NoteOn/Off,
// following spec §4.4's four velocity-mapping modes. contextVelocity is the
// triggering gesture's velocity, if one is known (PassThrough falls back to
// Fixed's default of 100 when it is not).
func (m VelocityMapping) Resolve(contextVelocity *uint8) uint8 {
	switch m.Kind {
	case VelFixed:
		return clamp127(m.Fixed)

	case VelPassThrough:
		if contextVelocity != nil {
			return *contextVelocity
		}
		return 100

	case VelLinear:
		input := 0
		if contextVelocity != nil {
			input = int(*contextVelocity)
		}
		lo, hi := m.Min, m.Max
		if hi < lo {
			lo, hi = hi, lo
		}
		out := lo + (input*(hi-lo))/127
		return clamp127(out)

	case VelCurve:
		input := 0
		if contextVelocity != nil {
			input = int(*contextVelocity)
		}
		return clamp127(int(math.Round(resolveCurve(m.Shape, m.Intensity, input))))

	default:
		return 100
	}
}

// resolveCurve implements the three curve shapes from spec §4.4.
func resolveCurve(shape CurveShape, intensity float64, input int) float64 {
	x := float64(input)
	switch shape {
	case CurveExponential:
		// out = input^(1+intensity) normalized to 0..127
		normalized := math.Pow(x/127.0, 1+intensity)
		return normalized * 127.0

	case CurveLogarithmic:
		// out = log(1+input*intensity)/log(1+127*intensity)*127
		denom := math.Log(1 + 127*intensity)
		if denom == 0 {
			return x
		}
		return math.Log(1+x*intensity) / denom * 127.0

	case CurveSCurve:
		// out = 127/(1+exp(-intensity*(input-63.5)))
		return 127.0 / (1 + math.Exp(-intensity*(x-63.5)))

	default:
		return x
	}
}

func clamp127(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
