package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFixed(t *testing.T) {
	m := VelocityMapping{Kind: VelFixed, Fixed: 42}
	assert.Equal(t, uint8(42), m.Resolve(nil))
}

func TestResolvePassThroughFallsBackWithoutContext(t *testing.T) {
	m := VelocityMapping{Kind: VelPassThrough}
	assert.Equal(t, uint8(100), m.Resolve(nil))
	v := uint8(77)
	assert.Equal(t, uint8(77), m.Resolve(&v))
}

func TestResolveLinearScalesIntoRange(t *testing.T) {
	m := VelocityMapping{Kind: VelLinear, Min: 0, Max: 127}
	zero := uint8(0)
	assert.Equal(t, uint8(0), m.Resolve(&zero))
	max := uint8(127)
	assert.Equal(t, uint8(127), m.Resolve(&max))
}

func TestResolveCurveExponentialMonotonic(t *testing.T) {
	m := VelocityMapping{Kind: VelCurve, Shape: CurveExponential, Intensity: 1}
	lo := uint8(20)
	hi := uint8(100)
	assert.Less(t, m.Resolve(&lo), m.Resolve(&hi))
}

func TestClamp127Bounds(t *testing.T) {
	assert.Equal(t, uint8(0), clamp127(-5))
	assert.Equal(t, uint8(127), clamp127(200))
	assert.Equal(t, uint8(64), clamp127(64))
}
