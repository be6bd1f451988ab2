package dynamics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSteadyStateSettles(t *testing.T) {
	n := NewScalar(0)
	const dt = 1.0 / 60.0
	for i := 0; i < 600; i++ {
		n.Next([]float64{1}, dt)
	}
	assert.InDelta(t, 1.0, n.Scalar(), 1e-3)
	assert.InDelta(t, 0.0, n.Derivative[0], 1e-2)
	assert.InDelta(t, 0.0, n.Acceleration[0], 1e-2)
}

func TestIdempotenceAtPrecision(t *testing.T) {
	n := NewScalar(5)
	n.Precision = 1e-3
	n.Integrate = true
	n.Next([]float64{5}, 1.0/60.0)

	before := n.Value[0]
	beforeDeriv := n.Derivative[0]
	beforeAccel := n.Acceleration[0]

	n.Next([]float64{5}, 1.0/60.0)

	assert.Equal(t, before, n.Value[0], "value should not move once within precision")
	assert.Equal(t, beforeDeriv, n.Derivative[0])
	assert.Equal(t, beforeAccel, n.Acceleration[0])
	assert.NotEqual(t, 0.0, n.Integral[0], "integral should still accumulate")
}

func TestSquareWaveCrossesMidpointWithin200ms(t *testing.T) {
	n := NewScalar(0)
	n.Frequency = 4.0
	n.Zeta = 1.0

	const dt = 1.0 / 240.0
	crossed := false
	var crossTime time.Duration
	elapsed := time.Duration(0)

	for i := 0; i < int(1.0/dt); i++ {
		n.Next([]float64{1}, dt)
		elapsed += time.Duration(dt * float64(time.Second))
		if !crossed && n.Scalar() >= 0.5 {
			crossed = true
			crossTime = elapsed
		}
	}

	assert.True(t, crossed, "value must cross the 0.5 midpoint")
	assert.LessOrEqual(t, crossTime, 200*time.Millisecond)
}

func TestInstantFrequencySnapsImmediately(t *testing.T) {
	n := NewScalar(0)
	n.Frequency = InstantFrequency
	n.Next([]float64{10}, 1.0/60.0)
	assert.InDelta(t, 10.0, n.Scalar(), 1e-6)
}

func TestResetReturnsToInitial(t *testing.T) {
	n := NewScalar(2)
	for i := 0; i < 60; i++ {
		n.Next([]float64{9}, 1.0/60.0)
	}
	assert.NotEqual(t, 2.0, n.Scalar())
	n.Reset(true)
	assert.Equal(t, 2.0, n.Scalar())
}
