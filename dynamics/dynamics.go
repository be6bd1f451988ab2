// Package dynamics implements the critically-tunable second-order smoother
// used pervasively for animated uniforms, ported 1:1 from ShaderFlow's
// dynamics.py (DynamicNumber): semi-implicit Euler integration of
//
//	y + k1*ydot + k2*yddot = x + k3*xdot
//
// with pole-matching for fast systems. Values are n-dimensional; the zero
// value degrades gracefully to a 1-element vector (scalar).
package dynamics

import "math"

// InstantFrequency is the threshold above which the system is considered
// to respond immediately (bypassing smoothing), matching the Python
// INSTANT_FREQUENCY sentinel.
const InstantFrequency = 1e6

// Number is a second-order dynamical smoother over an n-dimensional value.
type Number struct {
	Value        []float64
	Target       []float64
	Initial      []float64
	previous     []float64
	Integral     []float64
	Derivative   []float64
	Acceleration []float64

	// Frequency is the natural frequency in Hz: how fast the system
	// responds to a change in input.
	Frequency float64
	// Zeta is the damping coefficient: 0 never settles, 1 is critical
	// (no overshoot), >1 overdamped.
	Zeta float64
	// Response shapes the initial response: 1 instant, 0 smoothstep-like,
	// <0 anticipatory.
	Response float64
	// Precision: once max|target-value| falls below this, updates stop
	// doing work beyond accumulating the integral.
	Precision float64
	// Integrate enables integral accumulation (off by default, matching
	// the source's integrate=False default).
	Integrate bool
}

// New builds a Number with the critical-damping defaults (frequency=1,
// zeta=1, response=0, precision=1e-6) seeded at zero in dims dimensions.
func New(dims int) *Number {
	n := &Number{
		Frequency: 1.0,
		Zeta:      1.0,
		Response:  0.0,
		Precision: 1e-6,
	}
	n.Set(make([]float64, dims), true)
	return n
}

// NewScalar builds a 1-dimensional Number seeded at v.
func NewScalar(v float64) *Number {
	n := New(1)
	n.Set([]float64{v}, true)
	return n
}

func zeros(n int) []float64 { return make([]float64, n) }

// Set reinitializes the system to value. If instant is true, Value and
// previous snap immediately; otherwise only Target/Initial move and the
// existing value/momentum is preserved (matching set(value, instant=False)).
func (n *Number) Set(value []float64, instant bool) {
	v := append([]float64(nil), value...)
	if instant || n.Value == nil || len(n.Value) != len(v) {
		n.Value = append([]float64(nil), v...)
		n.previous = append([]float64(nil), v...)
		n.Integral = zeros(len(v))
		n.Derivative = zeros(len(v))
		n.Acceleration = zeros(len(v))
	}
	n.Target = append([]float64(nil), v...)
	n.Initial = append([]float64(nil), v...)
}

// Reset restores the system to its Initial value; instant controls whether
// Value snaps immediately or eases back.
func (n *Number) Reset(instant bool) {
	n.Set(n.Initial, instant)
}

func (n *Number) radians() float64 { return 2 * math.Pi * n.Frequency }

func (n *Number) k1() float64 { return n.Zeta / (math.Pi * n.Frequency) }

func (n *Number) k2() float64 {
	r := n.radians()
	return 1.0 / (r * r)
}

func (n *Number) k3() float64 {
	return (n.Response * n.Zeta) / (2 * math.Pi * n.Frequency)
}

func (n *Number) damping() float64 {
	z2 := n.Zeta*n.Zeta - 1.0
	return n.radians() * math.Sqrt(math.Abs(z2))
}

// Instant reports whether Frequency is at or beyond InstantFrequency.
func (n *Number) Instant() bool { return n.Frequency >= InstantFrequency }

// Next advances the system by dt towards target (nil keeps the previous
// target), returning the updated Value. Mirrors DynamicNumber.next exactly,
// including the precision early-out and the pole-matching branch taken
// when radians*dt >= zeta.
func (n *Number) Next(target []float64, dt float64) []float64 {
	if dt == 0 {
		return n.Value
	}

	if target != nil {
		if len(target) != len(n.Value) {
			n.Set(target, true)
		} else {
			n.Target = append([]float64(nil), target...)
		}
	}

	if n.Instant() {
		copy(n.Value, n.Target)
		n.previous = append([]float64(nil), n.Target...)
		return n.Value
	}

	maxAbsDiff := 0.0
	for i := range n.Target {
		d := math.Abs(n.Target[i] - n.Value[i])
		if d > maxAbsDiff {
			maxAbsDiff = d
		}
	}
	if maxAbsDiff < n.Precision {
		if n.Integrate {
			for i := range n.Integral {
				n.Integral[i] += n.Value[i] * dt
			}
		}
		return n.Value
	}

	velocity := make([]float64, len(n.Value))
	for i := range velocity {
		velocity[i] = (n.Target[i] - n.previous[i]) / dt
	}
	n.previous = append([]float64(nil), n.Target...)

	var k1, k2 float64
	radians := n.radians()
	if radians*dt < n.Zeta {
		k1 = n.k1()
		bk2 := n.k2()
		k2 = math.Max(k1*dt, math.Max(bk2, 0.5*(k1+dt)*dt))
	} else {
		t1 := math.Exp(-1 * n.Zeta * radians * dt)
		var trig float64
		if n.Zeta <= 1 {
			trig = math.Cos(n.damping() * dt)
		} else {
			trig = math.Cosh(n.damping() * dt)
		}
		a1 := 2 * t1 * trig
		t2 := dt / (1 + t1*t1 - a1)
		k1 = t2 * (1 - t1*t1)
		k2 = t2 * dt
	}

	k3 := n.k3()
	for i := range n.Value {
		n.Value[i] += n.Derivative[i] * dt
		n.Acceleration[i] = (n.Target[i] + k3*velocity[i] - n.Value[i] - k1*n.Derivative[i]) / k2
		n.Derivative[i] += n.Acceleration[i] * dt
		if n.Integrate {
			n.Integral[i] += n.Value[i] * dt
		}
	}
	return n.Value
}

// Scalar returns Value[0], for the common one-dimensional case.
func (n *Number) Scalar() float64 {
	if len(n.Value) == 0 {
		return 0
	}
	return n.Value[0]
}
