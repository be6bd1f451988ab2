// Package frametimer tracks a rolling window of per-frame delta times and
// derives average/min/max frametime and framerate figures from it.
//
// Grounded on ShaderFlow/Modules/Frametimer.py's ShaderFrametimer.
package frametimer

import (
	"sort"

	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/variable"
)

// Clock is the subset of Scene a Frametimer needs: the real (unscaled)
// per-frame delta and the target framerate, both already exposed by
// scene.Scene.
type Clock interface {
	FrameDelta() float64
	FrameRateTarget() float64
}

// Timer accumulates recent RDT samples and reports frametime/framerate
// statistics, matching ShaderFrametimer.
type Timer struct {
	base.Module

	clock      Clock
	History    float64
	frametimes []float64
}

// New creates a Timer bound to the given clock with the source's default
// two-second rolling history.
func New(clock Clock) *Timer {
	t := &Timer{clock: clock, History: 2}
	t.Init()
	return t
}

func (t *Timer) Name() string                      { return "frametimer" }
func (t *Timer) Defines() []string                 { return nil }
func (t *Timer) Includes() []string                { return nil }
func (t *Timer) Pipeline() []variable.Variable      { return nil }
func (t *Timer) Destroy()                          {}
func (t *Timer) Handle(message.Message)            {}

func (t *Timer) Setup() {
	t.frametimes = t.frametimes[:0]
}

// length is the rolling window size: history seconds worth of frames,
// floored at 10 samples.
func (t *Timer) length() int {
	n := int(t.History * t.clock.FrameRateTarget())
	if n < 10 {
		return 10
	}
	return n
}

// Update appends the current frame's real delta time and trims the
// window to length().
func (t *Timer) Update() {
	t.frametimes = append(t.frametimes, t.clock.FrameDelta())
	if max := t.length(); len(t.frametimes) > max {
		t.frametimes = t.frametimes[len(t.frametimes)-max:]
	}
}

// percent returns the slowest `percent`% of samples, sorted ascending,
// matching ShaderFrametimer.percent's numpy.sort(...)[-cut:] slice.
func (t *Timer) percent(percent float64) []float64 {
	sorted := append([]float64(nil), t.frametimes...)
	sort.Float64s(sorted)
	cut := int(float64(len(sorted)) * (percent / 100))
	if cut <= 0 {
		return sorted
	}
	if cut > len(sorted) {
		cut = len(sorted)
	}
	return sorted[len(sorted)-cut:]
}

func safe(value float64) float64 {
	if value < 1e8 {
		return value
	}
	return 0
}

// FrametimeAverage returns the mean frametime over the slowest `percent`%
// of the window (percent=100 covers the whole window).
func (t *Timer) FrametimeAverage(percent float64) float64 {
	samples := t.percent(percent)
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	return sum / (float64(len(samples)) + 1e-9)
}

// FrametimeMaximum returns the slowest frametime in the window, or 0 if
// the window is empty.
func (t *Timer) FrametimeMaximum() float64 {
	if len(t.frametimes) == 0 {
		return 0
	}
	max := t.frametimes[0]
	for _, v := range t.frametimes[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// FrametimeMinimum returns the fastest frametime in the window, or 0 if
// the window is empty.
func (t *Timer) FrametimeMinimum() float64 {
	if len(t.frametimes) == 0 {
		return 0
	}
	min := t.frametimes[0]
	for _, v := range t.frametimes[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// FramerateAverage converts FrametimeAverage to fps, clamped by the same
// 1e8 safety guard as the source's __safe__.
func (t *Timer) FramerateAverage(percent float64) float64 {
	return safe(1.0 / (t.FrametimeAverage(percent) + 1e-9))
}

// FramerateMaximum is the fps implied by the fastest frame seen.
func (t *Timer) FramerateMaximum() float64 {
	return safe(1.0 / (t.FrametimeMinimum() + 1e-9))
}

// FramerateMinimum is the fps implied by the slowest frame seen.
func (t *Timer) FramerateMinimum() float64 {
	return safe(1.0 / (t.FrametimeMaximum() + 1e-9))
}
