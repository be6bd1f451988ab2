package frametimer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	rdt float64
	fps float64
}

func (f *fakeClock) FrameDelta() float64      { return f.rdt }
func (f *fakeClock) FrameRateTarget() float64 { return f.fps }

func TestLengthFloorsAtTen(t *testing.T) {
	tm := New(&fakeClock{fps: 1})
	tm.History = 2
	assert.Equal(t, 10, tm.length())
}

func TestLengthScalesWithHistoryAndFPS(t *testing.T) {
	tm := New(&fakeClock{fps: 60})
	tm.History = 2
	assert.Equal(t, 120, tm.length())
}

func TestUpdateTrimsWindowToLength(t *testing.T) {
	clock := &fakeClock{fps: 10, rdt: 1.0 / 60}
	tm := New(clock)
	tm.History = 1
	for i := 0; i < 50; i++ {
		tm.Update()
	}
	assert.Equal(t, tm.length(), len(tm.frametimes))
}

func TestFrametimeAverageMatchesConstantInput(t *testing.T) {
	clock := &fakeClock{fps: 60, rdt: 1.0 / 60}
	tm := New(clock)
	for i := 0; i < 30; i++ {
		tm.Update()
	}
	assert.InDelta(t, 1.0/60, tm.FrametimeAverage(100), 1e-6)
}

func TestFrametimeMaxAndMin(t *testing.T) {
	clock := &fakeClock{fps: 60}
	tm := New(clock)
	for _, v := range []float64{0.01, 0.05, 0.02} {
		clock.rdt = v
		tm.Update()
	}
	assert.InDelta(t, 0.05, tm.FrametimeMaximum(), 1e-9)
	assert.InDelta(t, 0.01, tm.FrametimeMinimum(), 1e-9)
}

func TestFramerateAverageIsInverseOfFrametime(t *testing.T) {
	clock := &fakeClock{fps: 60, rdt: 0.01}
	tm := New(clock)
	for i := 0; i < 10; i++ {
		tm.Update()
	}
	assert.InDelta(t, 100, tm.FramerateAverage(100), 1e-3)
}

func TestSafeGuardsAgainstDivideByNearZero(t *testing.T) {
	clock := &fakeClock{fps: 60, rdt: 0}
	tm := New(clock)
	tm.Update()
	assert.Equal(t, 0.0, tm.FramerateMaximum())
}

func TestSetupResetsWindow(t *testing.T) {
	clock := &fakeClock{fps: 60, rdt: 0.016}
	tm := New(clock)
	tm.Update()
	tm.Setup()
	assert.Equal(t, 0, len(tm.frametimes))
}
