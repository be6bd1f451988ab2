package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/keyboard"
)

type fakeClock struct{ dt float64 }

func (f *fakeClock) FrameDelta() float64 { return f.dt }

func TestNewDefaultsToCamera2DPerspective(t *testing.T) {
	c := New(&fakeClock{dt: 1.0 / 60}, keyboard.New())
	assert.Equal(t, ModeCamera2D, c.Mode)
	assert.Equal(t, ProjectionPerspective, c.Projection)
}

func TestMoveAccumulatesOnTarget(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	c.Move(vec3{X: 1}, false)
	c.Move(vec3{X: 1}, false)
	assert.InDelta(t, 2, c.position.Target[0], 1e-9)
}

func TestMoveAbsoluteOverwritesTarget(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	c.Move(vec3{X: 1}, false)
	c.Move(vec3{X: 5}, true)
	assert.InDelta(t, 5, c.position.Target[0], 1e-9)
}

func TestUpdateMovesOnWASDInCamera2D(t *testing.T) {
	kb := keyboard.New()
	c := New(&fakeClock{dt: 1.0 / 60}, kb)
	kb.Handle(message.KeyboardPress{Key: keyD, Action: 1})
	c.Update()
	assert.Greater(t, c.position.Target[0], 0.0)
}

func TestHandleScrollZoomsIn(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	before := c.zoom.Target[0]
	c.Handle(message.MouseScroll{DY: 1})
	assert.NotEqual(t, before, c.zoom.Target[0])
}

func TestHandleNumber2SwitchesToCamera2D(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	c.Mode = ModeFreeCamera
	c.Handle(message.KeyboardPress{Key: keyNum2, Action: 1})
	assert.Equal(t, ModeCamera2D, c.Mode)
}

func TestHandleKeyPSwitchesProjection(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	c.Handle(message.KeyboardPress{Key: keyP, Action: 1})
	assert.Equal(t, ProjectionVirtualReality, c.Projection)
}

func TestFOVRoundTripsThroughZoom(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	c.SetFOV(45)
	assert.InDelta(t, 45, c.FOV(), 1e-6)
}

func TestPipelineCarriesBasisVectorsAndMode(t *testing.T) {
	c := New(&fakeClock{}, keyboard.New())
	vars := c.Pipeline()
	names := map[string]bool{}
	for _, v := range vars {
		names[v.Name] = true
	}
	for _, want := range []string{"iCameraMode", "iCameraProjection", "iCameraX", "iCameraY", "iCameraZ"} {
		assert.True(t, names[want], "missing uniform %s", want)
	}
}
