// Package camera implements the scene's 3D view transform: a
// dynamics-smoothed position/orientation driven by keyboard and mouse
// input, exported to shaders as basis-vector and mode/projection
// uniforms.
//
// Grounded on ShaderFlow/Modules/Camera.py's ShaderCamera. Scoped down to
// the module's plug-in contract (per spec: camera is described only by
// the contract it must satisfy): the VR eye-separation, orbital/dolly
// dynamics, and isometric blend are dropped as extras beyond that
// contract, while the core position/rotation/zoom smoothing, the three
// interaction modes, and WASD/mouse/scroll handling are kept.
package camera

import (
	"math"

	"github.com/richinsley/goshaderflow/dynamics"
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/modules/keyboard"
	"github.com/richinsley/goshaderflow/variable"
)

// Mode selects how movement/rotation input is interpreted, matching
// CameraMode.
type Mode int

const (
	ModeFreeCamera Mode = iota
	ModeCamera2D
	ModeSpherical
)

// Projection selects the shader-side projection model, matching
// CameraProjection.
type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionVirtualReality
	ProjectionEquirectangular
)

// Clock is the subset of Scene a Camera needs for frame timing.
type Clock interface {
	FrameDelta() float64
}

var (
	axisX = vec3{X: 1}
	axisY = vec3{Y: 1}
	axisZ = vec3{Z: 1}
)

// Camera holds the smoothed position/orientation/zoom state of the
// scene's view, matching ShaderCamera.
type Camera struct {
	base.Module

	name       string
	Mode       Mode
	Projection Projection

	position *dynamics.Number // 3 dims: x, y, z
	rotation *dynamics.Number // 4 dims: w, x, y, z
	up       *dynamics.Number // 3 dims
	zoom     *dynamics.Number // 1 dim

	clock    Clock
	keyboard *keyboard.Keyboard

	mouseDown     bool
	exclusiveMode bool
}

// New creates a Camera bound to the scene clock and the shared keyboard
// module, defaulting to Camera2D/Perspective as ShaderCamera does.
func New(clock Clock, kb *keyboard.Keyboard) *Camera {
	c := &Camera{
		name:       "iCamera",
		Mode:       ModeCamera2D,
		Projection: ProjectionPerspective,
		clock:      clock,
		keyboard:   kb,
	}
	c.position = dynamics.New(3)
	c.position.Frequency, c.position.Zeta, c.position.Response = 7, 1, 1

	c.rotation = dynamics.New(4)
	c.rotation.Frequency, c.rotation.Zeta = 5, 1
	c.rotation.Set([]float64{1, 0, 0, 0}, true)

	c.up = dynamics.New(3)
	c.up.Frequency, c.up.Zeta = 1, 1
	c.up.Set([]float64{0, 1, 0}, true)

	c.zoom = dynamics.New(1)
	c.zoom.Frequency, c.zoom.Zeta = 3, 1
	c.zoom.Set([]float64{1}, true)

	c.Init()
	return c
}

func (c *Camera) Name() string       { return c.name }
func (c *Camera) Setup()             {}
func (c *Camera) Destroy()           {}
func (c *Camera) Includes() []string { return []string{"Camera.glsl"} }
func (c *Camera) Defines() []string  { return nil }

func vecOf(n *dynamics.Number) vec3 { return vec3{n.Value[0], n.Value[1], n.Value[2]} }
func targetVecOf(n *dynamics.Number) vec3 { return vec3{n.Target[0], n.Target[1], n.Target[2]} }

func quatOf(n *dynamics.Number) quaternion {
	return quaternion{W: n.Value[0], X: n.Value[1], Y: n.Value[2], Z: n.Value[3]}.normalized()
}

func targetQuatOf(n *dynamics.Number) quaternion {
	return quaternion{W: n.Target[0], X: n.Target[1], Y: n.Target[2], Z: n.Target[3]}.normalized()
}

// Position is the camera's current smoothed position.
func (c *Camera) Position() (float64, float64, float64) {
	p := vecOf(c.position)
	return p.X, p.Y, p.Z
}

// Zoom is the camera's current smoothed zoom factor.
func (c *Camera) Zoom() float64 { return c.zoom.Value[0] }

// FOV derives the field of view in degrees from Zoom, matching
// ShaderCamera.fov.
func (c *Camera) FOV() float64 { return math.Atan(c.Zoom()) * 180 / math.Pi }

// SetFOV sets Zoom's target from a field-of-view value in degrees.
func (c *Camera) SetFOV(degrees float64) {
	c.zoom.Target[0] = math.Tan(degrees * math.Pi / 180)
}

// SetExclusive mirrors the scene's exclusive-mouse-capture mode, which
// changes how MousePosition/MouseDrag deltas are interpreted (captured
// mouse movement counts even without a button held).
func (c *Camera) SetExclusive(v bool) { c.exclusiveMode = v }

func (c *Camera) baseX() vec3 { return quatOf(c.rotation).rotate(axisX) }
func (c *Camera) baseY() vec3 { return quatOf(c.rotation).rotate(axisY) }
func (c *Camera) baseZ() vec3 { return quatOf(c.rotation).rotate(axisZ) }

func (c *Camera) baseXTarget() vec3 { return targetQuatOf(c.rotation).rotate(axisX) }
func (c *Camera) baseYTarget() vec3 { return targetQuatOf(c.rotation).rotate(axisY) }
func (c *Camera) baseZTarget() vec3 { return targetQuatOf(c.rotation).rotate(axisZ) }

// Move adds (or, if absolute, sets) a displacement to the position
// target, matching ShaderCamera.move.
func (c *Camera) Move(d vec3, absolute bool) {
	if absolute {
		c.position.Target = []float64{d.X, d.Y, d.Z}
		return
	}
	t := targetVecOf(c.position).add(d)
	c.position.Target = []float64{t.X, t.Y, t.Z}
}

// Rotate applies a cumulative rotation around axis by angle degrees to
// the rotation target, renormalized, matching ShaderCamera.rotate.
func (c *Camera) Rotate(axis vec3, angleDeg float64) {
	q := fromAxisAngle(axis, angleDeg).mul(targetQuatOf(c.rotation)).normalized()
	c.rotation.Target = []float64{q.W, q.X, q.Y, q.Z}
}

// Align rotates the camera as if aligning vector a onto vector b, offset
// by an extra angle, matching ShaderCamera.align.
func (c *Camera) Align(a, b vec3, extraDeg float64) {
	axis := a.cross(b).unit()
	c.Rotate(axis, angleDegrees(a, b)-extraDeg)
}

// LookAt rotates the camera to face target from its current position
// target, matching ShaderCamera.look.
func (c *Camera) LookAt(target vec3) {
	pos := targetVecOf(c.position)
	c.Align(c.baseZTarget(), target.sub(pos), 0)
}

func (c *Camera) applyZoom(value float64) {
	if value > 0 {
		c.zoom.Target[0] *= 1 + value
	} else {
		c.zoom.Target[0] /= 1 - value
	}
}

// Update applies WASD/space/shift movement and Q/E rotation each frame,
// then advances the position/rotation/up/zoom smoothers by the frame's dt,
// matching ShaderCamera.update (isometric/dolly extras dropped per the
// module's contract-only scope).
func (c *Camera) Update() {
	dt := math.Abs(c.clock.FrameDelta())
	if dt == 0 {
		return
	}
	defer func() {
		c.position.Next(nil, dt)
		c.rotation.Next(nil, dt)
		c.up.Next(nil, dt)
		c.zoom.Next(nil, dt)
	}()
	if c.keyboard == nil {
		return
	}

	move := vec3{}
	pressed := c.keyboard.Pressed
	if c.Mode == ModeCamera2D {
		if pressed(keyW) {
			move = move.add(axisY)
		}
		if pressed(keyA) {
			move = move.sub(axisX)
		}
		if pressed(keyS) {
			move = move.sub(axisY)
		}
		if pressed(keyD) {
			move = move.add(axisX)
		}
	} else {
		if pressed(keyW) {
			move = move.add(axisZ)
		}
		if pressed(keyA) {
			move = move.sub(axisX)
		}
		if pressed(keyS) {
			move = move.sub(axisZ)
		}
		if pressed(keyD) {
			move = move.add(axisX)
		}
		if pressed(keySpace) {
			move = move.add(axisY)
		}
		if pressed(keyLeftShift) {
			move = move.sub(axisY)
		}
	}
	if move.any() {
		rotated := targetQuatOf(c.rotation).rotate(move)
		c.Move(rotated.unit().scale(2*c.zoom.Value[0]*dt), false)
	}

	rotate := vec3{}
	if pressed(keyQ) {
		rotate = rotate.add(axisZ)
	}
	if pressed(keyE) {
		rotate = rotate.sub(axisZ)
	}
	if rotate.any() {
		c.Rotate(targetQuatOf(c.rotation).rotate(rotate), 45*dt)
	}

	if c.Mode == ModeSpherical {
		c.Align(c.baseXTarget(), vecOf(c.up), 90)
	}
}

// Handle processes mouse drag/scroll rotation+zoom and keyboard
// mode/up/projection switches, matching ShaderCamera.handle (with the
// VR-separation/isometric key bindings dropped alongside those extras).
func (c *Camera) Handle(msg message.Message) {
	switch m := msg.(type) {
	case message.MouseDrag:
		if !c.mouseDown && !c.exclusiveMode {
			return
		}
		c.applyDrag(m.DU, m.DV)
	case message.MousePosition:
		if !c.exclusiveMode {
			return
		}
		c.applyDrag(m.DU, m.DV)
	case message.MousePress:
		if m.Button == 1 {
			c.mouseDown = true
		}
	case message.MouseRelease:
		if m.Button == 1 {
			c.mouseDown = false
		}
	case message.MouseScroll:
		c.applyZoom(-0.05 * m.DV)
	case message.KeyboardPress:
		if m.Action != 1 {
			return
		}
		switch m.Key {
		case keyNum1:
			c.Mode = ModeFreeCamera
		case keyNum2:
			c.Align(c.baseXTarget(), axisX, 0)
			c.Align(c.baseYTarget(), axisY, 0)
			c.Mode = ModeCamera2D
			c.position.Target[2] = 0
			c.zoom.Target[0] = 1
		case keyNum3:
			c.Mode = ModeSpherical
		case keyI:
			c.up.Target = []float64{1, 0, 0}
		case keyJ:
			c.up.Target = []float64{0, 1, 0}
		case keyK:
			c.up.Target = []float64{0, 0, 1}
		case keyP:
			c.Projection = (c.Projection + 1) % 3
		}
	}
}

func (c *Camera) applyDrag(du, dv float64) {
	zoom := c.zoom.Value[0]
	switch c.Mode {
	case ModeFreeCamera:
		c.Rotate(c.baseY().scale(zoom), du*100)
		c.Rotate(c.baseX().scale(zoom), -dv*100)
	case ModeCamera2D:
		move := axisX.scale(du).add(axisY.scale(dv))
		rotated := targetQuatOf(c.rotation).rotate(move)
		sign := -1.0
		if c.exclusiveMode {
			sign = 1
		}
		c.Move(rotated.scale(sign*zoom), false)
	case ModeSpherical:
		sign := 1.0
		if angleDegrees(c.baseYTarget(), vecOf(c.up)) >= 90 {
			sign = -1
		}
		c.Rotate(vecOf(c.up).scale(sign*zoom), du*100)
		c.Rotate(c.baseX().scale(zoom), -dv*100)
	}
}

// Pipeline exports the camera's basis vectors and mode/projection,
// matching ShaderCamera.pipeline.
func (c *Camera) Pipeline() []variable.Variable {
	x, y, z := c.baseX(), c.baseY(), c.baseZ()
	return []variable.Variable{
		variable.Uniform(variable.TypeInt, c.name+"Mode", int(c.Mode)),
		variable.Uniform(variable.TypeInt, c.name+"Projection", int(c.Projection)),
		variable.Uniform(variable.TypeVec3, c.name+"X", [3]float64{x.X, x.Y, x.Z}),
		variable.Uniform(variable.TypeVec3, c.name+"Y", [3]float64{y.X, y.Y, y.Z}),
		variable.Uniform(variable.TypeVec3, c.name+"Z", [3]float64{z.X, z.Y, z.Z}),
	}
}

// Glfw key codes matching the ones keyboard.Handle stores raw, grounded
// on the teacher's glfwcontext key constant usage.
const (
	keyW         = 87
	keyA         = 65
	keyS         = 83
	keyD         = 68
	keyQ         = 81
	keyE         = 69
	keyI         = 73
	keyJ         = 74
	keyK         = 75
	keyP         = 80
	keySpace     = 32
	keyLeftShift = 340
	keyNum1      = 49
	keyNum2      = 50
	keyNum3      = 51
)
