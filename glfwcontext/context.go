// Package glfwcontext is the only package in the module that imports glfw:
// it owns the window, translates GLFW's callback-based input into the
// scene's message bus, and satisfies scene.Window. Grounded on the
// teacher's glfwcontext/context.go (window/context lifecycle) generalized
// from a bare ShouldClose/EndFrame pair into full input relaying, matching
// ShaderFlow's GLFW backend (shaderflow/window.py callback registration).
package glfwcontext

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/goshaderflow/internal/logging"
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/scene"
)

var log = logging.For("glfwcontext")

// Context owns a GLFW window and relays its input callbacks onto a Scene's
// message bus. Satisfies scene.Window.
type Context struct {
	window *glfw.Window
	scene  *scene.Scene

	lastX, lastY float64
	haveLast     bool

	fullscreen           bool
	windowedX, windowedY int
	windowedW, windowedH int
}

// New creates a GLFW window sized to match the scene's current resolution
// and wires every input callback to relay onto it. Must be called from the
// main goroutine (glfw.Init and window creation are main-thread only).
func New(s *scene.Scene, title string) (*Context, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfwcontext: init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	w, h := s.Resolution()
	win, err := glfw.CreateWindow(w, h, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfwcontext: create window: %w", err)
	}

	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("glfwcontext: gl init: %w", err)
	}
	log.Info().Str("version", gl.GoStr(gl.GetString(gl.VERSION))).Msg("opengl context created")

	c := &Context{window: win, scene: s}
	c.windowedX, c.windowedY = win.GetPos()
	c.windowedW, c.windowedH = w, h
	c.bind()
	c.syncFullscreen()
	return c, nil
}

// syncFullscreen reconciles the window's actual monitor state with
// Scene.Fullscreen, toggled by the F11 handler. Entering fullscreen
// remembers the current windowed position/size so leaving it restores
// the same spot rather than snapping to a default.
func (c *Context) syncFullscreen() {
	want := c.scene.Fullscreen
	if want == c.fullscreen {
		return
	}
	c.fullscreen = want

	if want {
		c.windowedX, c.windowedY = c.window.GetPos()
		c.windowedW, c.windowedH = c.window.GetSize()

		monitor := glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()
		c.window.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	} else {
		c.window.SetMonitor(nil, c.windowedX, c.windowedY, c.windowedW, c.windowedH, 0)
	}
}

// bind registers every GLFW callback, translating raw GLFW events into the
// scene's message.Message variants and relaying them synchronously.
func (c *Context) bind() {
	c.window.SetCloseCallback(func(*glfw.Window) {
		c.scene.Relay(message.WindowClose{})
	})
	c.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		c.scene.Relay(message.WindowResize{Width: width, Height: height})
	})
	c.window.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		c.scene.Relay(message.WindowIconify{State: iconified})
	})
	c.window.SetDropCallback(func(_ *glfw.Window, files []string) {
		c.scene.Relay(message.WindowFileDrop{Files: files})
	})

	c.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		switch action {
		case glfw.Press:
			c.scene.Relay(message.KeyboardKeyDown{Key: int(key), Modifiers: int(mods)})
		case glfw.Release:
			c.scene.Relay(message.KeyboardKeyUp{Key: int(key), Modifiers: int(mods)})
		}
		c.scene.Relay(message.KeyboardPress{Key: int(key), Action: int(action), Modifiers: int(mods)})
	})
	c.window.SetCharCallback(func(_ *glfw.Window, char rune) {
		c.scene.Relay(message.KeyboardUnicode{Char: char})
	})

	c.window.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		width, height := c.window.GetFramebufferSize()
		u, v := glUV(xpos, ypos, width, height)

		dx, dy := 0.0, 0.0
		if c.haveLast {
			dx, dy = xpos-c.lastX, ypos-c.lastY
		}
		c.lastX, c.lastY = xpos, ypos
		c.haveLast = true

		du, dv := dx/float64(height)*2, -dy/float64(height)*2

		if c.anyMouseButtonDown() {
			c.scene.Relay(message.MouseDrag{
				X: int(xpos), Y: int(ypos), DX: int(dx), DY: int(dy),
				U: u, V: v, DU: du, DV: dv,
			})
		} else {
			c.scene.Relay(message.MousePosition{
				X: int(xpos), Y: int(ypos), DX: int(dx), DY: int(dy),
				U: u, V: v, DU: du, DV: dv,
			})
		}
	})
	c.window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		xpos, ypos := c.window.GetCursorPos()
		width, height := c.window.GetFramebufferSize()
		u, v := glUV(xpos, ypos, width, height)
		switch action {
		case glfw.Press:
			c.scene.Relay(message.MousePress{Button: int(button), X: int(xpos), Y: int(ypos), U: u, V: v})
		case glfw.Release:
			c.scene.Relay(message.MouseRelease{Button: int(button), X: int(xpos), Y: int(ypos), U: u, V: v})
		}
	})
	c.window.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		c.scene.Relay(message.MouseScroll{DX: int(xoff), DY: int(yoff), DU: xoff, DV: yoff})
	})
	c.window.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		c.scene.Relay(message.MouseEnter{State: entered})
	})
}

// glUV converts a pixel cursor position to center-origin normalized
// coordinates in [-1, 1], matching the scene's MouseGLUV convention.
func glUV(x, y float64, width, height int) (float64, float64) {
	if width == 0 || height == 0 {
		return 0, 0
	}
	u := (x/float64(width))*2 - 1
	v := 1 - (y/float64(height))*2
	return u, v
}

func (c *Context) anyMouseButtonDown() bool {
	for _, b := range []glfw.MouseButton{glfw.MouseButtonLeft, glfw.MouseButtonMiddle, glfw.MouseButtonRight} {
		if c.window.GetMouseButton(b) == glfw.Press {
			return true
		}
	}
	return false
}

// SwapBuffers presents the rendered frame, polls pending input events, and
// reconciles the window's fullscreen state with Scene.Fullscreen in case
// the F11 handler flipped it this frame.
func (c *Context) SwapBuffers() {
	c.syncFullscreen()
	c.window.SwapBuffers()
	glfw.PollEvents()
}

// FramebufferSize returns the drawable area size in pixels.
func (c *Context) FramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

// SetSize resizes the window.
func (c *Context) SetSize(w, h int) {
	c.window.SetSize(w, h)
}

// ShouldClose reports whether the user requested the window be closed.
func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

// SetTitle updates the window's title bar text.
func (c *Context) SetTitle(title string) {
	c.window.SetTitle(title)
}

// Shutdown terminates the GLFW context. Safe to call once, after the scene
// loop has stopped.
func (c *Context) Shutdown() {
	glfw.Terminate()
}
