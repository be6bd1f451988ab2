// Package keyboard tracks per-key pressed state from the Scene's message
// bus, grounded on shaderflow/keyboard.py's ShaderKeyboard.
package keyboard

import (
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/variable"
)

// ActionRelease mirrors glfw.Release (0), the action code a KeyboardPress
// carries when a key is let go.
const ActionRelease = 0

// Keyboard tracks the pressed/released state of every key it has seen an
// event for, matching ShaderKeyboard's _pressed dict.
type Keyboard struct {
	base.Module

	pressed map[int]bool
}

// New creates an empty Keyboard module.
func New() *Keyboard {
	k := &Keyboard{pressed: make(map[int]bool)}
	k.Init()
	return k
}

func (k *Keyboard) Name() string       { return "keyboard" }
func (k *Keyboard) Setup()             {}
func (k *Keyboard) Update()            {}
func (k *Keyboard) Defines() []string  { return nil }
func (k *Keyboard) Includes() []string { return nil }
func (k *Keyboard) Destroy()           {}

// Pressed reports whether the given key is currently held down.
func (k *Keyboard) Pressed(key int) bool {
	return k.pressed[key]
}

// Handle records a resolved key press/release, matching ShaderKeyboard.handle:
// any action other than release counts as "held".
func (k *Keyboard) Handle(msg message.Message) {
	press, ok := msg.(message.KeyboardPress)
	if !ok {
		return
	}
	k.pressed[press.Key] = press.Action != ActionRelease
}

// Pipeline intentionally yields nothing: the source's own pipeline()
// returns before its per-key uniform loop ever runs, so no iKey* uniforms
// are emitted. Kept as a documented no-op rather than silently dropped.
func (k *Keyboard) Pipeline() []variable.Variable {
	return nil
}
