// Package texture implements the temporal/layered texture matrix bound to
// module outputs, grounded 1:1 on ShaderFlow's texture.py (ShaderTexture,
// TextureBox) and the teacher's inputs/buffer.go (FBO+texture pairing,
// go-gl/gl texture/framebuffer calls).
package texture

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/variable"
)

// Filter selects the GPU sampling filter.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

func (f Filter) glFilter(mipmaps bool) int32 {
	switch {
	case f == FilterLinear && mipmaps:
		return gl.LINEAR_MIPMAP_LINEAR
	case f == FilterLinear:
		return gl.LINEAR
	case mipmaps:
		return gl.NEAREST_MIPMAP_NEAREST
	default:
		return gl.NEAREST
	}
}

// Box pairs a texture with the framebuffer that renders into it, mirroring
// TextureBox. Empty is true until the first Write, matching the source's
// "is_empty" bookkeeping used by modules that skip processing on a cold box.
type Box struct {
	Texture uint32
	FBO     uint32
	Data    []byte
	Empty   bool
}

// Release frees the GPU objects held by this box. Safe to call on a zero Box.
func (b *Box) Release() {
	if b.Texture != 0 {
		gl.DeleteTextures(1, &b.Texture)
		b.Texture = 0
	}
	if b.FBO != 0 {
		gl.DeleteFramebuffers(1, &b.FBO)
		b.FBO = 0
	}
}

// Sizer is implemented by the owning scene, supplying the resolution a
// tracked texture should scale to.
type Sizer interface {
	Resolution() (int, int)
	RenderResolution() (int, int)
	Realtime() bool
}

// Matrix is a deque-of-deques of Boxes: matrix[temporal][layer], reproducing
// ShaderTexture's matrix/temporal/layers/roll/boxes/make/apply/pipeline
// contract exactly.
type Matrix struct {
	Name string

	Track      float64
	Final      bool
	Filter     Filter
	Anisotropy int32
	Mipmaps    bool
	RepeatX    bool
	RepeatY    bool
	Components int32
	DType      uint32 // gl.UNSIGNED_BYTE, gl.FLOAT, ...

	Temporal int
	Layers   int

	width, height int

	matrix [][]Box

	owner Sizer
}

// New constructs a Matrix bound to the given owner (for resolution tracking).
// Defaults mirror the source: linear filter, 16x anisotropy, repeat both
// axes, RGBA8, one temporal frame, one layer.
func New(name string, owner Sizer) *Matrix {
	return &Matrix{
		Name:       name,
		Filter:     FilterLinear,
		Anisotropy: 16,
		RepeatX:    true,
		RepeatY:    true,
		Components: 4,
		DType:      gl.UNSIGNED_BYTE,
		Temporal:   1,
		Layers:     1,
		width:      1,
		height:     1,
		owner:      owner,
	}
}

// Resolution returns the box size: the tracked scene/render resolution
// scaled by Track, or the fixed width/height when Track is zero.
func (m *Matrix) Resolution() (int, int) {
	if m.Track == 0 {
		return m.width, m.height
	}
	var w, h int
	if m.Final {
		w, h = m.owner.Resolution()
	} else {
		w, h = m.owner.RenderResolution()
	}
	scale := func(x int) int {
		v := int(float64(x) * m.Track)
		if v < 1 {
			return 1
		}
		return v
	}
	return scale(w), scale(h)
}

// SetSize sets the fixed (untracked) size, rebuilding the boxes if they
// are already allocated; otherwise the size takes effect at the next Make.
func (m *Matrix) SetSize(w, h int) {
	if m.Track != 0 {
		return
	}
	m.width, m.height = w, h
	if m.matrix != nil {
		m.Make()
	}
}

// AspectRatio is width/height of the current resolution.
func (m *Matrix) AspectRatio() float64 {
	w, h := m.Resolution()
	if h == 0 {
		h = 1
	}
	return float64(w) / float64(h)
}

func popFill(rows [][]Box, length int) [][]Box {
	for len(rows) > length {
		rows = rows[:len(rows)-1]
	}
	for len(rows) < length {
		rows = append(rows, nil)
	}
	return rows
}

func popFillRow(row []Box, length int) []Box {
	for len(row) > length {
		row = row[:len(row)-1]
	}
	for len(row) < length {
		row = append(row, Box{Empty: true})
	}
	return row
}

// Boxes visits every (temporal, layer, box) triple in the matrix.
func (m *Matrix) Boxes(fn func(temporal, layer int, box *Box)) {
	for t := range m.matrix {
		for l := range m.matrix[t] {
			fn(t, l, &m.matrix[t][l])
		}
	}
}

// Make (re)allocates the matrix to Temporal x Layers boxes at the current
// resolution, recreating GL textures/framebuffers and rewriting any
// previously-held bytes when the size is unchanged. Mirrors ShaderTexture.make.
func (m *Matrix) Make() {
	m.matrix = popFill(m.matrix, m.Temporal)
	for i := range m.matrix {
		m.matrix[i] = popFillRow(m.matrix[i], m.Layers)
	}

	w, h := m.Resolution()
	m.Boxes(func(_, _ int, box *Box) {
		box.Release()

		gl.GenTextures(1, &box.Texture)
		gl.BindTexture(gl.TEXTURE_2D, box.Texture)
		gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat(m.Components), int32(w), int32(h), 0, glFormat(m.Components), m.DType, nil)

		gl.GenFramebuffers(1, &box.FBO)
		gl.BindFramebuffer(gl.FRAMEBUFFER, box.FBO)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, box.Texture, 0)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

		if box.Data != nil && len(box.Data) == w*h*int(m.Components)*bytesPerComponent(m.DType) {
			gl.BindTexture(gl.TEXTURE_2D, box.Texture)
			gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h), glFormat(m.Components), m.DType, gl.Ptr(box.Data))
		}
	})

	m.Apply()
}

func internalFormat(components int32) int32 {
	switch components {
	case 1:
		return gl.R8
	case 2:
		return gl.RG8
	case 3:
		return gl.RGB8
	default:
		return gl.RGBA8
	}
}

func glFormat(components int32) uint32 {
	switch components {
	case 1:
		return gl.RED
	case 2:
		return gl.RG
	case 3:
		return gl.RGB
	default:
		return gl.RGBA
	}
}

func bytesPerComponent(dtype uint32) int {
	if dtype == gl.FLOAT {
		return 4
	}
	return 1
}

// Apply re-applies filter/mipmap/repeat flags to every box's texture
// without reallocating. Anisotropy is not applied to the GL texture.
// Mirrors ShaderTexture.apply.
func (m *Matrix) Apply() {
	m.Boxes(func(_, _ int, box *Box) {
		if box.Texture == 0 {
			return
		}
		gl.BindTexture(gl.TEXTURE_2D, box.Texture)
		if m.Mipmaps {
			gl.GenerateMipmap(gl.TEXTURE_2D)
		}
		f := m.Filter.glFilter(m.Mipmaps)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, f)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, f)
		wrapX, wrapY := int32(gl.CLAMP_TO_EDGE), int32(gl.CLAMP_TO_EDGE)
		if m.RepeatX {
			wrapX = gl.REPEAT
		}
		if m.RepeatY {
			wrapY = gl.REPEAT
		}
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapX)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapY)
	})
}

// Destroy releases every box's GL objects.
func (m *Matrix) Destroy() {
	m.Boxes(func(_, _ int, box *Box) { box.Release() })
}

// GetBox returns the box at (temporal, layer); layer -1 means the last layer,
// matching Python negative indexing.
func (m *Matrix) GetBox(temporal, layer int) *Box {
	if layer < 0 {
		layer += len(m.matrix[temporal])
	}
	return &m.matrix[temporal][layer]
}

// FBO returns the most recent box's framebuffer, or the window's own
// framebuffer (0) when this is the bound final output in realtime mode.
func (m *Matrix) FBO() uint32 {
	if m.Final && m.owner.Realtime() {
		return 0
	}
	return m.GetBox(0, -1).FBO
}

// Texture returns the most recent box's texture handle.
func (m *Matrix) Texture() uint32 {
	return m.GetBox(0, -1).Texture
}

// Roll rotates the temporal dimension by n, so box[0] becomes the oldest
// write target and the prior box[0] shifts to box[1] (or wraps), matching
// deque.rotate semantics used for history access.
func (m *Matrix) Roll(n int) {
	t := len(m.matrix)
	if t == 0 {
		return
	}
	n = ((n % t) + t) % t
	rotated := make([][]Box, t)
	for i, row := range m.matrix {
		rotated[(i+n)%t] = row
	}
	m.matrix = rotated
}

// Write uploads data into the box at (temporal, layer); layer -1 selects the
// last layer. It always writes the whole texture and retains the bytes for
// later size-preserving recreation.
func (m *Matrix) Write(data []byte, temporal, layer int) {
	box := m.GetBox(temporal, layer)
	w, h := m.Resolution()
	gl.BindTexture(gl.TEXTURE_2D, box.Texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h), glFormat(m.Components), m.DType, gl.Ptr(data))
	box.Data = append([]byte(nil), data...)
	box.Empty = false
}

// Clear zeroes out the box at (temporal, layer).
func (m *Matrix) Clear(temporal, layer int) {
	w, h := m.Resolution()
	n := w * h * int(m.Components) * bytesPerComponent(m.DType)
	m.Write(make([]byte, n), temporal, layer)
}

// IsEmpty reports whether the box at (temporal, layer) has never been written.
func (m *Matrix) IsEmpty(temporal, layer int) bool {
	return m.GetBox(temporal, layer).Empty
}

func coordName(name string, temporal, layer int) string {
	return fmt.Sprintf("%s%dx%d", name, temporal, layer)
}

// Defines renders the #define aliases and the sampling dispatch function
// consumed by module fragment shaders, matching ShaderTexture.defines.
func (m *Matrix) Defines() []string {
	if m.Name == "" {
		return nil
	}
	var lines []string
	for t := 0; t < m.Temporal; t++ {
		suffix := ""
		if t != 0 {
			suffix = fmt.Sprintf("%d", t)
		}
		lines = append(lines, fmt.Sprintf("#define %s%s %s", m.Name, suffix, coordName(m.Name, t, m.Layers-1)))
	}

	lines = append(lines, fmt.Sprintf("vec4 %sTexture(int temporal, int layer, vec2 astuv) {", m.Name))
	for t := 0; t < m.Temporal; t++ {
		for l := 0; l < m.Layers; l++ {
			lines = append(lines, fmt.Sprintf("    if (temporal == %d && layer == %d)", t, l))
			lines = append(lines, fmt.Sprintf("        return texture(%s, astuv);", coordName(m.Name, t, l)))
		}
	}
	lines = append(lines, "    return vec4(0.0);")
	lines = append(lines, "}")
	return lines
}

// Handle rebuilds the matrix whenever a ShaderRecreateTextures broadcast
// arrives and Track is non-zero, matching ShaderTexture.handle.
func (m *Matrix) Handle(msg message.Message) {
	if m.Track == 0 {
		return
	}
	if _, ok := msg.(message.ShaderRecreateTextures); ok {
		m.Make()
	}
}

// Pipeline yields the uniforms a module contributes for this texture: its
// size/layers/temporal plus one sampler per box, matching
// ShaderTexture.pipeline.
func (m *Matrix) Pipeline() []variable.Variable {
	if m.Name == "" {
		return nil
	}
	w, h := m.Resolution()
	vars := []variable.Variable{
		variable.Uniform(variable.TypeVec2, m.Name+"Size", [2]float64{float64(w), float64(h)}),
		variable.Uniform(variable.TypeInt, m.Name+"Layers", m.Layers),
		variable.Uniform(variable.TypeInt, m.Name+"Temporal", m.Temporal),
	}
	m.Boxes(func(t, l int, box *Box) {
		vars = append(vars, variable.Uniform(variable.TypeSampler2D, coordName(m.Name, t, l), box.Texture))
	})
	return vars
}

// String renders a short debug summary.
func (m *Matrix) String() string {
	w, h := m.Resolution()
	return fmt.Sprintf("Texture(%s, %dx%d, temporal=%d, layers=%d)", m.Name, w, h, m.Temporal, m.Layers)
}
