// Package image loads a static picture from disk into a fixed-size
// texture exposed to shaders as an ordinary channel, grounded on the
// teacher's inputs/image.go (ImageChannel: decode once, upload once,
// report a constant resolution) and ShaderFlow's texture-loading modules.
// Decoding accepts PNG/JPEG via the standard library plus BMP/TIFF/WebP via
// golang.org/x/image, registered here so a wider range of asset formats
// works without the caller needing to know which package owns which
// extension.
package image

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/richinsley/goshaderflow/internal/logging"
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/texture"
	"github.com/richinsley/goshaderflow/variable"
)

var log = logging.For("image")

// fixedSizer reports the decoded image's own dimensions, since a static
// picture texture never tracks the render resolution.
type fixedSizer struct{ w, h int }

func (f fixedSizer) Resolution() (int, int)       { return f.w, f.h }
func (f fixedSizer) RenderResolution() (int, int) { return f.w, f.h }
func (f fixedSizer) Realtime() bool               { return false }

// Module exposes one decoded picture as a texture.Matrix, uploaded once at
// Setup and never rewritten afterward.
type Module struct {
	base.Module

	name string
	path string

	Texture *texture.Matrix
}

// New constructs an image module bound to a file path, not yet decoded.
// The file is read and uploaded in Setup, once a GL context exists.
func New(name, path string) *Module {
	m := &Module{name: name, path: path}
	m.Init()
	return m
}

func (m *Module) Name() string { return m.name }

// Setup decodes the configured file and uploads it as a single, untracked
// texture box. A decode failure is logged and leaves the module inert
// (Defines/Pipeline report nothing) rather than aborting the scene.
func (m *Module) Setup() {
	img, err := decodeFile(m.path)
	if err != nil {
		log.Error().Err(err).Str("path", m.path).Msg("failed to load image, channel will be inert")
		return
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	m.Texture = texture.New(m.name, fixedSizer{w: w, h: h})
	m.Texture.Track = 0
	m.Texture.Components = 4
	m.Texture.Mipmaps = true
	m.Texture.SetSize(w, h)
	m.Texture.Make()
	m.Texture.Write(rgbaBytes(img), 0, 0)
}

// decodeFile dispatches on content, not extension, trying every format
// registered in this package (stdlib PNG/JPEG plus x/image BMP/TIFF/WebP).
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// rgbaBytes flattens an image.Image into tightly packed RGBA8 rows,
// regardless of its native color model.
func rgbaBytes(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out[i+0] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(bl >> 8)
			out[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out
}

func (m *Module) Destroy() {
	if m.Texture != nil {
		m.Texture.Destroy()
	}
}

func (m *Module) Update()                {}
func (m *Module) Handle(message.Message) {}
func (m *Module) Includes() []string     { return nil }

func (m *Module) Defines() []string {
	if m.Texture == nil {
		return nil
	}
	return m.Texture.Defines()
}

func (m *Module) Pipeline() []variable.Variable {
	if m.Texture == nil {
		return nil
	}
	return m.Texture.Pipeline()
}
