package shaderprog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshaderflow/variable"
)

type fakeModule struct {
	name     string
	defines  []string
	includes []string
}

func (f fakeModule) Name() string       { return f.name }
func (f fakeModule) Defines() []string  { return f.defines }
func (f fakeModule) Includes() []string { return f.includes }

type fakeScene struct {
	modules  []ModuleContent
	pipeline []variable.Variable
	w, h     int
	sub      float64
}

func (f fakeScene) Modules() []ModuleContent          { return f.modules }
func (f fakeScene) FullPipeline() []variable.Variable { return f.pipeline }
func (f fakeScene) Resolution() (int, int)            { return f.w, f.h }
func (f fakeScene) Subsample() float64                { return f.sub }

func TestMakeFragmentIncludesVersionAndContent(t *testing.T) {
	scene := fakeScene{w: 1920, h: 1080}
	p := New("main", scene, nil)
	src := p.MakeFragment()

	assert.True(t, strings.HasPrefix(src, "#version 330"))
	assert.Contains(t, src, "#define FRAGMENT")
	assert.Contains(t, src, "out vec4 fragColor;")
	assert.Contains(t, src, DefaultFragmentShader)
}

func TestMakeFragmentIncludesModuleDefinesAndIncludes(t *testing.T) {
	scene := fakeScene{modules: []ModuleContent{
		fakeModule{name: "Camera", defines: []string{"#define CAMERA_MODULE"}, includes: []string{"vec3 camera_ray() { return vec3(0.0); }"}},
	}}
	p := New("main", scene, nil)
	src := p.MakeFragment()

	assert.Contains(t, src, "#define CAMERA_MODULE")
	assert.Contains(t, src, "vec3 camera_ray() { return vec3(0.0); }")
	assert.Contains(t, src, "Include - Camera")
}

func TestVAODefinitionOrdersInVariablesOnly(t *testing.T) {
	scene := fakeScene{}
	p := New("main", scene, nil)

	layout, names := p.VAODefinition()
	require.Equal(t, []string{"vertex_position", "vertex_gluv"}, names)
	assert.Equal(t, "2f 2f", layout)
}

func TestTraverseVariableAddsPairedInOut(t *testing.T) {
	scene := fakeScene{}
	p := New("main", scene, nil)

	frag := p.MakeFragment()
	vert := p.MakeVertex()
	assert.Contains(t, frag, "in vec2 fragCoord;")
	assert.Contains(t, vert, "out vec2 fragCoord;")
}
