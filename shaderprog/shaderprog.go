// Package shaderprog implements the GLSL metaprogramming and GPU program
// lifecycle described by spec.md's ShaderProgram module: assembling vertex
// and fragment sources from declared variables plus every module's defines
// and includes, compiling with a fallback to a "missing texture" shader on
// error, and rendering into a TextureMatrix.
//
// Grounded 1:1 on ShaderFlow's shader.py (ShaderProgram/ShaderDumper) for the
// metaprogramming/compile/render contract, and on the teacher's
// shader/shader.go (preamble assembly) and renderer/renderer.go
// (newProgram/compileShader GL idiom).
package shaderprog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	gst "github.com/richinsley/goshadertranslator"

	"github.com/richinsley/goshaderflow/internal/logging"
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/texture"
	"github.com/richinsley/goshaderflow/translator"
	"github.com/richinsley/goshaderflow/variable"
)

var log = logging.For("shaderprog")

// ModuleContent is implemented by every module contributing GLSL text to
// the final shader, mirroring ShaderModule.defines()/includes().
type ModuleContent interface {
	Defines() []string
	Includes() []string
	Name() string
}

// Scene is the subset of scene behavior a Program needs to assemble and
// render itself, kept as an interface to avoid an import cycle with the
// scene package.
type Scene interface {
	Modules() []ModuleContent
	FullPipeline() []variable.Variable
	Resolution() (int, int)
	Subsample() float64
}

// DefaultVertexShader and DefaultFragmentShader are the built-in "user
// content" bodies used when a module doesn't supply its own, matching the
// source's shaders/vertex/default.glsl and shaders/fragment/default.glsl.
const (
	DefaultVertexShader = `void main() {
    gl_Position = vec4(vertex_position, 0.0, 1.0);
    stuv = vertex_gluv * 0.5 + 0.5;
    astuv = stuv;
    gluv = vertex_gluv;
    agluv = gluv;
    fragCoord = vertex_position;
    glxy = vertex_position;
    stxy = vertex_position;
    instance = gl_InstanceID;
}
`
	DefaultFragmentShader = `void main() {
    fragColor = vec4(stuv, 0.0, 1.0);
}
`
	// MissingFragmentShader is loaded when compilation fails, signaling a
	// broken shader without killing the render loop.
	MissingFragmentShader = `void main() {
    fragColor = vec4(1.0, 0.0, 1.0, 1.0) * (mod(floor((stuv.x+stuv.y)*20.0), 2.0));
}
`
)

// Program is a single GLSL shader's full lifecycle: variable
// metaprogramming, GL compile, and per-frame rendering into its texture.
type Program struct {
	base.Module

	SceneName string
	Version   int
	Clear     bool
	Instances int32

	// Validate runs the assembled fragment source through
	// goshadertranslator's WebGL2 validator before compiling. Purely
	// diagnostic: a validation failure is logged, never blocks the real
	// go-gl compile below it.
	Validate bool

	// SkipGPU, when set (SKIP_GPU=1 in cmd), skips the actual draw call in
	// renderToFBO while leaving compile/uniform upload untouched. Lets the
	// scheduler, export pipe, and dynamics run at full speed without a GPU
	// doing any rendering work, for benchmarking the rest of the pipeline.
	SkipGPU bool

	Texture *texture.Matrix

	vertexVars   *variable.Set
	fragmentVars *variable.Set

	vertices []float32

	vertexContent   string
	fragmentContent string

	vbo     uint32
	vao     uint32
	program uint32

	scene Scene
}

// New constructs a Program bound to its owning scene and texture matrix,
// registering the fixed built-in variable set from ShaderProgram.build.
func New(name string, scene Scene, tex *texture.Matrix) *Program {
	p := &Program{
		SceneName:    name,
		Version:      330,
		Clear:        true,
		Instances:    1,
		Texture:      tex,
		vertexVars:   variable.NewSet(),
		fragmentVars: variable.NewSet(),
		scene:        scene,
	}

	p.FragmentVariable(variable.Out(variable.TypeVec4, "fragColor"))
	p.VertexVariable(variable.In(variable.TypeVec2, "vertex_position"))
	p.VertexVariable(variable.In(variable.TypeVec2, "vertex_gluv"))

	for _, name := range []string{"fragCoord", "stxy", "glxy", "stuv", "astuv", "gluv", "agluv"} {
		p.TraverseVariable(variable.Variable{Type: variable.TypeVec2, Name: name})
	}
	p.TraverseVariable(variable.Variable{Type: variable.TypeInt, Name: "instance", Interpolation: variable.InterpolationFlat})

	for _, xy := range [][2]float32{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}} {
		p.AddVertex(xy[0], xy[1], xy[0], xy[1])
	}

	p.Init()

	p.vertexContent = DefaultVertexShader
	p.fragmentContent = DefaultFragmentShader

	return p
}

// VertexVariable adds/overwrites a vertex-shader-only variable.
func (p *Program) VertexVariable(v variable.Variable) { p.vertexVars.Add(v) }

// FragmentVariable adds/overwrites a fragment-shader-only variable.
func (p *Program) FragmentVariable(v variable.Variable) { p.fragmentVars.Add(v) }

// CommonVariable adds a variable to both shader stages.
func (p *Program) CommonVariable(v variable.Variable) {
	p.FragmentVariable(v)
	p.VertexVariable(v)
}

// TraverseVariable adds the paired fragment "in"/vertex "out" forms of a
// value crossing the vertex->fragment boundary.
func (p *Program) TraverseVariable(v variable.Variable) {
	fragIn, vertOut := variable.Traverse(v.Type, v.Name)
	fragIn.Interpolation = v.Interpolation
	vertOut.Interpolation = v.Interpolation
	p.FragmentVariable(fragIn)
	p.VertexVariable(vertOut)
}

// AddVertex appends one fullscreen-quad vertex (position, gluv).
func (p *Program) AddVertex(x, y, u, v float32) {
	p.vertices = append(p.vertices, x, y, u, v)
}

// SetVertexContent sets the vertex shader's user content body.
func (p *Program) SetVertexContent(src string) { p.vertexContent = src }

// SetFragmentContent sets the fragment shader's user content body.
func (p *Program) SetFragmentContent(src string) { p.fragmentContent = src }

const metaprogrammingSeparator = "// " + strings.Repeat("-", 96) + "|\n"

// buildShader assembles the final GLSL source: version/type defines, the
// declared variable block, every module's #define lines and includes, then
// the user content. Mirrors ShaderProgram._build_shader.
func (p *Program) buildShader(content string, vars *variable.Set, stageType string) string {
	var code []string
	code = append(code, fmt.Sprintf("#version %d", p.Version))
	code = append(code, fmt.Sprintf("#define %s", stageType))

	code = append(code, "\n\n"+metaprogrammingSeparator+"// Metaprogramming (Variables)\n")
	for _, v := range vars.Slice() {
		code = append(code, v.Declaration())
	}

	if p.scene != nil {
		for _, m := range p.scene.Modules() {
			code = append(code, m.Defines()...)
			for _, include := range m.Includes() {
				if include == "" {
					continue
				}
				code = append(code, "\n\n"+metaprogrammingSeparator+fmt.Sprintf("// Include - %s\n", m.Name()))
				code = append(code, include)
			}
		}
	}

	code = append(code, "\n\n"+metaprogrammingSeparator+"// Metaprogramming (Content)\n")
	code = append(code, content)

	nonEmpty := code[:0]
	for _, line := range code {
		if line != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// MakeVertex returns the fully assembled vertex shader source.
func (p *Program) MakeVertex() string {
	return p.buildShader(p.vertexContent, p.vertexVars, "VERTEX")
}

// MakeFragment returns the fully assembled fragment shader source.
func (p *Program) MakeFragment() string {
	return p.buildShader(p.fragmentContent, p.fragmentVars, "FRAGMENT")
}

// VAODefinition returns the vertex attribute layout string and ordered
// attribute names, e.g. ("2f 2f", ["vertex_position", "vertex_gluv"]).
func (p *Program) VAODefinition() (string, []string) {
	return variable.VAODefinition(p.vertexVars.Slice())
}

// FullPipeline adds the current pipeline uniforms (scene + texture) as both
// vertex and fragment variables, mirroring compile()'s
// `for variable in self.full_pipeline(): self.common_variable(variable)`.
func (p *Program) FullPipeline() []variable.Variable {
	var out []variable.Variable
	if p.scene != nil {
		out = append(out, p.scene.FullPipeline()...)
	}
	if p.Texture != nil {
		out = append(out, p.Texture.Pipeline()...)
	}
	return out
}

// Compile links the GL program from the current metaprogrammed sources.
// On a link/compile failure it writes the offending sources and an error
// report under shaderDumpDir and retries once with the built-in
// default/missing shaders; a second failure
// is a programming error and panics, matching the source's
// RuntimeError("Recursion on Missing Texture Shader Loading").
func (p *Program) Compile() error {
	for _, v := range p.FullPipeline() {
		p.CommonVariable(v)
	}

	vertex := p.MakeVertex()
	fragment := p.MakeFragment()
	if p.Validate {
		p.validate(fragment)
	}
	return p.compileSources(vertex, fragment, false)
}

// validate runs fragment through goshadertranslator's WebGL2 front end as
// an early-warning pass, matching renderer.go's translate-before-compile
// step. Only logged: the actual compile below uses go-gl against the
// driver directly, so a translator false positive/negative never changes
// behavior.
func (p *Program) validate(fragment string) {
	t := translator.GetTranslator()
	if t == nil {
		return
	}
	if _, err := t.TranslateShader(fragment, "fragment", gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410); err != nil {
		log.Warn().Err(err).Str("shader", p.SceneName).Msg("shader validation reported an issue")
	}
}

// glslDiagnosticLine matches a driver error's source/line prefix in either
// the NVIDIA ("0(123)") or Mesa/ANGLE ("0:123") dialect.
var glslDiagnosticLine = regexp.MustCompile(`0[:(](\d+)`)

// shaderDumpDir is the per-user directory ShaderDumper writes {uuid}.vert/
// .frag/-error.md into, matching shader.py's platform cache directory
// convention rather than a path relative to the working directory.
func shaderDumpDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "goshaderflow", "shaders")
}

// dumpFailure writes the failing vertex/fragment sources plus a Markdown
// error report (driver log + a ±5-line context window around every
// reported diagnostic line) to shaderDumpDir, named by this program's
// UUID. Matches ShaderDumper's crash-report behavior; write failures are
// logged, never escalated, since a dump failing shouldn't block the
// fallback-shader recovery already in progress.
func (p *Program) dumpFailure(vertex, fragment string, compileErr error) {
	dir := shaderDumpDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Msg("could not create shader dump directory")
		return
	}

	idBase := fmt.Sprintf("%d", p.UUID())
	vertPath := filepath.Join(dir, idBase+".vert")
	fragPath := filepath.Join(dir, idBase+".frag")
	errPath := filepath.Join(dir, idBase+"-error.md")

	if err := os.WriteFile(vertPath, []byte(vertex), 0o644); err != nil {
		log.Warn().Err(err).Msg("could not write vertex shader dump")
	}
	if err := os.WriteFile(fragPath, []byte(fragment), 0o644); err != nil {
		log.Warn().Err(err).Msg("could not write fragment shader dump")
	}
	if err := os.WriteFile(errPath, []byte(errorReport(compileErr.Error(), fragment)), 0o644); err != nil {
		log.Warn().Err(err).Msg("could not write shader error report")
		return
	}

	log.Error().Str("vert", vertPath).Str("frag", fragPath).Str("report", errPath).Msg("dumped failing shader")
}

// errorReport renders the driver's raw log plus a context window around
// every line it names, matching ShaderDumper's "show nearby source" error
// excerpt.
func errorReport(driverLog, fragment string) string {
	var b strings.Builder
	b.WriteString("# shader compile error\n\n```\n")
	b.WriteString(driverLog)
	b.WriteString("\n```\n")

	lines := strings.Split(fragment, "\n")
	seen := map[int]bool{}
	for _, m := range glslDiagnosticLine.FindAllStringSubmatch(driverLog, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || seen[n] {
			continue
		}
		seen[n] = true

		lo, hi := n-5, n+5
		if lo < 1 {
			lo = 1
		}
		if hi > len(lines) {
			hi = len(lines)
		}

		fmt.Fprintf(&b, "\n## line %d\n\n```glsl\n", n)
		for i := lo; i <= hi; i++ {
			marker := "  "
			if i == n {
				marker = "->"
			}
			fmt.Fprintf(&b, "%s %4d | %s\n", marker, i, lines[i-1])
		}
		b.WriteString("```\n")
	}
	return b.String()
}

func (p *Program) compileSources(vertex, fragment string, isFallback bool) error {
	program, err := newProgram(vertex, fragment)
	if err != nil {
		if isFallback {
			return fmt.Errorf("shaderprog: recursion compiling fallback shader: %w", err)
		}
		log.Error().Err(err).Str("shader", p.SceneName).Msg("compile error, dumping sources and loading fallback")
		p.dumpFailure(vertex, fragment, err)
		p.program = 0
		fallbackFrag := p.buildShader(MissingFragmentShader, p.fragmentVars, "FRAGMENT")
		fallbackVert := p.buildShader(DefaultVertexShader, p.vertexVars, "VERTEX")
		return p.compileSources(fallbackVert, fallbackFrag, true)
	}

	if p.program != 0 {
		gl.DeleteProgram(p.program)
	}
	p.program = program

	p.uploadVertices()
	return nil
}

func (p *Program) uploadVertices() {
	if p.vbo == 0 {
		gl.GenBuffers(1, &p.vbo)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, p.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(p.vertices)*4, gl.Ptr(p.vertices), gl.STATIC_DRAW)

	if p.vao == 0 {
		gl.GenVertexArrays(1, &p.vao)
	}
	gl.BindVertexArray(p.vao)

	_, names := p.VAODefinition()
	stride := int32(len(names)) * 2 * 4
	var offset int32
	for i, name := range names {
		loc := uint32(gl.GetAttribLocation(p.program, gl.Str(name+"\x00")))
		_ = i
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, 2, gl.FLOAT, false, stride, uintptr(offset))
		offset += 2 * 4
	}
	gl.BindVertexArray(0)
}

// SetUniform sets a named uniform if the program declares it, silently
// ignoring unknown names (mirroring `if uniform := self.program.get(...)`).
func (p *Program) SetUniform(name string, value any) {
	if p.program == 0 {
		return
	}
	loc := gl.GetUniformLocation(p.program, gl.Str(name+"\x00"))
	if loc < 0 {
		return
	}
	switch v := value.(type) {
	case int:
		gl.Uniform1i(loc, int32(v))
	case int32:
		gl.Uniform1i(loc, v)
	case uint32:
		gl.Uniform1i(loc, int32(v))
	case bool:
		var b int32
		if v {
			b = 1
		}
		gl.Uniform1i(loc, b)
	case float32:
		gl.Uniform1f(loc, v)
	case float64:
		gl.Uniform1f(loc, float32(v))
	case [2]float64:
		gl.Uniform2f(loc, float32(v[0]), float32(v[1]))
	case [3]float64:
		gl.Uniform3f(loc, float32(v[0]), float32(v[1]), float32(v[2]))
	case [4]float64:
		gl.Uniform4f(loc, float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]))
	}
}

// UsePipeline binds every variable of the pipeline as a uniform, advancing
// the texture unit index for each sampler2D value. Mirrors
// ShaderProgram.use_pipeline.
func (p *Program) UsePipeline(vars []variable.Variable) {
	unit := 0
	for _, v := range vars {
		if v.Type == variable.TypeSampler2D {
			if tex, ok := v.Value.(uint32); ok {
				gl.ActiveTexture(uint32(gl.TEXTURE0 + unit))
				gl.BindTexture(gl.TEXTURE_2D, tex)
			}
			p.SetUniform(v.Name, unit)
			unit++
			continue
		}
		p.SetUniform(v.Name, v.Value)
	}
}

func (p *Program) renderToFBO(fbo uint32, clear bool) {
	if p.SkipGPU {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	if clear {
		gl.ClearColor(0, 0, 0, 0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}
	gl.BindVertexArray(p.vao)
	gl.UseProgram(p.program)
	gl.DrawArraysInstanced(gl.TRIANGLE_STRIP, 0, 4, p.Instances)
}

// Render draws one frame: the final-output shader renders only its own
// texture's pipeline directly to the window/output FBO; any other shader
// renders its full pipeline into each of its texture's current layers, then
// rolls the temporal history. Mirrors ShaderProgram.render.
func (p *Program) Render() {
	if p.Texture != nil && p.Texture.Final {
		p.UsePipeline(p.Texture.Pipeline())
		if p.scene != nil {
			w, h := p.scene.Resolution()
			p.SetUniform("iResolution", [2]float64{float64(w), float64(h)})
			p.SetUniform("iSubsample", p.scene.Subsample())
		}
		p.renderToFBO(p.Texture.FBO(), false)
		return
	}

	p.UsePipeline(p.FullPipeline())

	if p.Texture != nil {
		for layer := 0; layer < p.Texture.Layers; layer++ {
			p.SetUniform("iLayer", layer)
			box := p.Texture.GetBox(0, layer)
			p.renderToFBO(box.FBO, p.Clear)
		}
		p.Texture.Roll(1)
	}
}

// Update renders one frame; a thin alias kept for symmetry with modules
// whose Update hook performs work other than rendering.
func (p *Program) Update() { p.Render() }

// Handle recompiles or re-renders in response to bus broadcasts.
func (p *Program) Handle(msg message.Message) {
	switch msg.(type) {
	case message.ShaderCompile:
		if err := p.Compile(); err != nil {
			log.Error().Err(err).Msg("shader recompile failed")
		}
	case message.ShaderRender:
		p.Render()
	}
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("failed to link program: %v", infoLog)
	}

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}
