package scene

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/goshaderflow/internal/logging"
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/audio"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/modules/camera"
	"github.com/richinsley/goshaderflow/modules/frametimer"
	"github.com/richinsley/goshaderflow/modules/keyboard"
	"github.com/richinsley/goshaderflow/scheduler"
	"github.com/richinsley/goshaderflow/shaderprog"
	"github.com/richinsley/goshaderflow/texture"
	"github.com/richinsley/goshaderflow/variable"
)

var log = logging.For("scene")

// Module is implemented by every content module owned by a Scene:
// frametimer, keyboard, camera, audio, and the adapters for the two shader
// programs' textures. The shader programs themselves are held separately
// as Shader and Final.
// Grounded on ShaderFlow's ShaderModule base class
// (setup/update/handle/defines/includes/destroy).
type Module interface {
	Name() string
	UUID() int64
	Setup()
	Update()
	Handle(msg message.Message)
	Defines() []string
	Includes() []string
	Pipeline() []variable.Variable
	Destroy()
}

// Window is the subset of window-backend behavior a Scene drives; the
// glfwcontext and headless packages each implement it.
type Window interface {
	SwapBuffers()
	FramebufferSize() (int, int)
	SetSize(w, h int)
	ShouldClose() bool
	SetTitle(title string)
}

// Scene is the root module: it owns the module bus, the main and final
// (SSAA downsample) shaders, the scheduler-driven event loop, and the
// combined per-frame uniform pipeline. Grounded on ShaderFlow's scene.py
// (ShaderScene) and the teacher's renderer/scene.go + renderer/renderer.go.
type Scene struct {
	Name string

	Window Window

	modules []Module

	Shader *shaderprog.Program // the user's "iScreen" shader
	Final  *shaderprog.Program // the "iFinal" SSAA downsample shader

	Frametimer *frametimer.Timer
	Keyboard   *keyboard.Keyboard
	Camera     *camera.Camera
	Audio      *audio.Module

	Scheduler *scheduler.Scheduler
	VSync     *scheduler.Task

	Quit bool

	Time    float64
	Speed   float64
	Runtime float64
	FPS     float64
	DT      float64
	RDT     float64

	Quality       float64
	subsampleSize int

	width, height int
	scale         float64
	ssaa          float64
	aspectRatio   *float64

	realtime   bool
	Exporting  bool
	Freewheel  bool
	Headless   bool
	RenderUI   bool
	Exclusive  bool
	Fullscreen bool

	// Raw pins RenderResolution to the output Resolution, skipping the
	// SSAA upscale entirely. Set directly by --raw, and implied whenever
	// SSAA < 1 (there's no point rendering below output resolution and
	// upsampling it back).
	Raw bool

	MouseGLUV   [2]float64
	MouseInside bool
	mouse1      bool
	mouse2      bool
	mouse3      bool

	ScreenshotDir string

	shaderWatcher *fsnotify.Watcher
	reload        chan string
}

// New constructs a Scene bound to a window backend, with the critical
// damping / SSAA defaults from ShaderScene's attrs field defaults.
func New(name string, window Window) *Scene {
	s := &Scene{
		Name:      name,
		Window:    window,
		Scheduler: scheduler.NewScheduler(),
		Speed:     1.0,
		Runtime:   10.0,
		FPS:       60.0,
		Quality:       50.0,
		subsampleSize: 2,
		width:         1920,
		height:        1080,
		scale:         1.0,
		ssaa:          1.0,
		realtime:      true,
	}

	s.Shader = shaderprog.New("iScreen", s, texture.New("iScreen", s))
	s.Shader.Texture.RepeatX, s.Shader.Texture.RepeatY = false, false
	s.Shader.Texture.Track = 1.0

	finalTex := texture.New("iFinal", s)
	finalTex.Components = 3
	finalTex.Final = true
	finalTex.Track = 1.0
	s.Final = shaderprog.New("iFinal", s, finalTex)

	// Every module's ShaderTexture auto-registers itself with the scene in
	// the source (ShaderModule.__attrs_post_init__ appends self), which is
	// how a texture's #define aliases end up visible to _build_shader's
	// per-module loop. Register both textures explicitly here instead.
	s.AddModule(newTextureModule(s.Shader.Texture))
	s.AddModule(newTextureModule(s.Final.Texture))

	// The built-in Frametimer/Keyboard/Camera modules are instantiated
	// alongside the shader programs, matching ShaderScene.initialize.
	s.Frametimer = frametimer.New(s)
	s.Keyboard = keyboard.New()
	s.Camera = camera.New(s, s.Keyboard)
	s.Audio = audio.New("iAudio", audioSampleRate, false)
	s.AddModule(s.Frametimer)
	s.AddModule(s.Keyboard)
	s.AddModule(s.Camera)
	s.AddModule(s.Audio)

	return s
}

// audioSampleRate is the microphone capture rate the audio module opens
// its PortAudio stream at, matching ShaderAudio's default samplerate.
const audioSampleRate = 44100

// EnableAudio turns on microphone capture for the scene's built-in audio
// module. Must be called before Run (Setup opens the stream once); has no
// effect afterward. Disabled by default so headless/export runs never
// touch an audio device unless asked to.
func (s *Scene) EnableAudio() { s.Audio.SetEnabled(true) }

// SetSkipGPU toggles SKIP_GPU-style benchmarking on both shader programs:
// compile and uniform upload still happen, only the draw call is skipped,
// matching shader.py's Shader.SKIP_GPU early return in render_to_fbo.
func (s *Scene) SetSkipGPU(skip bool) {
	s.Shader.SkipGPU = skip
	s.Final.SkipGPU = skip
}

// AddModule registers a content module, in addition order (matching
// ShaderScene.modules append-only list).
func (s *Scene) AddModule(m Module) { s.modules = append(s.modules, m) }

// Modules satisfies shaderprog.Scene, exposing the registered modules as
// GLSL contributors.
func (s *Scene) Modules() []shaderprog.ModuleContent {
	out := make([]shaderprog.ModuleContent, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, m)
	}
	return out
}

// Relay broadcasts a message to every module and to both shader programs,
// matching ShaderModule.relay's synchronous single-threaded dispatch.
func (s *Scene) Relay(msg message.Message) {
	for _, m := range s.modules {
		m.Handle(msg)
	}
	s.Shader.Handle(msg)
	s.Final.Handle(msg)
	s.Handle(msg)
}

// --- Temporal ---------------------------------------------------------

// Tau is time normalized to [0,1) of Runtime.
func (s *Scene) Tau() float64 {
	if s.Runtime == 0 {
		return 0
	}
	t := math.Mod(s.Time/s.Runtime, 1.0)
	if t < 0 {
		t += 1.0
	}
	return t
}

// Cycle is Tau scaled to [0, 2pi).
func (s *Scene) Cycle() float64 { return s.Tau() * 2 * math.Pi }

// Frame is the current frame index, round(time*fps).
func (s *Scene) Frame() int { return int(math.Round(s.Time * s.FPS)) }

// TotalFrames is the exported frame count for the scene's runtime.
func (s *Scene) TotalFrames() int {
	n := int(math.Round(s.Runtime * s.FPS))
	if n < 1 {
		return 1
	}
	return n
}

// FrameDelta returns the most recent real (unscaled) frame delta time, for
// modules like frametimer that must not be affected by Speed.
func (s *Scene) FrameDelta() float64 { return s.RDT }

// FrameRateTarget returns the scene's configured target framerate.
func (s *Scene) FrameRateTarget() float64 { return s.FPS }

// --- Resolution ---------------------------------------------------------

// Width is the current (unscaled-by-SSAA) output width.
func (s *Scene) Width() int { return s.width }

// Height is the current (unscaled-by-SSAA) output height.
func (s *Scene) Height() int { return s.height }

// Resolution returns (Width, Height), satisfying texture.Sizer.
func (s *Scene) Resolution() (int, int) { return s.width, s.height }

// RenderResolution is Resolution scaled by SSAA, rounded to even integers
// so the GPU and encoder never see an odd dimension: the true internal
// render target size before downsampling. Pinned to Resolution directly
// (skipping the SSAA scale) whenever Raw is set or SSAA<1, since
// rendering under output resolution and upsampling back gains nothing.
func (s *Scene) RenderResolution() (int, int) {
	if s.Raw || s.ssaa < 1 {
		return s.Resolution()
	}
	return roundToMultiple(float64(s.width)*s.ssaa, 2), roundToMultiple(float64(s.height)*s.ssaa, 2)
}

// Subsample exposes the SSAA downsample kernel size, satisfying
// shaderprog.Scene.
func (s *Scene) Subsample() float64 { return float64(s.subsampleSize) }

// SetSubsample sets the SSAA downsample kernel size (clamped to 1-4).
func (s *Scene) SetSubsample(n int) {
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	s.subsampleSize = n
}

// AspectRatio is either the forced override or width/height.
func (s *Scene) AspectRatio() float64 {
	if s.aspectRatio != nil {
		return *s.aspectRatio
	}
	if s.height == 0 {
		return 0
	}
	return float64(s.width) / float64(s.height)
}

// SetAspectRatio forces (or clears, with nil) the aspect ratio.
func (s *Scene) SetAspectRatio(ar *float64) { s.aspectRatio = ar }

// SetSSAA changes the SSAA factor and triggers texture recreation across
// every tracked module texture.
func (s *Scene) SetSSAA(value float64) {
	if value < 0.01 {
		value = 0.01
	}
	s.ssaa = value
	s.Relay(message.ShaderRecreateTextures{})
}

// SSAA returns the current SSAA factor.
func (s *Scene) SSAA() float64 { return s.ssaa }

// ResizeOptions mirrors ShaderScene.resize's keyword parameters.
type ResizeOptions struct {
	Width, Height int // 0 means "keep"
	Ratio         *float64
	MaxWidth      int
	MaxHeight     int
	Scale         float64 // 0 means "keep"
	SSAA          float64 // 0 means "keep"
}

// Resize fits a new resolution via FitResolution, only actually resizing
// (and relaying a RecreateTextures broadcast) when the target differs from
// the current resolution. Mirrors ShaderScene.resize.
func (s *Scene) Resize(opts ResizeOptions) (int, int) {
	if opts.Ratio != nil {
		s.aspectRatio = opts.Ratio
	}
	if opts.Scale != 0 {
		s.scale = opts.Scale
	}
	if opts.SSAA != 0 {
		s.ssaa = opts.SSAA
	}

	w, h := FitResolution(s.width, s.height, opts.Width, opts.Height, s.aspectRatio, opts.MaxWidth, opts.MaxHeight, s.scale, 2)

	if w != s.width || h != s.height {
		s.width, s.height = w, h
		if s.Window != nil {
			s.Window.SetSize(w, h)
		}
		s.Relay(message.ShaderRecreateTextures{})
		log.Info().Int("width", w).Int("height", h).Msg("resized scene")
	}

	return s.width, s.height
}

// --- Main loop ------------------------------------------------------------

// Next integrates time, updates every non-shader module then the main
// shader followed by the final one, and swaps buffers when not exporting.
// Mirrors ShaderScene.next.
func (s *Scene) Next(dt time.Duration) {
	if !s.Exporting && s.Window != nil {
		s.Window.SwapBuffers()
	}

	for _, m := range s.modules {
		m.Update()
	}
	s.Shader.Update()
	s.Final.Update()

	s.DT = dt.Seconds() * s.Speed
	s.RDT = dt.Seconds()
	s.Time += s.DT
}

// Setup runs every module's Setup once and compiles the initial shaders,
// matching ShaderScene's "setup before the first render" timing. Exposed
// separately from Run so a caller driving its own export loop (via Next +
// Scheduler.Next) can still run it without entering Run's blocking loop.
func (s *Scene) Setup() {
	s.Headless = s.Freewheel
	s.realtime = !s.Headless

	for _, m := range s.modules {
		m.Setup()
	}
	s.Relay(message.ShaderCompile{})
}

// Run builds the scheduler's vsync task and drives the event loop until
// Quit is set (realtime) or the caller stops pumping (export drives its own
// loop by calling Scheduler.Next directly). Mirrors ShaderScene.main's
// `while task := scheduler.next(): ...` tail, minus the export bookkeeping
// which lives in the export package.
func (s *Scene) Run(frameskip bool) {
	s.Setup()
	if s.VSync != nil {
		s.Scheduler.Delete(s.VSync)
	}

	var opts []scheduler.Option
	if s.Freewheel {
		opts = append(opts, scheduler.WithFreewheel())
	}
	opts = append(opts, scheduler.WithFrameskip(frameskip), scheduler.WithPrecise())

	s.VSync = s.Scheduler.Add(scheduler.NewDT(s.Next, s.FPS, opts...))

	for {
		t := s.Scheduler.Next(true)
		if t == nil || t != s.VSync {
			continue
		}
		if s.Quit {
			return
		}
		if s.realtime {
			continue
		}
		return // freewheel/export: caller drives per-tick export bookkeeping
	}
}

// Realtime reports whether the scene runs with a window and user
// interaction (false while exporting/benchmarking), satisfying
// texture.Sizer.
func (s *Scene) Realtime() bool { return s.realtime }

// SetRealtime overrides realtime mode directly; Run derives it from
// Freewheel/Headless when driven through the normal export/main path.
func (s *Scene) SetRealtime(v bool) { s.realtime = v }

// --- Events -----------------------------------------------------------

// Handle implements the scene's own keyboard-shortcut behavior: O resets,
// R recompiles, Tab toggles the UI, F1 toggles mouse exclusivity, F2
// screenshots, F11 toggles fullscreen. Mirrors ShaderScene.handle.
func (s *Scene) Handle(msg message.Message) {
	switch m := msg.(type) {
	case message.WindowClose:
		log.Info().Msg("window close received")
		s.Quit = true

	case message.KeyboardPress:
		if m.Action != 1 {
			break
		}
		switch m.Key {
		case KeyO:
			log.Info().Msg("(O) resetting the scene")
			for _, mod := range s.modules {
				mod.Setup()
			}
			s.Time = 0
		case KeyR:
			log.Info().Msg("(R) reloading shaders")
			s.Relay(message.ShaderCompile{})
		case KeyTab:
			s.RenderUI = !s.RenderUI
		case KeyF1:
			s.Exclusive = !s.Exclusive
			s.Camera.SetExclusive(s.Exclusive)
		case KeyF2:
			if err := s.SaveScreenshot(); err != nil {
				log.Error().Err(err).Msg("screenshot failed")
			}
		case KeyF11:
			s.Fullscreen = !s.Fullscreen
		}

	case message.MouseDrag:
		s.MouseGLUV = [2]float64{m.U, m.V}
	case message.MousePosition:
		s.MouseGLUV = [2]float64{m.U, m.V}
	case message.MouseEnter:
		s.MouseInside = m.State
	case message.MousePress:
		s.setMouseButton(m.Button, true)
	case message.MouseRelease:
		s.setMouseButton(m.Button, false)
	}
}

// setMouseButton tracks which of the first three mouse buttons (left,
// right, middle) are currently held, feeding iMouse1/iMouse2/iMouse3.
// Buttons beyond index 2 are ignored; GLFW never reports them for a
// standard mouse.
func (s *Scene) setMouseButton(button int, down bool) {
	switch button {
	case 0:
		s.mouse1 = down
	case 1:
		s.mouse2 = down
	case 2:
		s.mouse3 = down
	}
}

// Keyboard key codes used by the scene's own shortcut handling, matching
// the subset of ShaderKeyboard.Keys the source's ShaderScene.handle reads.
// Values follow GLFW's key codes so callers can translate raw key events
// directly.
const (
	KeyO   = 79
	KeyR   = 82
	KeyTab = 258
	KeyF1  = 290
	KeyF2  = 291
	KeyF11 = 300
)

// --- Pipeline -----------------------------------------------------------

// FullPipeline yields the scene-level uniforms every shader receives,
// plus every module's own Pipeline() uniforms, mirroring
// ShaderModule.full_pipeline's aggregation over scene.modules.
func (s *Scene) FullPipeline() []variable.Variable {
	w, h := s.Resolution()
	out := []variable.Variable{
		variable.Uniform(variable.TypeFloat, "iTime", s.Time),
		variable.Uniform(variable.TypeFloat, "iTau", s.Tau()),
		variable.Uniform(variable.TypeFloat, "iDuration", s.Runtime),
		variable.Uniform(variable.TypeFloat, "iDeltatime", s.DT),
		variable.Uniform(variable.TypeVec2, "iResolution", [2]float64{float64(w), float64(h)}),
		variable.Uniform(variable.TypeFloat, "iWantAspect", s.AspectRatio()),
		variable.Uniform(variable.TypeFloat, "iQuality", s.Quality/100),
		variable.Uniform(variable.TypeFloat, "iSSAA", s.ssaa),
		variable.Uniform(variable.TypeFloat, "iFramerate", s.FPS),
		variable.Uniform(variable.TypeInt, "iFrame", s.Frame()),
		variable.Uniform(variable.TypeBool, "iRealtime", s.realtime),
		variable.Uniform(variable.TypeVec2, "iMouse", s.MouseGLUV),
		variable.Uniform(variable.TypeBool, "iMouseInside", s.MouseInside),
		variable.Uniform(variable.TypeBool, "iMouse1", s.mouse1),
		variable.Uniform(variable.TypeBool, "iMouse2", s.mouse2),
		variable.Uniform(variable.TypeBool, "iMouse3", s.mouse3),
	}
	for _, m := range s.modules {
		out = append(out, m.Pipeline()...)
	}
	return out
}

// --- Screenshot -----------------------------------------------------------

// ReadPixels reads the final FBO's current contents, top-to-bottom flipped
// to match image.RGBA row order. Mirrors ShaderScene.screenshot.
func (s *Scene) ReadPixels() (*image.RGBA, error) {
	w, h := s.Resolution()
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.Final.Texture.FBO())
	buf := make([]byte, w*h*4)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(buf))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for row := 0; row < h; row++ {
		src := buf[row*stride : (row+1)*stride]
		dstRow := h - 1 - row
		copy(img.Pix[dstRow*stride:(dstRow+1)*stride], src)
	}
	return img, nil
}

// SaveScreenshot reads back the current frame on the scene thread, then
// encodes and writes the PNG on its own goroutine so a slow disk never
// stalls rendering. The read itself must happen here, synchronously, since
// only the scene thread owns the GL context.
func (s *Scene) SaveScreenshot() error {
	img, err := s.ReadPixels()
	if err != nil {
		return err
	}
	dir := s.ScreenshotDir
	if dir == "" {
		dir = "screenshots"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("(%s) %s.png", time.Now().Format("2006-01-02_15-04-05"), s.Name)
	path := filepath.Join(dir, name)

	go func() {
		f, err := os.Create(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("screenshot create failed")
			return
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			log.Error().Err(err).Str("path", path).Msg("screenshot encode failed")
			return
		}
		log.Info().Str("path", path).Msg("screenshot saved")
	}()
	return nil
}

// --- Hot reload -------------------------------------------------------

// WatchShader starts an fsnotify watcher on path's parent directory and
// begins hot-reloading its contents into the scene's Shader whenever it
// changes on disk, mirroring shader.py's _watchshader/WATCHDOG pattern.
// The watcher goroutine never touches GL: it only posts the changed path
// onto a channel, drained by drainReload on the scene thread via a
// scheduled poll task.
func (s *Scene) WatchShader(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scene: creating shader watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		if errors.Is(err, syscall.ENAMETOOLONG) {
			log.Warn().Str("dir", dir).Msg("shader watch path too long, hot-reload disabled")
			return nil
		}
		return fmt.Errorf("scene: watching %s: %w", dir, err)
	}

	s.reload = make(chan string, 1)
	name := filepath.Base(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case s.reload <- path:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	s.shaderWatcher = watcher
	s.Scheduler.Add(scheduler.New(s.drainReload, 10))
	return nil
}

// drainReload runs on the scene thread: if a hot-reload path is pending it
// re-reads the file and recompiles, matching ShaderDumper's recompile path.
func (s *Scene) drainReload() {
	if s.reload == nil {
		return
	}
	select {
	case path := <-s.reload:
		source, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("hot-reload read failed")
			return
		}
		s.Shader.SetFragmentContent(string(source))
		s.Relay(message.ShaderCompile{})
		log.Info().Str("path", path).Msg("shader hot-reloaded")
	default:
	}
}

// StopWatching closes the shader hot-reload watcher, if one was started.
func (s *Scene) StopWatching() {
	if s.shaderWatcher != nil {
		s.shaderWatcher.Close()
	}
}

// textureModule adapts a texture.Matrix to the Module interface so its
// #define aliases and RecreateTextures handling participate in the scene's
// module bus and shader metaprogramming loop.
type textureModule struct {
	base.Module
	tex *texture.Matrix
}

func newTextureModule(tex *texture.Matrix) *textureModule {
	t := &textureModule{tex: tex}
	t.Init()
	return t
}

func (t *textureModule) Name() string          { return t.tex.Name }
func (t *textureModule) Setup()                {}
func (t *textureModule) Update()               {}
func (t *textureModule) Handle(m message.Message) { t.tex.Handle(m) }
func (t *textureModule) Defines() []string     { return t.tex.Defines() }
func (t *textureModule) Includes() []string    { return nil }

// Pipeline is empty: the texture's own sampler/size uniforms are wired
// directly into shaderprog.Program.FullPipeline via Program.Texture, not
// through the module bus, to keep a program's own texture out of every
// other program's pipeline.
func (t *textureModule) Pipeline() []variable.Variable { return nil }

func (t *textureModule) Destroy()              { t.tex.Destroy() }
