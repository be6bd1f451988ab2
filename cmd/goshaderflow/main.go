// Command goshaderflow runs a GLSL shader through the scene engine, either
// interactively in a window or exported to a video file. Grounded on the
// teacher's cmd/main.go (flag parsing, runtime.LockOSThread, renderer setup/
// run split) generalized from a Shadertoy-API fetch into a local shader
// file and from a single record/view switch into the full options.Options
// surface.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/richinsley/goshaderflow/export"
	"github.com/richinsley/goshaderflow/glfwcontext"
	"github.com/richinsley/goshaderflow/headless"
	"github.com/richinsley/goshaderflow/internal/logging"
	"github.com/richinsley/goshaderflow/modules/image"
	"github.com/richinsley/goshaderflow/options"
	"github.com/richinsley/goshaderflow/scene"
)

var log = logging.For("main")

func init() {
	runtime.LockOSThread()
}

func main() {
	opts := options.Default()
	fs := options.NewFlagSet("goshaderflow", &opts)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("parsing flags")
	}

	if opts.Shader == "" {
		fmt.Fprintln(os.Stderr, "usage: goshaderflow --shader path/to/shader.frag [flags]")
		fs.PrintDefaults()
		os.Exit(2)
	}

	source, err := os.ReadFile(opts.Shader)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Shader).Msg("reading shader source")
	}

	s := scene.New(opts.Shader, nil)
	s.FPS = opts.FPS
	s.Runtime = opts.Duration
	s.SetSSAA(opts.SSAA)
	s.Quality = opts.Quality
	s.Shader.SetFragmentContent(string(source))
	s.Fullscreen = opts.Fullscreen
	s.Raw = opts.Raw
	s.Speed = opts.Speed
	s.SetSubsample(opts.Subsample)
	if opts.Audio {
		s.EnableAudio()
	}
	if opts.Texture != "" {
		s.AddModule(image.New("iChannel0", opts.Texture))
	}
	if os.Getenv("SKIP_GPU") == "1" {
		s.SetSkipGPU(true)
	}

	resizeOpts := scene.ResizeOptions{Width: opts.Width, Height: opts.Height, Scale: opts.Scale}
	if opts.Ratio != 0 {
		resizeOpts.Ratio = &opts.Ratio
	}
	s.Resize(resizeOpts)

	if opts.Export {
		runExport(s, opts)
		return
	}
	runInteractive(s, opts)
}

func runInteractive(s *scene.Scene, opts options.Options) {
	if backend := os.Getenv("WINDOW_BACKEND"); backend != "" && backend != "glfw" {
		log.Warn().Str("requested", backend).Msg("only the glfw window backend is implemented, ignoring WINDOW_BACKEND")
	}

	win, err := glfwcontext.New(s, "goshaderflow")
	if err != nil {
		log.Fatal().Err(err).Msg("creating window")
	}
	defer win.Shutdown()
	s.Window = win

	if err := s.WatchShader(opts.Shader); err != nil {
		log.Warn().Err(err).Msg("shader hot-reload disabled")
	}
	defer s.StopWatching()

	s.Freewheel = opts.Freewheel

	frameskip := opts.Frameskip && !opts.Rigorous
	log.Info().Str("shader", opts.Shader).Msg("running interactively")
	s.Run(frameskip)
}

func runExport(s *scene.Scene, opts options.Options) {
	s.Freewheel = true

	if runtime.GOOS == "linux" && os.Getenv("EGL") == "0" {
		log.Fatal().Msg("EGL=0 requested but no non-EGL headless backend is implemented")
	}

	win, err := headless.NewHeadless(s.Resolution())
	if err != nil {
		log.Fatal().Err(err).Msg("creating headless context")
	}
	s.Window = win
	s.Setup()

	cfg := export.DefaultConfig()
	w, h := s.Resolution()
	cfg.Width, cfg.Height = w, h
	cfg.SourceWidth, cfg.SourceHeight = w, h
	cfg.FPS = opts.FPS
	cfg.VideoCodec = opts.VideoCodec
	cfg.Bitrate = opts.Bitrate
	cfg.PixelFormat = opts.PixelFormat
	cfg.OutputPath = opts.OutputPath
	cfg.FFmpegPath = opts.FFmpegPath
	cfg.Turbo = opts.Turbo
	cfg.Buffers = opts.Buffers

	totalFrames := s.TotalFrames()
	ex := export.New(cfg, totalFrames, false)
	defer ex.Destroy()

	mods := s.Modules()
	hookable := make([]any, len(mods))
	for i, m := range mods {
		hookable[i] = m
	}
	ex.ApplyFFHooks(hookable)

	if err := ex.Popen(); err != nil {
		log.Fatal().Err(err).Msg("starting ffmpeg")
	}

	dt := time.Duration(float64(time.Second) / opts.FPS)
	log.Info().Str("output", opts.OutputPath).Int("frames", totalFrames).Msg("exporting")

	for !ex.Finished() {
		s.Next(dt)
		if err := ex.Pipe(s.Final.Texture.FBO()); err != nil {
			log.Fatal().Err(err).Msg("piping frame")
		}
	}

	if err := ex.Finish(); err != nil {
		log.Fatal().Err(err).Msg("finishing export")
	}
	ex.LogStats(s.Runtime)
}
