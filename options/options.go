// Package options defines the CLI-parsed configuration surface, generalizing
// the teacher's ad-hoc flag.* calls in cmd/main.go into a richer
// pflag-backed options.Options, grounded on ShaderFlow's cyclopts-based CLI
// (scene geometry, quality, export, encoder sub-commands).
package options

import "github.com/spf13/pflag"

// Options is the fully-parsed configuration a scene/export run is built
// from. Every field has a matching pflag on FlagSet.
type Options struct {
	Shader string
	Width  int
	Height int

	FPS      float64
	Duration float64
	SSAA     float64
	Quality  float64
	Realtime bool

	Audio   bool
	Texture string

	// Geometry/window, threaded into scene.Scene.Resize/Fullscreen.
	Scale      float64
	Ratio      float64 // 0 means "not forced"
	Fullscreen bool

	// Scheduler/runtime behavior.
	Frameskip bool
	Rigorous  bool // overrides Frameskip to false when set
	Subsample int
	Speed     float64
	Freewheel bool

	// Export
	Export      bool
	OutputPath  string
	VideoCodec  string
	AudioCodec  string
	Bitrate     string
	PixelFormat string
	FFmpegPath  string
	Raw         bool
	Turbo       bool
	Buffers     int
}

// Default mirrors the teacher's cmd/main.go flag.* defaults, generalized.
func Default() Options {
	return Options{
		Width:       1920,
		Height:      1080,
		FPS:         60,
		Duration:    10,
		SSAA:        1.0,
		Quality:     50,
		Realtime:    true,
		Scale:       1.0,
		Frameskip:   true,
		Subsample:   1,
		Speed:       1.0,
		VideoCodec:  "libx264",
		AudioCodec:  "aac",
		Bitrate:     "25M",
		PixelFormat: "yuv420p",
		Buffers:     2,
	}
}

// NewFlagSet builds a pflag.FlagSet bound to opts, matching the "chained
// sub-commands to configure the encoder's video and audio codecs"
// requirement: --vcodec/--acodec are parsed as ordinary flags rather than
// true subcommands, since pflag has no subcommand concept of its own.
func NewFlagSet(name string, opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)

	fs.StringVar(&opts.Shader, "shader", opts.Shader, "path to the GLSL shader file to run")
	fs.IntVar(&opts.Width, "width", opts.Width, "output width in pixels")
	fs.IntVar(&opts.Height, "height", opts.Height, "output height in pixels")
	fs.Float64Var(&opts.FPS, "fps", opts.FPS, "target frame rate")
	fs.Float64Var(&opts.Duration, "duration", opts.Duration, "runtime in seconds")
	fs.Float64Var(&opts.SSAA, "ssaa", opts.SSAA, "supersampling scale factor")
	fs.Float64Var(&opts.Quality, "quality", opts.Quality, "quality level, 0-100")
	fs.BoolVar(&opts.Realtime, "realtime", opts.Realtime, "has no effect: realtime pacing follows --export and --freewheel")
	fs.BoolVar(&opts.Audio, "audio", opts.Audio, "enable microphone capture for the audio module")
	fs.StringVar(&opts.Texture, "texture", opts.Texture, "path to an image file exposed to the shader as iChannel0")

	fs.Float64Var(&opts.Scale, "scale", opts.Scale, "uniform resolution scale factor")
	fs.Float64Var(&opts.Ratio, "ratio", opts.Ratio, "force an aspect ratio (width/height), 0 to leave free")
	fs.BoolVar(&opts.Fullscreen, "fullscreen", opts.Fullscreen, "start (and toggle, via F11) in fullscreen")

	fs.BoolVar(&opts.Frameskip, "frameskip", opts.Frameskip, "allow the scheduler to drop frames to keep pace with the clock")
	fs.BoolVar(&opts.Rigorous, "rigorous", opts.Rigorous, "never skip a frame, even if rendering falls behind (overrides --frameskip)")
	fs.IntVar(&opts.Subsample, "subsample", opts.Subsample, "SSAA downsample kernel size, 1-4")
	fs.Float64Var(&opts.Speed, "speed", opts.Speed, "scene clock speed multiplier")
	fs.BoolVar(&opts.Freewheel, "freewheel", opts.Freewheel, "decouple the scene clock from the scheduler's wall-clock pacing")

	fs.BoolVar(&opts.Export, "export", opts.Export, "export to a video file instead of opening a window")
	fs.StringVar(&opts.OutputPath, "output", opts.OutputPath, "export output file path")
	fs.StringVar(&opts.VideoCodec, "vcodec", opts.VideoCodec, "ffmpeg video codec")
	fs.StringVar(&opts.AudioCodec, "acodec", opts.AudioCodec, "ffmpeg audio codec (not passed to ffmpeg; exports carry no audio stream)")
	fs.StringVar(&opts.Bitrate, "bitrate", opts.Bitrate, "ffmpeg target video bitrate")
	fs.StringVar(&opts.PixelFormat, "pix-fmt", opts.PixelFormat, "ffmpeg output pixel format")
	fs.StringVar(&opts.FFmpegPath, "ffmpeg-path", opts.FFmpegPath, "path to the ffmpeg binary, if not on PATH")
	fs.BoolVar(&opts.Raw, "raw", opts.Raw, "render directly at output resolution, skipping the SSAA pass")
	fs.BoolVar(&opts.Turbo, "turbo", opts.Turbo, "pipe frames to ffmpeg over a raw OS pipe instead of an in-process one")
	fs.IntVar(&opts.Buffers, "buffers", opts.Buffers, "number of PBOs in the async readback ring, minimum 2")

	return fs
}
