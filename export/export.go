// Package export implements the raw-pixel export pipeline: double-buffered
// async GPU readback piped to an external ffmpeg subprocess, with progress
// tracking and throughput stats.
//
// Grounded on ShaderFlow's exporting.py (ExportingHelper: open_bar/update/
// finished/ffmpeg_sizes/ffmpeg_output/popen/pipe/finish/log_stats) and the
// teacher's renderer/offscreen.go (PBO double-buffering via
// readPixelsAsync, the io.Pipe + u2takey/ffmpeg-go subprocess construction
// in RunOffscreen).
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshaderflow/internal/logging"
)

var log = logging.For("export")

// OutputType selects where encoded output goes.
type OutputType int

const (
	OutputPath OutputType = iota
	OutputPipe
)

// FFHook lets a module negotiate encoder options (codec/pixel format/extra
// args) before the ffmpeg process is spawned, matching
// ExportingHelper.ffhook's `for module in scene.modules: module.ffhook(...)`.
type FFHook interface {
	FFHook(*Config)
}

// Config carries the ffmpeg command-line parameters an export run is
// configured with, mutable by FFHook modules before Popen.
type Config struct {
	Width, Height   int
	SourceWidth     int
	SourceHeight    int
	FPS             float64
	VideoCodec      string
	Bitrate         string
	PixelFormat     string
	OutputPath      string
	FFmpegPath      string
	ExtraOutputArgs map[string]any

	// Buffers sizes the async PBO readback ring; clamped to a minimum of 2
	// (one in flight, one being mapped) by New.
	Buffers int

	// Turbo hands ffmpeg's stdin an OS pipe (os.Pipe) instead of an
	// in-process io.Pipe, skipping the extra copy through Go's pipe buffer
	// at the cost of being unavailable on platforms without real fds.
	Turbo bool
}

// DefaultConfig returns the export defaults: libx264 at 25M, yuv420p
// output, 60 fps and a two-PBO readback ring.
func DefaultConfig() Config {
	return Config{
		FPS:         60,
		VideoCodec:  "libx264",
		Bitrate:     "25M",
		PixelFormat: "yuv420p",
		Buffers:     2,
	}
}

// State drives one export run: owns the PBO double-buffer, the ffmpeg
// subprocess and its stdin pipe, and frame/timing bookkeeping. Mirrors
// ExportingHelper.
type State struct {
	cfg Config

	totalFrames int
	realtime    bool

	frame int
	start time.Time
	took  time.Duration

	fbo      uint32
	pbos     []uint32
	pboIndex int
	width    int
	height   int

	pipeWriter io.WriteCloser
	errc       chan error

	lastLog time.Time
}

// New allocates the PBO ring sized to cfg.Width/Height x cfg.Buffers
// (minimum 2: one in flight, one being mapped) and records the total frame
// count this run should produce.
func New(cfg Config, totalFrames int, realtime bool) *State {
	buffers := cfg.Buffers
	if buffers < 2 {
		buffers = 2
	}

	s := &State{
		cfg:         cfg,
		totalFrames: totalFrames,
		realtime:    realtime,
		start:       time.Now(),
		width:       cfg.Width,
		height:      cfg.Height,
		pbos:        make([]uint32, buffers),
	}

	gl.GenBuffers(int32(buffers), &s.pbos[0])
	bufferSize := s.width * s.height * 4
	for _, pbo := range s.pbos {
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, pbo)
		gl.BufferData(gl.PIXEL_PACK_BUFFER, bufferSize, nil, gl.STREAM_READ)
	}
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	return s
}

// ApplyFFHooks lets every module adjust the encoder config before Popen,
// mirroring ExportingHelper.ffhook.
func (s *State) ApplyFFHooks(modules []any) {
	for _, m := range modules {
		if h, ok := m.(FFHook); ok {
			h.FFHook(&s.cfg)
		}
	}
}

// Popen spawns the ffmpeg subprocess reading raw RGBA frames from a pipe
// and writing to cfg.OutputPath, matching ExportingHelper.popen combined
// with the teacher's RunOffscreen ffmpeg-go command construction.
func (s *State) Popen() error {
	if s.cfg.OutputPath == "" {
		return fmt.Errorf("export: output path not configured")
	}
	if dir := filepath.Dir(s.cfg.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	var pr io.Reader
	if s.cfg.Turbo {
		// A real OS pipe lets ffmpeg read frames off its own fd directly
		// instead of copying through Go's in-process io.Pipe buffer.
		osR, osW, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("export: turbo pipe: %w", err)
		}
		pr, s.pipeWriter = osR, osW
	} else {
		ior, iow := io.Pipe()
		pr, s.pipeWriter = ior, iow
	}

	srcW, srcH := s.cfg.SourceWidth, s.cfg.SourceHeight
	if srcW == 0 {
		srcW = s.width
	}
	if srcH == 0 {
		srcH = s.height
	}

	outputArgs := ffmpeg.KwArgs{
		"c:v":     s.cfg.VideoCodec,
		"b:v":     s.cfg.Bitrate,
		"pix_fmt": s.cfg.PixelFormat,
	}
	for k, v := range s.cfg.ExtraOutputArgs {
		outputArgs[k] = v
	}

	cmd := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", srcW, srcH),
		"r":       fmt.Sprintf("%v", s.cfg.FPS),
	}).Output(s.cfg.OutputPath, outputArgs).
		OverWriteOutput().WithInput(pr).ErrorToStdOut()

	if s.cfg.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(s.cfg.FFmpegPath)
	}

	s.errc = make(chan error, 1)
	go func() { s.errc <- cmd.Run() }()

	log.Info().Str("output", s.cfg.OutputPath).Str("codec", s.cfg.VideoCodec).Msg("ffmpeg process started")
	return nil
}

// Destroy releases the PBO ring.
func (s *State) Destroy() {
	gl.DeleteBuffers(int32(len(s.pbos)), &s.pbos[0])
}

// readPixelsAsync initiates a readback of the current frame into one PBO
// while returning the bytes mapped from the next PBO in the ring, which
// holds the frame read len(pbos)-1 calls earlier. The first len(pbos)-1
// calls therefore return stale/empty data, which the caller discards.
func (s *State) readPixelsAsync(fbo uint32) ([]byte, error) {
	current := s.pboIndex
	next := (s.pboIndex + 1) % len(s.pbos)
	size := int32(s.width * s.height * 4)

	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, s.pbos[current])
	gl.ReadPixels(0, 0, int32(s.width), int32(s.height), gl.RGBA, gl.UNSIGNED_BYTE, nil)

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, s.pbos[next])
	ptr := gl.MapBufferRange(gl.PIXEL_PACK_BUFFER, 0, int(size), gl.MAP_READ_BIT)
	if ptr == nil {
		return nil, fmt.Errorf("export: failed to map PBO")
	}

	var data []byte
	header := (*reflect.SliceHeader)(unsafe.Pointer(&data))
	header.Data = uintptr(ptr)
	header.Len = int(size)
	header.Cap = int(size)
	out := append([]byte(nil), data...)
	gl.UnmapBuffer(gl.PIXEL_PACK_BUFFER)

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	s.pboIndex = next
	return out, nil
}

// Pipe reads the current frame's framebuffer contents asynchronously and
// writes the bytes of the frame read len(pbos)-1 calls earlier to ffmpeg's
// stdin, advancing the frame counter and progress. Mirrors
// ExportingHelper.pipe + update.
func (s *State) Pipe(fbo uint32) error {
	pixels, err := s.readPixelsAsync(fbo)
	if err != nil {
		return err
	}

	if s.frame >= len(s.pbos)-1 && s.pipeWriter != nil {
		if _, err := s.pipeWriter.Write(pixels); err != nil {
			return fmt.Errorf("export: failed writing frame %d: %w", s.frame, err)
		}
	}

	if !s.realtime && time.Since(s.lastLog) > time.Second {
		log.Info().Int("frame", s.frame).Int("total", s.totalFrames).Msg("exporting")
		s.lastLog = time.Now()
	}
	s.frame++
	return nil
}

// Finished reports whether the configured frame count has been produced.
func (s *State) Finished() bool { return s.frame >= s.totalFrames }

// Frame returns the number of frames piped so far.
func (s *State) Frame() int { return s.frame }

// Finish closes ffmpeg's stdin, waits for the process to drain, and
// records elapsed time. Mirrors ExportingHelper.finish.
func (s *State) Finish() error {
	if s.pipeWriter != nil {
		s.pipeWriter.Close()
	}
	var runErr error
	if s.errc != nil {
		runErr = <-s.errc
	}
	s.took = time.Since(s.start)
	return runErr
}

// LogStats reports throughput, matching ExportingHelper.log_stats.
func (s *State) LogStats(runtime float64) {
	fps := 0.0
	speed := 0.0
	if s.took > 0 {
		fps = float64(s.frame) / s.took.Seconds()
		speed = runtime / s.took.Seconds()
	}
	log.Info().
		Dur("took", s.took).
		Float64("fps", fps).
		Float64("realtime_multiple", speed).
		Int("frames", s.frame).
		Msg("export finished")
}
