// Package audio exposes live microphone input to shaders as a rolling
// waveform/spectrum texture plus volume uniforms, grounded on the
// teacher's audio/*.go capture pipeline and ShaderFlow's Audio.py/
// Spectrogram.py/Waveform.py content modules.
package audio

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/richinsley/goshaderflow/export"
	"github.com/richinsley/goshaderflow/internal/logging"
	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/modules/base"
	"github.com/richinsley/goshaderflow/texture"
	"github.com/richinsley/goshaderflow/variable"
)

var log = logging.For("audio")

// TextureWidth is the number of frequency/waveform bins exported per row,
// matching the conventional Shadertoy audio-channel texture layout (row 0
// is the FFT magnitude spectrum, row 1 is the raw waveform).
const TextureWidth = 512

const fftSize = 2048

// fixedSizer satisfies texture.Sizer with a constant size, since the
// audio texture's dimensions never track the render resolution.
type fixedSizer struct{ w, h int }

func (f fixedSizer) Resolution() (int, int)       { return f.w, f.h }
func (f fixedSizer) RenderResolution() (int, int) { return f.w, f.h }
func (f fixedSizer) Realtime() bool               { return true }

// Module captures microphone input into a ring buffer, derives an RMS
// volume and an FFT magnitude spectrum each frame, and exports both as a
// 2-row texture plus scalar uniforms. Grounded on BrokenAudio's
// progressive buffer and ShaderAudio's pipeline/texture conventions.
type Module struct {
	base.Module

	name string

	mic     *microphone
	samples <-chan []float32
	buffer  *ringBuffer

	sampleRate int
	enabled    bool

	Texture *texture.Matrix

	volume   float64
	spectrum [TextureWidth]float64
	waveform [TextureWidth]float64
}

// New creates an audio module. Enabled controls whether Setup actually
// opens a microphone stream — disabled instances still satisfy the
// module contract and emit silence, useful for headless/export runs with
// no audio device.
func New(name string, sampleRate int, enabled bool) *Module {
	m := &Module{
		name:       name,
		sampleRate: sampleRate,
		enabled:    enabled,
		buffer:     newRingBuffer(sampleRate * 5),
	}
	m.Texture = texture.New(name, fixedSizer{w: TextureWidth, h: 2})
	m.Texture.Track = 0
	m.Texture.Components = 1
	m.Texture.Mipmaps = false
	m.Texture.RepeatX, m.Texture.RepeatY = false, false
	m.Texture.SetSize(TextureWidth, 2)
	m.Init()
	return m
}

func (m *Module) Name() string { return m.name }

// SetEnabled toggles microphone capture. Has no effect once Setup has
// already run; intended to be called before the scene starts.
func (m *Module) SetEnabled(enabled bool) { m.enabled = enabled }

func (m *Module) Destroy() {
	if m.mic != nil {
		if err := m.mic.Stop(); err != nil {
			log.Error().Err(err).Msg("stopping microphone")
		}
	}
	m.Texture.Destroy()
}

// Setup opens the microphone stream (if enabled) and allocates the GPU
// texture, matching ShaderModule.setup's "once GL context exists" timing.
func (m *Module) Setup() {
	m.Texture.Make()
	if !m.enabled {
		return
	}
	m.mic = newMicrophone(m.sampleRate)
	samples, err := m.mic.Start()
	if err != nil {
		log.Error().Err(err).Msg("failed to start microphone, audio module running silent")
		m.enabled = false
		return
	}
	m.samples = samples
}

func (m *Module) Handle(message.Message) {}

// Includes contributes nothing; the texture's per-box dispatch function is
// emitted by Defines.
func (m *Module) Includes() []string { return nil }

// Defines aliases the audio texture's sole box to its plain name and emits
// its dispatch function, exactly as any other content texture does.
func (m *Module) Defines() []string { return m.Texture.Defines() }

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Update drains any buffered microphone chunks, then recomputes the
// volume/spectrum/waveform rows from the most recent window of samples.
func (m *Module) Update() {
	if m.enabled {
	drain:
		for {
			select {
			case chunk, ok := <-m.samples:
				if !ok {
					m.enabled = false
					return
				}
				m.buffer.Write(chunk)
			default:
				break drain
			}
		}
	}

	window := m.buffer.ReadLatest(fftSize)
	m.volume = rms(window)

	real := make([]float64, fftSize)
	for i, s := range window {
		real[i] = float64(s)
	}
	spectrum := fft.FFTReal(real)

	bins := fftSize / 2
	for i := 0; i < TextureWidth; i++ {
		srcIdx := i * bins / TextureWidth
		mag := cabs(spectrum[srcIdx]) / float64(fftSize)
		m.spectrum[i] = clamp01(mag)

		wi := i * fftSize / TextureWidth
		m.waveform[i] = clamp01(float64(window[wi])*0.5 + 0.5)
	}

	m.writeTexture()
}

func cabs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (m *Module) writeTexture() {
	data := make([]byte, TextureWidth*2)
	for i := 0; i < TextureWidth; i++ {
		data[i] = byte(m.spectrum[i] * 255)
		data[TextureWidth+i] = byte(m.waveform[i] * 255)
	}
	m.Texture.Write(data, 0, 0)
}

// Pipeline exports the texture's sampler uniforms plus the scalar volume,
// matching ShaderFlow's audio/spectrogram pipeline conventions.
func (m *Module) Pipeline() []variable.Variable {
	out := append([]variable.Variable(nil), m.Texture.Pipeline()...)
	out = append(out,
		variable.Uniform(variable.TypeFloat, m.name+"Volume", m.volume),
	)
	return out
}

// Volume returns the most recent RMS amplitude, in [0, 1].
func (m *Module) Volume() float64 { return m.volume }

// FFHook always marks the export output as video-only (-an): the audio
// texture feeds the shader's visualization uniforms, it is never
// re-encoded into the exported file, so there's never an audio stream for
// ffmpeg to mux regardless of capture state.
func (m *Module) FFHook(cfg *export.Config) {
	if cfg.ExtraOutputArgs == nil {
		cfg.ExtraOutputArgs = map[string]any{}
	}
	cfg.ExtraOutputArgs["an"] = ""
}
