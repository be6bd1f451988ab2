package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// microphone captures live input via PortAudio and delivers captured
// chunks on a channel, adapted from the teacher's audio/microphone.go
// (same callback-to-channel shape, trimmed of the player/record-mode
// concerns that belong to the export pipeline instead).
type microphone struct {
	sampleRate int
	stream     *portaudio.Stream
	samples    chan []float32
	started    bool
}

func newMicrophone(sampleRate int) *microphone {
	return &microphone{sampleRate: sampleRate}
}

func (m *microphone) callback(in []float32) {
	chunk := append([]float32(nil), in...)
	select {
	case m.samples <- chunk:
	default:
		log.Warn().Msg("audio input buffer full, dropping frame")
	}
}

// Start initializes PortAudio and opens the default input stream,
// returning a channel of captured chunks.
func (m *microphone) Start() (<-chan []float32, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}

	m.samples = make(chan []float32, 16)

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.HighLatencyParameters(host.DefaultInputDevice, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(m.sampleRate)

	stream, err := portaudio.OpenStream(params, m.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: start stream: %w", err)
	}

	m.stream = stream
	m.started = true
	return m.samples, nil
}

func (m *microphone) Stop() error {
	if !m.started {
		return nil
	}
	m.started = false
	err := m.stream.Close()
	close(m.samples)
	portaudio.Terminate()
	return err
}
