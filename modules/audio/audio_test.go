package audio

import (
	"math"
	"testing"
)

func TestRingBufferReadLatestIsOldestFirst(t *testing.T) {
	b := newRingBuffer(4)
	b.Write([]float32{1, 2, 3, 4, 5})
	got := b.ReadLatest(4)
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadLatest = %v, want %v", got, want)
		}
	}
}

func TestRingBufferReadLatestPadsWithSilenceBeforeFirstWrite(t *testing.T) {
	b := newRingBuffer(8)
	b.Write([]float32{1, 2})
	got := b.ReadLatest(6)
	for i := 0; i < 4; i++ {
		if got[i] != 0 {
			t.Fatalf("expected silence padding at %d, got %v", i, got[i])
		}
	}
	if got[4] != 1 || got[5] != 2 {
		t.Fatalf("ReadLatest tail = %v, want [1 2]", got[4:])
	}
}

func TestRingBufferWrittenTracksTotal(t *testing.T) {
	b := newRingBuffer(4)
	b.Write([]float32{1, 2, 3})
	b.Write([]float32{4, 5})
	if b.Written() != 5 {
		t.Fatalf("Written() = %d, want 5", b.Written())
	}
}

func TestRMSOfSilenceIsZero(t *testing.T) {
	if rms(nil) != 0 {
		t.Fatalf("rms(nil) != 0")
	}
	if rms([]float32{0, 0, 0}) != 0 {
		t.Fatalf("rms(zeros) != 0")
	}
}

func TestRMSOfConstantSignal(t *testing.T) {
	got := rms([]float32{0.5, -0.5, 0.5, -0.5})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("rms = %v, want 0.5", got)
	}
}

func TestClamp01Bounds(t *testing.T) {
	if clamp01(-1) != 0 {
		t.Fatalf("clamp01(-1) != 0")
	}
	if clamp01(2) != 1 {
		t.Fatalf("clamp01(2) != 1")
	}
	if clamp01(0.3) != 0.3 {
		t.Fatalf("clamp01(0.3) != 0.3")
	}
}

func TestCabsMatchesMagnitude(t *testing.T) {
	got := cabs(complex(3, 4))
	if math.Abs(got-5) > 1e-9 {
		t.Fatalf("cabs(3+4i) = %v, want 5", got)
	}
}

func TestFixedSizerReportsConstantResolution(t *testing.T) {
	s := fixedSizer{w: TextureWidth, h: 2}
	w, h := s.Resolution()
	if w != TextureWidth || h != 2 {
		t.Fatalf("Resolution() = %d,%d want %d,2", w, h, TextureWidth)
	}
	w, h = s.RenderResolution()
	if w != TextureWidth || h != 2 {
		t.Fatalf("RenderResolution() = %d,%d want %d,2", w, h, TextureWidth)
	}
	if !s.Realtime() {
		t.Fatalf("Realtime() = false, want true")
	}
}

func TestNewDisabledModuleHasNameAndNoMic(t *testing.T) {
	m := New("iAudio", 44100, false)
	if m.Name() != "iAudio" {
		t.Fatalf("Name() = %q, want iAudio", m.Name())
	}
	if m.mic != nil {
		t.Fatalf("expected no microphone before Setup")
	}
}

func TestPipelineCarriesVolumeUniformUnderModuleName(t *testing.T) {
	m := New("iAudio", 44100, false)
	m.volume = 0.42
	vars := m.Pipeline()
	var found bool
	for _, v := range vars {
		if v.Name == "iAudioVolume" {
			found = true
			if v.Value.(float64) != 0.42 {
				t.Fatalf("iAudioVolume = %v, want 0.42", v.Value)
			}
		}
	}
	if !found {
		t.Fatalf("Pipeline() missing iAudioVolume uniform, got %+v", vars)
	}
}

func TestDisabledModuleBufferIsSilentBeforeAnyWrite(t *testing.T) {
	m := New("iAudio", 44100, false)
	m.Texture.Track = 0
	// A disabled module never opens a mic, so the window Update would read
	// from the ring buffer is a full window of zeros.
	window := m.buffer.ReadLatest(fftSize)
	if len(window) != fftSize {
		t.Fatalf("ReadLatest length = %d, want %d", len(window), fftSize)
	}
	for _, s := range window {
		if s != 0 {
			t.Fatalf("expected silence before any Write, got %v", s)
		}
	}
}
