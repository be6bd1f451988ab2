package scene

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshaderflow/message"
	"github.com/richinsley/goshaderflow/variable"
)

type fakeWindow struct {
	w, h int
}

func (f *fakeWindow) SwapBuffers()                 {}
func (f *fakeWindow) FramebufferSize() (int, int)  { return f.w, f.h }
func (f *fakeWindow) SetSize(w, h int)             { f.w, f.h = w, h }
func (f *fakeWindow) ShouldClose() bool            { return false }
func (f *fakeWindow) SetTitle(title string)        {}

func TestTauWrapsToUnitInterval(t *testing.T) {
	s := New("test", &fakeWindow{})
	s.Runtime = 10
	s.Time = 25
	assert.InDelta(t, 0.5, s.Tau(), 1e-9)
}

func TestFrameRoundsTimeByFPS(t *testing.T) {
	s := New("test", &fakeWindow{})
	s.FPS = 60
	s.Time = 1.0
	assert.Equal(t, 60, s.Frame())
}

func TestTotalFramesAtLeastOne(t *testing.T) {
	s := New("test", &fakeWindow{})
	s.Runtime = 0
	s.FPS = 60
	assert.Equal(t, 1, s.TotalFrames())
}

func TestAspectRatioDefaultsToWidthOverHeight(t *testing.T) {
	s := New("test", &fakeWindow{})
	w, h := s.Resolution()
	assert.InDelta(t, float64(w)/float64(h), s.AspectRatio(), 1e-9)
}

func TestAspectRatioOverride(t *testing.T) {
	s := New("test", &fakeWindow{})
	forced := 2.0
	s.SetAspectRatio(&forced)
	assert.Equal(t, 2.0, s.AspectRatio())
}

type fakeModule struct {
	setupCalls int
}

func (f *fakeModule) Name() string                       { return "fake" }
func (f *fakeModule) UUID() int64                        { return 1 }
func (f *fakeModule) Setup()                             { f.setupCalls++ }
func (f *fakeModule) Update()                            {}
func (f *fakeModule) Handle(message.Message)             {}
func (f *fakeModule) Defines() []string                  { return nil }
func (f *fakeModule) Includes() []string                 { return nil }
func (f *fakeModule) Pipeline() []variable.Variable       { return nil }
func (f *fakeModule) Destroy()                           {}

func TestHandleKeyOResetsTimeAndSetupModules(t *testing.T) {
	s := New("test", &fakeWindow{})
	fm := &fakeModule{}
	s.AddModule(fm)
	s.Time = 42

	s.Handle(message.KeyboardPress{Key: KeyO, Action: 1})

	assert.Equal(t, float64(0), s.Time)
	assert.Equal(t, 1, fm.setupCalls)
}

func TestHandleWindowCloseSetsQuit(t *testing.T) {
	s := New("test", &fakeWindow{})
	s.Handle(message.WindowClose{})
	assert.True(t, s.Quit)
}

func TestFullPipelineCarriesCoreUniforms(t *testing.T) {
	s := New("test", &fakeWindow{})
	s.Time = 3.5
	vars := s.FullPipeline()

	names := map[string]bool{}
	for _, v := range vars {
		names[v.Name] = true
	}
	for _, want := range []string{"iTime", "iResolution", "iFrame", "iMouse", "iRealtime"} {
		require.True(t, names[want], "missing uniform %s", want)
	}
}

func TestSubsampleClampsToRange(t *testing.T) {
	s := New("test", &fakeWindow{})
	s.SetSubsample(0)
	assert.Equal(t, float64(1), s.Subsample())
	s.SetSubsample(10)
	assert.Equal(t, float64(4), s.Subsample())
}

func TestWatchShaderQueuesPathOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0o644))

	s := New("test", &fakeWindow{})
	require.NoError(t, s.WatchShader(path))
	defer s.StopWatching()

	require.NoError(t, os.WriteFile(path, []byte("void main() { /* changed */ }"), 0o644))

	select {
	case got := <-s.reload:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}
}

func TestWatchShaderIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0o644))

	s := New("test", &fakeWindow{})
	require.NoError(t, s.WatchShader(path))
	defer s.StopWatching()

	other := filepath.Join(dir, "unrelated.txt")
	require.NoError(t, os.WriteFile(other, []byte("noise"), 0o644))

	select {
	case got := <-s.reload:
		t.Fatalf("unexpected reload notification for unrelated file: %s", got)
	case <-time.After(200 * time.Millisecond):
	}
}
