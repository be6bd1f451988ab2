package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinishedReflectsFrameCount(t *testing.T) {
	s := &State{totalFrames: 10}
	assert.False(t, s.Finished())
	s.frame = 10
	assert.True(t, s.Finished())
}

func TestFrameReportsCurrentCount(t *testing.T) {
	s := &State{frame: 3}
	assert.Equal(t, 3, s.Frame())
}

func TestApplyFFHooksInvokesMatchingModules(t *testing.T) {
	s := &State{cfg: DefaultConfig()}
	hook := &recordingHook{}
	s.ApplyFFHooks([]any{hook, "not a hook"})
	assert.True(t, hook.called)
	assert.Equal(t, "libx265", s.cfg.VideoCodec)
}

type recordingHook struct{ called bool }

func (r *recordingHook) FFHook(cfg *Config) {
	r.called = true
	cfg.VideoCodec = "libx265"
}

func TestDefaultConfigMatchesTeacherBaseline(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "libx264", cfg.VideoCodec)
	assert.Equal(t, float64(60), cfg.FPS)
}

func TestLogStatsDoesNotPanicOnZeroDuration(t *testing.T) {
	s := &State{frame: 5, took: 0}
	assert.NotPanics(t, func() { s.LogStats(10) })
}

func TestPopenRequiresOutputPath(t *testing.T) {
	s := &State{cfg: DefaultConfig()}
	err := s.Popen()
	assert.Error(t, err)
}
