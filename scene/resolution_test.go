package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ar(v float64) *float64 { return &v }

func TestFitResolutionKeepsNothing(t *testing.T) {
	w, h := FitResolution(1920, 1080, 0, 0, nil, 0, 0, 1, 2)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
}

func TestFitResolutionOverridesOneComponent(t *testing.T) {
	w, h := FitResolution(1920, 1080, 1280, 0, nil, 0, 0, 1, 2)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 1080, h)

	w, h = FitResolution(1920, 1080, 0, 720, nil, 0, 0, 1, 2)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 720, h)
}

func TestFitResolutionAspectRatioFromWidth(t *testing.T) {
	w, h := FitResolution(1920, 1080, 1280, 0, ar(16.0/9.0), 0, 0, 1, 2)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestFitResolutionAspectRatioFromHeight(t *testing.T) {
	w, h := FitResolution(1920, 1080, 0, 720, ar(16.0/9.0), 0, 0, 1, 2)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestFitResolutionAspectRatioPrioritizesWidth(t *testing.T) {
	w, h := FitResolution(1920, 1080, 1000, 720, ar(2.0), 0, 0, 1, 2)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 500, h)
}

func TestFitResolutionLimitsToBounds(t *testing.T) {
	w, h := FitResolution(3840, 2160, 3800, 2100, nil, 1920, 1080, 1, 2)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
}

func TestFitResolutionLimitsWithAspectRatio(t *testing.T) {
	w, h := FitResolution(3000, 3000, 2000, 2000, ar(16.0/9.0), 6000, 720, 1, 2)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}
