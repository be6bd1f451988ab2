package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSizer struct {
	w, h   int
	rw, rh int
	rt     bool
}

func (f fakeSizer) Resolution() (int, int)       { return f.w, f.h }
func (f fakeSizer) RenderResolution() (int, int) { return f.rw, f.rh }
func (f fakeSizer) Realtime() bool               { return f.rt }

func TestResolutionUntrackedUsesFixedSize(t *testing.T) {
	m := New("iTex", fakeSizer{})
	m.width, m.height = 320, 240
	w, h := m.Resolution()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestResolutionTrackedScalesRenderResolution(t *testing.T) {
	m := New("iTex", fakeSizer{rw: 1920, rh: 1080})
	m.Track = 0.5
	w, h := m.Resolution()
	assert.Equal(t, 960, w)
	assert.Equal(t, 540, h)
}

func TestResolutionTrackedFinalUsesSceneResolution(t *testing.T) {
	m := New("iTex", fakeSizer{w: 800, h: 600, rw: 1600, rh: 1200})
	m.Track = 1.0
	m.Final = true
	w, h := m.Resolution()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestDefinesAliasesLastLayerAsPlainName(t *testing.T) {
	m := New("iTex", fakeSizer{})
	m.Temporal = 2
	m.Layers = 3
	lines := m.Defines()
	assert.Contains(t, lines, "#define iTex iTex0x2")
	assert.Contains(t, lines, "#define iTex1 iTex1x2")
	assert.Contains(t, lines, "vec4 iTexTexture(int temporal, int layer, vec2 astuv) {")
}

func TestDefinesEmptyWithoutName(t *testing.T) {
	m := New("", fakeSizer{})
	assert.Nil(t, m.Defines())
}

func TestRollRotatesTemporalRows(t *testing.T) {
	m := &Matrix{}
	m.matrix = [][]Box{
		{{Empty: false}},
		{{Empty: true}},
		{{Empty: true}},
	}
	m.Roll(1)
	assert.False(t, m.matrix[1][0].Empty)
}

func TestPopFillGrowsAndShrinks(t *testing.T) {
	rows := popFill(nil, 3)
	assert.Len(t, rows, 3)
	rows = popFill(rows, 1)
	assert.Len(t, rows, 1)
}
