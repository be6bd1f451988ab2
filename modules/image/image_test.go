package image

import (
	"bytes"
	goimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test png: %v", err)
	}
}

func TestDecodeFileReadsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solid.png")
	writeTestPNG(t, path, 4, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img, err := decodeFile(path)
	if err != nil {
		t.Fatalf("decodeFile: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 2 {
		t.Fatalf("bounds = %v, want 4x2", b)
	}
}

func TestDecodeFileMissingFileErrors(t *testing.T) {
	if _, err := decodeFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestRGBABytesFlattensRowMajor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.png")
	writeTestPNG(t, path, 2, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	img, err := decodeFile(path)
	if err != nil {
		t.Fatalf("decodeFile: %v", err)
	}

	data := rgbaBytes(img)
	if len(data) != 2*1*4 {
		t.Fatalf("len(data) = %d, want 8", len(data))
	}
	if data[0] != 200 || data[1] != 100 || data[2] != 50 || data[3] != 255 {
		t.Fatalf("pixel 0 = %v, want [200 100 50 255]", data[0:4])
	}
	if data[4] != 200 || data[5] != 100 || data[6] != 50 || data[7] != 255 {
		t.Fatalf("pixel 1 = %v, want [200 100 50 255]", data[4:8])
	}
}

func TestNameReturnsConfiguredName(t *testing.T) {
	m := New("iChannel0", "nonexistent.png")
	if m.Name() != "iChannel0" {
		t.Fatalf("Name() = %q, want iChannel0", m.Name())
	}
}

func TestSetupOnMissingFileLeavesModuleInert(t *testing.T) {
	m := New("iChannel0", filepath.Join(t.TempDir(), "missing.png"))
	m.Setup()
	if m.Defines() != nil {
		t.Fatalf("Defines() = %v, want nil after failed Setup", m.Defines())
	}
	if m.Pipeline() != nil {
		t.Fatalf("Pipeline() = %v, want nil after failed Setup", m.Pipeline())
	}
}
