// Package scene implements the top-level Scene module: the module bus,
// resolution/SSAA fitting, the main event loop, and the combined per-frame
// uniform pipeline. Grounded on ShaderFlow's scene.py (ShaderScene) and the
// teacher's renderer/scene.go (Scene/LoadScene) + renderer/renderer.go
// (InitScene/RenderFrame/Run).
package scene

import (
	"math"
)

// FitResolution solves ShaderFlow's Resolution.fit problem: given an old
// size, an optionally partial new size, an optional forced aspect ratio,
// an optional bounding box, and a scale factor, compute the final
// (width, height), rounded to the nearest multiple of `multiple` (2, so
// video encoders never see an odd dimension).
//
// new.W or new.H may be zero to mean "keep the old component". Ported 1:1
// from resolution.py's branch structure, including the width-priority rule
// used when both new components differ from old.
func FitResolution(oldW, oldH, newW, newH int, ar *float64, maxW, maxH int, scale float64, multiple int) (int, int) {
	width := float64(newW)
	if newW == 0 {
		width = float64(oldW)
	}
	height := float64(newH)
	if newH == 0 {
		height = float64(oldH)
	}

	if ar != nil {
		fromWidth := [2]float64{width, width / *ar}
		fromHeight := [2]float64{height * *ar, height}

		switch {
		case newH == 0:
			width, height = fromWidth[0], fromWidth[1]
		case newW == 0:
			width, height = fromHeight[0], fromHeight[1]
		case newW != oldW:
			width, height = fromWidth[0], fromWidth[1]
		case newH != oldH:
			width, height = fromHeight[0], fromHeight[1]
		default:
			width, height = fromWidth[0], fromWidth[1]
		}

		mw, mh := math.Inf(1), math.Inf(1)
		if maxW > 0 {
			mw = float64(maxW)
		}
		if maxH > 0 {
			mh = float64(maxH)
		}
		reduce := math.Max(width/math.Min(width, mw), height/math.Min(height, mh))
		if reduce == 0 {
			reduce = 1
		}
		width, height = width/reduce, height/reduce
	} else {
		if maxW > 0 {
			width = math.Min(width, float64(maxW))
		}
		if maxH > 0 {
			height = math.Min(height, float64(maxH))
		}
	}

	if multiple < 1 {
		multiple = 1
	}
	round := func(v float64) int {
		return multiple * int(math.Round(v/float64(multiple)))
	}
	return round(width * scale), round(height * scale)
}

// roundToMultiple rounds v to the nearest multiple of n (n=2 gives the
// "round to even integers" rule render resolution is specified by).
func roundToMultiple(v float64, n int) int {
	if n < 1 {
		n = 1
	}
	return n * int(math.Round(v/float64(n)))
}
