package geometry

import "math"

// ratioTolerance is the w/h error accepted without searching further.
const ratioTolerance = 0.005

// snapOffsets is the search order around the requested width.
var snapOffsets = []int{0, -1, 1, -2, 2, -3, 3}

// Fit scales natural down (never up) to fit inside max, preserving the aspect
// ratio. Width is constrained first, then height. The result is rounded to
// whole pixels and is never smaller than 1x1.
func Fit(natural, max Size) Size {
	dw, dh := float64(natural.W), float64(natural.H)
	if dw > float64(max.W) {
		dh = dh * float64(max.W) / dw
		dw = float64(max.W)
	}
	if dh > float64(max.H) {
		dw = dw * float64(max.H) / dh
		dh = float64(max.H)
	}
	return Size{
		W: int(math.Max(1, math.Round(dw))),
		H: int(math.Max(1, math.Round(dh))),
	}
}

// Limits bounds the integer width and height a ratio-locked rectangle may take.
type Limits struct {
	MinW, MaxW int
	MinH, MaxH int
}

// RatioLimits derives width limits for a ratio-locked rectangle whose height
// follows from its width. maxW and maxH are the room available on each axis.
//
// The height is round(w/ratio), so the width range covers every w whose
// rounded height lies in [min.H, maxH]; SnapToRatio rejects the rest.
func RatioLimits(min Size, maxW, maxH int, ratio float64) Limits {
	lo := int(math.Ceil(math.Max(float64(min.W), (float64(min.H)-0.5)*ratio) - 1e-9))
	hi := int(math.Floor((float64(maxH)+0.5)*ratio - 1e-9))
	if hi > maxW {
		hi = maxW
	}
	if lo > hi {
		lo = hi
	}
	minH := min.H
	if minH > maxH {
		minH = maxH
	}
	return Limits{MinW: lo, MaxW: hi, MinH: minH, MaxH: maxH}
}

// SnapToRatio picks integer dimensions close to a width of target whose
// ratio w/h is as close to ratio as the limits allow.
//
// Rounding w and h independently can be off by more than 1% for small
// rectangles, so a few widths around the target are tried and the first one
// within ratioTolerance wins; otherwise the closest ratio is used.
func SnapToRatio(target, ratio float64, lim Limits) (w, h int) {
	base := int(math.Round(ClampF(target, float64(lim.MinW), float64(lim.MaxW))))

	bestErr := math.Inf(1)
	for _, d := range snapOffsets {
		cw := base + d
		if cw < lim.MinW || cw > lim.MaxW || cw <= 0 {
			continue
		}
		ch := int(math.Round(float64(cw) / ratio))
		if ch < lim.MinH || ch > lim.MaxH || ch <= 0 {
			continue
		}
		e := math.Abs(float64(cw)/float64(ch) - ratio)
		if e <= ratioTolerance {
			return cw, ch
		}
		if e < bestErr {
			bestErr, w, h = e, cw, ch
		}
	}
	if math.IsInf(bestErr, 1) {
		w = Clamp(base, lim.MinW, lim.MaxW)
		h = Clamp(int(math.Round(float64(w)/ratio)), lim.MinH, lim.MaxH)
	}
	return w, h
}

// CenteredAspect returns the largest rectangle of the given ratio that fits
// inside bounds, centered on both axes. When bounds cannot hold a rectangle
// of that ratio at least min in size, the minimum wins over the ratio.
func CenteredAspect(bounds Size, ratio float64, min Size) Rect {
	min = MinSize(bounds, min)
	cw := float64(bounds.W)
	if ch := cw / ratio; ch > float64(bounds.H) {
		cw = float64(bounds.H) * ratio
	}
	w, h := SnapToRatio(cw, ratio, RatioLimits(min, bounds.W, bounds.H, ratio))
	r := Rect{
		X: int(math.Round(float64(bounds.W-w) / 2)),
		Y: int(math.Round(float64(bounds.H-h) / 2)),
		W: w,
		H: h,
	}
	return r.ClampTo(bounds, min)
}
