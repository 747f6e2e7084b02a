// Package geometry provides the rectangle math shared by the editor and the
// compositor.
//
// Two coordinate systems are in play:
//   - Display space: the bounded, on-screen rendering of an image.
//   - Source space: the full-resolution decoded image.
//
// Both use (0,0) at the top-left corner with X increasing rightward and Y
// increasing downward. Rect values are integer pixels; RectF is used while a
// value is moving between spaces and has not been rounded yet.
package geometry

import (
	"fmt"
	"math"
)

// Size is a width and height in pixels.
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Rect is an axis-aligned rectangle given by its top-left corner and extent.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Full returns the rectangle covering all of s.
func Full(s Size) Rect {
	return Rect{X: 0, Y: 0, W: s.W, H: s.H}
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.H }

// Size returns the extent of r.
func (r Rect) Size() Size { return Size{W: r.W, H: r.H} }

func (r Rect) String() string {
	return fmt.Sprintf("{x:%d y:%d w:%d h:%d}", r.X, r.Y, r.W, r.H)
}

// Within reports whether r lies completely inside a frame of size bounds and
// is at least min in both dimensions.
func (r Rect) Within(bounds, min Size) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.Right() <= bounds.W && r.Bottom() <= bounds.H &&
		r.W >= min.W && r.H >= min.H
}

// ClampTo returns r corrected to lie inside bounds with at least min extent.
//
// The extent is clamped first (to [min, bounds]) and the origin second, so an
// oversized rectangle shrinks and a displaced one slides back into the frame.
// min is itself limited to bounds, which keeps the result valid for frames
// smaller than the minimum.
func (r Rect) ClampTo(bounds, min Size) Rect {
	min = MinSize(bounds, min)
	w := Clamp(r.W, min.W, bounds.W)
	h := Clamp(r.H, min.H, bounds.H)
	return Rect{
		X: Clamp(r.X, 0, bounds.W-w),
		Y: Clamp(r.Y, 0, bounds.H-h),
		W: w,
		H: h,
	}
}

// Scale maps r into another coordinate space.
func (r Rect) Scale(sx, sy float64) RectF {
	return RectF{
		X: float64(r.X) * sx,
		Y: float64(r.Y) * sy,
		W: float64(r.W) * sx,
		H: float64(r.H) * sy,
	}
}

// RectF is a rectangle with fractional coordinates.
type RectF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Round rounds each component to the nearest integer.
func (r RectF) Round() Rect {
	return Rect{
		X: int(math.Round(r.X)),
		Y: int(math.Round(r.Y)),
		W: int(math.Round(r.W)),
		H: int(math.Round(r.H)),
	}
}

// ScaleFactors returns the per-axis factors that map display space onto
// source space.
func ScaleFactors(natural, display Size) (sx, sy float64) {
	return float64(natural.W) / float64(display.W), float64(natural.H) / float64(display.H)
}

// MinSize limits min to bounds on each axis.
func MinSize(bounds, min Size) Size {
	return Size{W: Clamp(min.W, 1, bounds.W), H: Clamp(min.H, 1, bounds.H)}
}

// Clamp limits v to [lo, hi]. When hi < lo, lo wins.
func Clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// ClampF is Clamp for float64.
func ClampF(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
