package editor

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
)

// MinCropSize is the smallest crop extent, in display pixels, on either axis.
const MinCropSize = 40

// Handle identifies what a drag grabs: the whole selection or one corner.
type Handle string

const (
	HandleMove        Handle = "move"
	HandleTopLeft     Handle = "top-left"
	HandleTopRight    Handle = "top-right"
	HandleBottomLeft  Handle = "bottom-left"
	HandleBottomRight Handle = "bottom-right"
)

// ParseHandle accepts the long handle names and their short forms
// ("tl", "tr", "bl", "br").
func ParseHandle(s string) (Handle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "move":
		return HandleMove, nil
	case "top-left", "tl":
		return HandleTopLeft, nil
	case "top-right", "tr":
		return HandleTopRight, nil
	case "bottom-left", "bl":
		return HandleBottomLeft, nil
	case "bottom-right", "br":
		return HandleBottomRight, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHandle, s)
	}
}

func (h Handle) onRight() bool { return h == HandleTopRight || h == HandleBottomRight }
func (h Handle) onBottom() bool { return h == HandleBottomLeft || h == HandleBottomRight }

// AspectMode constrains the crop's width/height ratio.
type AspectMode string

const (
	AspectFree   AspectMode = "free"
	AspectSquare AspectMode = "1:1"
	Aspect4x3    AspectMode = "4:3"
	Aspect16x9   AspectMode = "16:9"
	Aspect3x4    AspectMode = "3:4"
)

var aspectRatios = map[AspectMode]float64{
	AspectSquare: 1,
	Aspect4x3:    4.0 / 3.0,
	Aspect16x9:   16.0 / 9.0,
	Aspect3x4:    3.0 / 4.0,
}

// AspectModes lists the modes in display order.
func AspectModes() []AspectMode {
	return []AspectMode{AspectFree, AspectSquare, Aspect4x3, Aspect16x9, Aspect3x4}
}

// ParseAspectMode validates a mode name. The empty string means free.
func ParseAspectMode(s string) (AspectMode, error) {
	m := AspectMode(strings.TrimSpace(s))
	if m == "" || m == AspectFree {
		return AspectFree, nil
	}
	if _, ok := aspectRatios[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAspect, s)
	}
	return m, nil
}

// Ratio returns the width/height ratio and false for free.
func (m AspectMode) Ratio() (float64, bool) {
	r, ok := aspectRatios[m]
	return r, ok
}

// Point is a pointer position in display space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type dragSession struct {
	handle   Handle
	start    Point
	snapshot geometry.Rect
}

// CropEngine owns the crop rectangle and aspect mode of one session and turns
// pointer drags into new rectangles.
//
// Every rectangle it produces lies inside the display frame and is at least
// MinCropSize on both axes (or the whole axis, for frames smaller than that).
// With a ratio set, width is the primary dimension and height is derived.
type CropEngine struct {
	display geometry.Size
	crop    geometry.Rect
	aspect  AspectMode
	drag    *dragSession
}

// NewCropEngine starts with a full-frame crop and no aspect lock.
func NewCropEngine(display geometry.Size) *CropEngine {
	return &CropEngine{
		display: display,
		crop:    geometry.Full(display),
		aspect:  AspectFree,
	}
}

func (e *CropEngine) Crop() geometry.Rect { return e.crop }
func (e *CropEngine) Aspect() AspectMode { return e.aspect }
func (e *CropEngine) Display() geometry.Size { return e.display }
func (e *CropEngine) Dragging() bool { return e.drag != nil }

func (e *CropEngine) minSize() geometry.Size {
	return geometry.MinSize(e.display, geometry.Size{W: MinCropSize, H: MinCropSize})
}

// BeginDrag snapshots the crop and pointer as the reference frame of a drag.
// Only one drag may be active; a second BeginDrag returns ErrDragActive and
// leaves the running drag untouched.
func (e *CropEngine) BeginDrag(h Handle, p Point) error {
	if e.drag != nil {
		return ErrDragActive
	}
	switch h {
	case HandleMove, HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHandle, h)
	}
	e.drag = &dragSession{handle: h, start: p, snapshot: e.crop}
	return nil
}

// UpdateDrag recomputes the crop from the pointer's offset to the drag start.
func (e *CropEngine) UpdateDrag(p Point) (geometry.Rect, error) {
	if e.drag == nil {
		return e.crop, ErrNoDrag
	}
	dx, dy := p.X-e.drag.start.X, p.Y-e.drag.start.Y
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return e.crop, nil
	}

	var r geometry.Rect
	if e.drag.handle == HandleMove {
		r = e.moved(dx, dy)
	} else if ratio, ok := e.aspect.Ratio(); ok {
		r = e.resizedLocked(dx, ratio)
	} else {
		r = e.resizedFree(dx, dy)
	}

	if !r.Within(e.display, e.minSize()) {
		r = r.ClampTo(e.display, e.minSize())
	}
	e.crop = r
	return r, nil
}

// EndDrag finishes the active drag. The crop keeps its last value.
func (e *CropEngine) EndDrag() {
	e.drag = nil
}

func (e *CropEngine) moved(dx, dy float64) geometry.Rect {
	s := e.drag.snapshot
	x := geometry.ClampF(float64(s.X)+dx, 0, float64(e.display.W-s.W))
	y := geometry.ClampF(float64(s.Y)+dy, 0, float64(e.display.H-s.H))
	return geometry.Rect{X: int(math.Round(x)), Y: int(math.Round(y)), W: s.W, H: s.H}
}

// resizedFree moves the dragged corner; the opposite corner stays fixed.
func (e *CropEngine) resizedFree(dx, dy float64) geometry.Rect {
	s := e.drag.snapshot
	h := e.drag.handle
	min := e.minSize()
	r := s

	if h.onRight() {
		w := geometry.ClampF(float64(s.W)+dx, float64(min.W), float64(e.display.W-s.X))
		r.W = int(math.Round(w))
	} else {
		x := geometry.ClampF(float64(s.X)+dx, 0, float64(s.Right()-min.W))
		r.X = int(math.Round(x))
		r.W = s.Right() - r.X
	}

	if h.onBottom() {
		hh := geometry.ClampF(float64(s.H)+dy, float64(min.H), float64(e.display.H-s.Y))
		r.H = int(math.Round(hh))
	} else {
		y := geometry.ClampF(float64(s.Y)+dy, 0, float64(s.Bottom()-min.H))
		r.Y = int(math.Round(y))
		r.H = s.Bottom() - r.Y
	}

	return r
}

// resizedLocked derives height from the dragged width. Top handles keep the
// bottom edge anchored and left handles keep the right edge anchored.
func (e *CropEngine) resizedLocked(dx, ratio float64) geometry.Rect {
	s := e.drag.snapshot
	h := e.drag.handle

	target := float64(s.W) - dx
	maxW := s.Right()
	if h.onRight() {
		target = float64(s.W) + dx
		maxW = e.display.W - s.X
	}
	maxH := s.Bottom()
	if h.onBottom() {
		maxH = e.display.H - s.Y
	}

	w, hh := geometry.SnapToRatio(target, ratio, geometry.RatioLimits(e.minSize(), maxW, maxH, ratio))

	r := geometry.Rect{X: s.X, Y: s.Y, W: w, H: hh}
	if !h.onRight() {
		r.X = s.Right() - w
	}
	if !h.onBottom() {
		r.Y = s.Bottom() - hh
	}
	return r
}

// SetAspectMode switches the ratio lock. Any fixed ratio replaces the crop
// with the largest centered rectangle of that ratio; free keeps the crop.
// An active drag is dropped because its snapshot no longer applies.
func (e *CropEngine) SetAspectMode(m AspectMode) {
	e.drag = nil
	e.aspect = m
	ratio, ok := m.Ratio()
	if !ok {
		e.aspect = AspectFree
		return
	}
	e.crop = geometry.CenteredAspect(e.display, ratio, e.minSize())
}

// SetCrop replaces the crop with r, corrected to fit the frame. With a ratio
// set, the height is re-derived from the width and the rectangle slides back
// into the frame if the new height overflows it.
func (e *CropEngine) SetCrop(r geometry.Rect) geometry.Rect {
	min := e.minSize()
	if ratio, ok := e.aspect.Ratio(); ok {
		lim := geometry.RatioLimits(min, e.display.W, e.display.H, ratio)
		r.W, r.H = geometry.SnapToRatio(float64(r.W), ratio, lim)
	}
	r = r.ClampTo(e.display, min)
	e.drag = nil
	e.crop = r
	return r
}

// Reset restores the full-frame crop and drops the aspect lock.
func (e *CropEngine) Reset() {
	e.drag = nil
	e.aspect = AspectFree
	e.crop = geometry.Full(e.display)
}
