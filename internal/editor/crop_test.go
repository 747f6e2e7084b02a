package editor

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
)

var display500x375 = geometry.Size{W: 500, H: 375}

func newEngineWithCrop(t *testing.T, display geometry.Size, r geometry.Rect) *CropEngine {
	t.Helper()
	e := NewCropEngine(display)
	if got := e.SetCrop(r); got != r {
		t.Fatalf("SetCrop(%v) = %v, want unchanged", r, got)
	}
	return e
}

func drag(t *testing.T, e *CropEngine, h Handle, from Point, dx, dy float64) geometry.Rect {
	t.Helper()
	if err := e.BeginDrag(h, from); err != nil {
		t.Fatalf("BeginDrag(%s) failed: %v", h, err)
	}
	r, err := e.UpdateDrag(Point{X: from.X + dx, Y: from.Y + dy})
	if err != nil {
		t.Fatalf("UpdateDrag failed: %v", err)
	}
	e.EndDrag()
	return r
}

func TestNewCropEngine_FullFrame(t *testing.T) {
	e := NewCropEngine(display500x375)

	want := geometry.Rect{X: 0, Y: 0, W: 500, H: 375}
	if e.Crop() != want {
		t.Errorf("Crop: got %v, want %v", e.Crop(), want)
	}
	if e.Aspect() != AspectFree {
		t.Errorf("Aspect: got %s, want free", e.Aspect())
	}
	if e.Dragging() {
		t.Error("new engine should not be dragging")
	}
}

func TestUpdateDrag_BottomRightFree(t *testing.T) {
	e := newEngineWithCrop(t, display500x375, geometry.Rect{X: 0, Y: 0, W: 100, H: 100})

	got := drag(t, e, HandleBottomRight, Point{X: 100, Y: 100}, 50, 30)

	want := geometry.Rect{X: 0, Y: 0, W: 150, H: 130}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUpdateDrag_BottomRightClampedToDisplay(t *testing.T) {
	small := geometry.Size{W: 120, H: 110}
	e := newEngineWithCrop(t, small, geometry.Rect{X: 0, Y: 0, W: 100, H: 100})

	got := drag(t, e, HandleBottomRight, Point{X: 100, Y: 100}, 50, 30)

	want := geometry.Rect{X: 0, Y: 0, W: 120, H: 110}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUpdateDrag_FreeCorners(t *testing.T) {
	start := geometry.Rect{X: 100, Y: 100, W: 200, H: 150}

	tests := []struct {
		name   string
		handle Handle
		dx, dy float64
		want   geometry.Rect
	}{
		{"top-left grows", HandleTopLeft, -50, -20, geometry.Rect{X: 50, Y: 80, W: 250, H: 170}},
		{"top-left shrinks to minimum", HandleTopLeft, 500, 500, geometry.Rect{X: 260, Y: 210, W: 40, H: 40}},
		{"top-left stops at origin", HandleTopLeft, -500, -500, geometry.Rect{X: 0, Y: 0, W: 300, H: 250}},
		{"top-right", HandleTopRight, 30, -40, geometry.Rect{X: 100, Y: 60, W: 230, H: 190}},
		{"top-right stops at right edge", HandleTopRight, 900, 0, geometry.Rect{X: 100, Y: 100, W: 400, H: 150}},
		{"bottom-left", HandleBottomLeft, 20, 25, geometry.Rect{X: 120, Y: 100, W: 180, H: 175}},
		{"bottom-right shrinks to minimum", HandleBottomRight, -500, -500, geometry.Rect{X: 100, Y: 100, W: 40, H: 40}},
		{"bottom-right stops at bottom edge", HandleBottomRight, 0, 900, geometry.Rect{X: 100, Y: 100, W: 200, H: 275}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngineWithCrop(t, display500x375, start)
			got := drag(t, e, tt.handle, Point{X: 250, Y: 200}, tt.dx, tt.dy)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateDrag_Move(t *testing.T) {
	start := geometry.Rect{X: 100, Y: 100, W: 100, H: 100}

	tests := []struct {
		name   string
		dx, dy float64
		want   geometry.Rect
	}{
		{"inside", 10, -20, geometry.Rect{X: 110, Y: 80, W: 100, H: 100}},
		{"clamped bottom right", 1000, 1000, geometry.Rect{X: 400, Y: 275, W: 100, H: 100}},
		{"clamped top left", -1000, -1000, geometry.Rect{X: 0, Y: 0, W: 100, H: 100}},
		{"fractional rounds", 0.6, 0.4, geometry.Rect{X: 101, Y: 100, W: 100, H: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngineWithCrop(t, display500x375, start)
			got := drag(t, e, HandleMove, Point{X: 150, Y: 150}, tt.dx, tt.dy)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateDrag_LockedAnchors(t *testing.T) {
	// 4:3 on a 500x375 frame is the whole frame.
	tests := []struct {
		name   string
		handle Handle
		dx     float64
		want   geometry.Rect
	}{
		{"top-left keeps bottom-right corner", HandleTopLeft, 100, geometry.Rect{X: 100, Y: 75, W: 400, H: 300}},
		{"top-right keeps bottom edge", HandleTopRight, -100, geometry.Rect{X: 0, Y: 75, W: 400, H: 300}},
		{"bottom-left keeps top edge", HandleBottomLeft, 100, geometry.Rect{X: 100, Y: 0, W: 400, H: 300}},
		{"bottom-right keeps top-left corner", HandleBottomRight, -100, geometry.Rect{X: 0, Y: 0, W: 400, H: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewCropEngine(display500x375)
			e.SetAspectMode(Aspect4x3)
			if full := (geometry.Rect{X: 0, Y: 0, W: 500, H: 375}); e.Crop() != full {
				t.Fatalf("4:3 crop: got %v, want %v", e.Crop(), full)
			}

			// dy is ignored under a lock.
			got := drag(t, e, tt.handle, Point{X: 250, Y: 200}, tt.dx, 999)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateDrag_LockedCannotOutgrowFrame(t *testing.T) {
	e := NewCropEngine(display500x375)
	e.SetAspectMode(AspectSquare)

	got := drag(t, e, HandleBottomRight, Point{X: 400, Y: 300}, 500, 0)

	if got.H > display500x375.H || got.Right() > display500x375.W {
		t.Errorf("crop %v escapes the frame", got)
	}
	if got.W != got.H {
		t.Errorf("crop %v is not square", got)
	}
}

func TestBeginDrag_Errors(t *testing.T) {
	e := newEngineWithCrop(t, display500x375, geometry.Rect{X: 0, Y: 0, W: 100, H: 100})

	if err := e.BeginDrag("middle", Point{}); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("unknown handle: got %v, want ErrUnknownHandle", err)
	}
	if e.Dragging() {
		t.Error("failed BeginDrag should not start a drag")
	}

	if err := e.BeginDrag(HandleMove, Point{X: 10, Y: 10}); err != nil {
		t.Fatalf("BeginDrag failed: %v", err)
	}
	if err := e.BeginDrag(HandleTopLeft, Point{X: 0, Y: 0}); !errors.Is(err, ErrDragActive) {
		t.Errorf("second BeginDrag: got %v, want ErrDragActive", err)
	}

	// The move drag is still the active one.
	got, err := e.UpdateDrag(Point{X: 20, Y: 30})
	if err != nil {
		t.Fatalf("UpdateDrag failed: %v", err)
	}
	if want := (geometry.Rect{X: 10, Y: 20, W: 100, H: 100}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUpdateDrag_WithoutDrag(t *testing.T) {
	e := NewCropEngine(display500x375)
	before := e.Crop()

	got, err := e.UpdateDrag(Point{X: 10, Y: 10})
	if !errors.Is(err, ErrNoDrag) {
		t.Errorf("got %v, want ErrNoDrag", err)
	}
	if got != before || e.Crop() != before {
		t.Errorf("crop changed without a drag: %v", got)
	}
}

func TestUpdateDrag_NaNIgnored(t *testing.T) {
	e := newEngineWithCrop(t, display500x375, geometry.Rect{X: 10, Y: 10, W: 100, H: 100})
	if err := e.BeginDrag(HandleMove, Point{X: 0, Y: 0}); err != nil {
		t.Fatal(err)
	}
	got, err := e.UpdateDrag(Point{X: math.NaN(), Y: 5})
	if err != nil {
		t.Fatalf("UpdateDrag failed: %v", err)
	}
	if want := (geometry.Rect{X: 10, Y: 10, W: 100, H: 100}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEndDrag_KeepsCrop(t *testing.T) {
	e := newEngineWithCrop(t, display500x375, geometry.Rect{X: 0, Y: 0, W: 100, H: 100})
	got := drag(t, e, HandleBottomRight, Point{X: 100, Y: 100}, 10, 10)

	if e.Dragging() {
		t.Error("EndDrag should clear the drag")
	}
	if e.Crop() != got {
		t.Errorf("crop after EndDrag: got %v, want %v", e.Crop(), got)
	}
	// EndDrag without a drag is harmless.
	e.EndDrag()
}

func TestSetAspectMode_Square(t *testing.T) {
	e := NewCropEngine(display500x375)
	e.SetAspectMode(AspectSquare)

	got := e.Crop()
	if got.X != 62 && got.X != 63 {
		t.Errorf("X: got %d, want 62 or 63", got.X)
	}
	if got.Y != 0 || got.W != 375 || got.H != 375 {
		t.Errorf("got %v, want {x:62|63 y:0 w:375 h:375}", got)
	}
}

func TestSetAspectMode_ReplacesCrop(t *testing.T) {
	tests := []struct {
		mode AspectMode
		want geometry.Rect
	}{
		{Aspect4x3, geometry.Rect{X: 0, Y: 0, W: 500, H: 375}},
		{Aspect16x9, geometry.Rect{X: 0, Y: 47, W: 500, H: 281}},
		{Aspect3x4, geometry.Rect{X: 110, Y: 0, W: 281, H: 375}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			e := newEngineWithCrop(t, display500x375, geometry.Rect{X: 10, Y: 10, W: 50, H: 60})
			e.SetAspectMode(tt.mode)
			if got := e.Crop(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if e.Aspect() != tt.mode {
				t.Errorf("Aspect: got %s, want %s", e.Aspect(), tt.mode)
			}
		})
	}
}

func TestSetAspectMode_FreeKeepsCrop(t *testing.T) {
	start := geometry.Rect{X: 10, Y: 10, W: 50, H: 60}
	e := newEngineWithCrop(t, display500x375, start)
	e.SetAspectMode(AspectSquare)
	square := e.Crop()

	e.SetAspectMode(AspectFree)
	if e.Crop() != square {
		t.Errorf("free changed the crop: got %v, want %v", e.Crop(), square)
	}
	if e.Aspect() != AspectFree {
		t.Errorf("Aspect: got %s, want free", e.Aspect())
	}
}

func TestSetAspectMode_DropsDrag(t *testing.T) {
	e := NewCropEngine(display500x375)
	if err := e.BeginDrag(HandleMove, Point{}); err != nil {
		t.Fatal(err)
	}
	e.SetAspectMode(Aspect16x9)
	if e.Dragging() {
		t.Error("aspect change should drop the active drag")
	}
}

func TestSetCrop_SnapsToRatio(t *testing.T) {
	e := NewCropEngine(display500x375)
	e.SetAspectMode(Aspect16x9)

	got := e.SetCrop(geometry.Rect{X: 400, Y: 300, W: 160, H: 40})
	if !got.Within(display500x375, geometry.Size{W: MinCropSize, H: MinCropSize}) {
		t.Errorf("%v is outside the frame", got)
	}
	if diff := math.Abs(float64(got.W)/float64(got.H) - 16.0/9.0); diff >= 1e-2 {
		t.Errorf("%v ratio error %.4f", got, diff)
	}
}

func TestReset(t *testing.T) {
	e := NewCropEngine(display500x375)
	e.SetAspectMode(AspectSquare)
	if err := e.BeginDrag(HandleMove, Point{}); err != nil {
		t.Fatal(err)
	}

	e.Reset()

	if want := geometry.Full(display500x375); e.Crop() != want {
		t.Errorf("Crop: got %v, want %v", e.Crop(), want)
	}
	if e.Aspect() != AspectFree {
		t.Errorf("Aspect: got %s, want free", e.Aspect())
	}
	if e.Dragging() {
		t.Error("Reset should drop the active drag")
	}
}

func TestCropEngine_FrameSmallerThanMinimum(t *testing.T) {
	tiny := geometry.Size{W: 30, H: 20}
	e := NewCropEngine(tiny)

	got := drag(t, e, HandleBottomRight, Point{X: 30, Y: 20}, -100, -100)
	if want := (geometry.Rect{X: 0, Y: 0, W: 30, H: 20}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestCropEngine_RandomDrags replays long random sequences of drags and
// aspect changes and checks the crop after every step.
func TestCropEngine_RandomDrags(t *testing.T) {
	displays := []geometry.Size{
		{W: 500, H: 375},
		{W: 400, H: 400},
		{W: 300, H: 400},
		{W: 500, H: 281},
		{W: 120, H: 90},
	}
	handles := []Handle{HandleMove, HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight}
	modes := AspectModes()
	rng := rand.New(rand.NewSource(20240917))

	point := func(d geometry.Size) Point {
		return Point{
			X: rng.Float64()*float64(d.W+200) - 100,
			Y: rng.Float64()*float64(d.H+200) - 100,
		}
	}

	for _, d := range displays {
		t.Run(d.String(), func(t *testing.T) {
			e := NewCropEngine(d)
			min := geometry.MinSize(d, geometry.Size{W: MinCropSize, H: MinCropSize})

			for step := 0; step < 5000; step++ {
				switch rng.Intn(12) {
				case 0:
					e.SetAspectMode(modes[rng.Intn(len(modes))])
				case 1, 2:
					e.EndDrag()
				case 3, 4, 5:
					if !e.Dragging() {
						if err := e.BeginDrag(handles[rng.Intn(len(handles))], point(d)); err != nil {
							t.Fatalf("step %d: BeginDrag failed: %v", step, err)
						}
					}
				default:
					if e.Dragging() {
						if _, err := e.UpdateDrag(point(d)); err != nil {
							t.Fatalf("step %d: UpdateDrag failed: %v", step, err)
						}
					}
				}

				c := e.Crop()
				if c.X < 0 || c.Y < 0 || c.Right() > d.W || c.Bottom() > d.H {
					t.Fatalf("step %d: %v escapes %v", step, c, d)
				}
				if c.W < min.W || c.H < min.H {
					t.Fatalf("step %d: %v smaller than %v", step, c, min)
				}
				if r, ok := e.Aspect().Ratio(); ok {
					if diff := math.Abs(float64(c.W)/float64(c.H) - r); diff >= 1e-2 {
						t.Fatalf("step %d: %v off ratio %s by %.4f", step, c, e.Aspect(), diff)
					}
				}
			}
		})
	}
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    Handle
		wantErr bool
	}{
		{"move", HandleMove, false},
		{"top-left", HandleTopLeft, false},
		{"TR", HandleTopRight, false},
		{" bl ", HandleBottomLeft, false},
		{"br", HandleBottomRight, false},
		{"center", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHandle(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownHandle) {
				t.Errorf("got %v, want ErrUnknownHandle", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAspectMode(t *testing.T) {
	tests := []struct {
		in      string
		want    AspectMode
		wantErr bool
	}{
		{"", AspectFree, false},
		{"free", AspectFree, false},
		{"1:1", AspectSquare, false},
		{"4:3", Aspect4x3, false},
		{"16:9", Aspect16x9, false},
		{"3:4", Aspect3x4, false},
		{"2:1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAspectMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownAspect) {
				t.Errorf("got %v, want ErrUnknownAspect", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
