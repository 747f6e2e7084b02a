package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
	imgpkg "github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// encodePNG creates an in-memory PNG of the given size, red on the left half
// and blue on the right.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{0, 0, 255, 255})
	left := imaging.New(width/2, height, color.NRGBA{255, 0, 0, 255})
	img = imaging.Paste(img, left, image.Pt(0, 0))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func openTestSession(t *testing.T, width, height int, hint AspectHint) *Session {
	t.Helper()
	s, err := Open(context.Background(), encodePNG(t, width, height), hint, DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestOpen_DisplayGeometry(t *testing.T) {
	s := openTestSession(t, 1000, 750, HintNone)

	if want := (geometry.Size{W: 1000, H: 750}); s.Source().Size != want {
		t.Errorf("natural: got %v, want %v", s.Source().Size, want)
	}
	if want := (geometry.Size{W: 500, H: 375}); s.Display() != want {
		t.Errorf("display: got %v, want %v", s.Display(), want)
	}
	if want := geometry.Full(s.Display()); s.Crop() != want {
		t.Errorf("crop: got %v, want %v", s.Crop(), want)
	}
	if s.Aspect() != AspectFree {
		t.Errorf("aspect: got %s, want free", s.Aspect())
	}
	if s.ID() == "" {
		t.Error("session should have an id")
	}
	if s.ActiveFilter() != FilterOriginal {
		t.Errorf("ActiveFilter: got %q, want original", s.ActiveFilter())
	}
}

func TestOpen_Hints(t *testing.T) {
	tests := []struct {
		hint   AspectHint
		aspect AspectMode
		want   geometry.Rect
	}{
		{HintProfile, AspectSquare, geometry.Rect{X: 63, Y: 0, W: 375, H: 375}},
		{HintCover, Aspect16x9, geometry.Rect{X: 0, Y: 47, W: 500, H: 281}},
		{"", AspectFree, geometry.Rect{X: 0, Y: 0, W: 500, H: 375}},
	}

	for _, tt := range tests {
		t.Run(string(tt.hint), func(t *testing.T) {
			s := openTestSession(t, 1000, 750, tt.hint)
			if s.Aspect() != tt.aspect {
				t.Errorf("aspect: got %s, want %s", s.Aspect(), tt.aspect)
			}
			if s.Crop() != tt.want {
				t.Errorf("crop: got %v, want %v", s.Crop(), tt.want)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, []byte("not an image"), HintNone, DefaultOptions()); !errors.Is(err, ErrLoad) {
		t.Errorf("garbage: got %v, want ErrLoad", err)
	}
	if _, err := Open(ctx, nil, HintNone, DefaultOptions()); !errors.Is(err, ErrLoad) {
		t.Errorf("empty: got %v, want ErrLoad", err)
	}
	if _, err := Open(ctx, encodePNG(t, 10, 10), "banner", DefaultOptions()); !errors.Is(err, ErrUnknownHint) {
		t.Errorf("bad hint: got %v, want ErrUnknownHint", err)
	}

	opts := DefaultOptions()
	opts.MaxPixels = 100
	_, err := Open(ctx, encodePNG(t, 20, 20), HintNone, opts)
	if !errors.Is(err, ErrLoad) || !errors.Is(err, imgpkg.ErrTooLarge) {
		t.Errorf("too large: got %v, want ErrLoad wrapping ErrTooLarge", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Open(cancelled, encodePNG(t, 10, 10), HintNone, DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v, want context.Canceled", err)
	}
}

func TestOpenSource_Nil(t *testing.T) {
	if _, err := OpenSource(context.Background(), nil, HintNone, DefaultOptions()); !errors.Is(err, ErrLoad) {
		t.Errorf("got %v, want ErrLoad", err)
	}
}

func TestSession_SourceRectScenario(t *testing.T) {
	s := openTestSession(t, 1000, 750, HintNone)
	s.CropEngine().SetCrop(geometry.Rect{X: 50, Y: 50, W: 200, H: 150})

	st := s.State()
	want := geometry.RectF{X: 100, Y: 100, W: 400, H: 300}
	if st.SourceRect != want {
		t.Errorf("SourceRect: got %+v, want %+v", st.SourceRect, want)
	}
	if st.Output != (geometry.Size{W: 400, H: 300}) {
		t.Errorf("Output at 0: got %v, want 400x300", st.Output)
	}

	img, err := s.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("rotation 0: got %dx%d, want 400x300", b.Dx(), b.Dy())
	}

	s.Transform().RotateRight()
	if st := s.State(); st.Output != (geometry.Size{W: 300, H: 400}) {
		t.Errorf("Output at 90: got %v, want 300x400", st.Output)
	}
	img, err = s.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 400 {
		t.Errorf("rotation 90: got %dx%d, want 300x400", b.Dx(), b.Dy())
	}
}

func TestSession_OutputSizeAllRotations(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		crop          geometry.Rect
	}{
		{"even scale", 800, 600, geometry.Rect{X: 10, Y: 20, W: 120, H: 80}},
		{"crop touching a fractional edge", 1010, 300, geometry.Rect{X: 25, Y: 0, W: 475, H: 149}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestSession(t, tt.width, tt.height, HintNone)
			s.CropEngine().SetCrop(tt.crop)

			for i := 0; i < 4; i++ {
				img, err := s.Render()
				if err != nil {
					t.Fatalf("Render failed: %v", err)
				}
				b := img.Bounds()
				want := s.State().Output
				if b.Dx() != want.W || b.Dy() != want.H {
					t.Errorf("rotation %d: rendered %dx%d, state reports %v", s.Transform().Rotation, b.Dx(), b.Dy(), want)
				}
				s.Transform().RotateRight()
			}
		})
	}
}

func TestSession_SaveOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, 1000, 750, HintNone)
	s.CropEngine().SetCrop(geometry.Rect{X: 50, Y: 50, W: 200, H: 150})
	s.Transform().RotateRight()
	if err := s.Pipeline().ApplyPreset("vivid"); err != nil {
		t.Fatal(err)
	}

	data, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 400 {
		t.Errorf("output: got %dx%d, want 300x400", cfg.Width, cfg.Height)
	}
	if !s.Closed() {
		t.Error("session should be closed after Save")
	}

	if _, err := s.Save(ctx); !errors.Is(err, ErrPrecondition) {
		t.Errorf("second Save: got %v, want ErrPrecondition", err)
	}
}

func TestSession_SavePNG(t *testing.T) {
	opts := DefaultOptions()
	opts.Format = imgpkg.FormatPNG
	s, err := Open(context.Background(), encodePNG(t, 200, 100), HintNone, opts)
	if err != nil {
		t.Fatal(err)
	}

	data, err := s.Save(context.Background())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}

func TestSession_Cancel(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, 100, 100, HintNone)

	s.Cancel(ctx)
	if !s.Closed() {
		t.Error("session should be closed after Cancel")
	}
	if _, err := s.Save(ctx); !errors.Is(err, ErrPrecondition) {
		t.Errorf("Save after Cancel: got %v, want ErrPrecondition", err)
	}
	// Cancelling twice is harmless.
	s.Cancel(ctx)
}

func TestSession_Reset(t *testing.T) {
	s := openTestSession(t, 1000, 750, HintProfile)
	opening := s.Crop()

	s.CropEngine().SetAspectMode(Aspect16x9)
	s.Transform().RotateLeft()
	s.Transform().ToggleFlipH()
	if _, err := s.Pipeline().SetAdjustment(KeyBlur, 2); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if s.Crop() != opening || s.Aspect() != AspectSquare {
		t.Errorf("crop: got %v %s, want %v 1:1", s.Crop(), s.Aspect(), opening)
	}
	if !s.Transform().IsIdentity() {
		t.Errorf("transform: got %+v, want identity", *s.Transform())
	}
	if s.Adjustments() != IdentityAdjustments() || s.ActiveFilter() != FilterOriginal {
		t.Errorf("adjustments: got %+v %q", s.Adjustments(), s.ActiveFilter())
	}
}

func TestSession_Preview(t *testing.T) {
	s := openTestSession(t, 1000, 750, HintNone)
	s.Transform().RotateRight()

	img := s.Preview(true, imgpkg.DefaultOverlayStyle())
	if b := img.Bounds(); b.Dx() != 375 || b.Dy() != 500 {
		t.Errorf("rotated preview: got %dx%d, want 375x500", b.Dx(), b.Dy())
	}

	// The preview never ends the session.
	if s.Closed() {
		t.Error("Preview closed the session")
	}
}

func TestSession_PreviewMatchesFilters(t *testing.T) {
	s := openTestSession(t, 200, 100, HintNone)
	if _, err := s.Pipeline().SetAdjustment(KeyGrayscale, 100); err != nil {
		t.Fatal(err)
	}

	img := s.Preview(false, imgpkg.DefaultOverlayStyle())
	c := img.NRGBAAt(10, 50)
	if c.R != c.G || c.G != c.B {
		t.Errorf("grayscale preview pixel not gray: %v", c)
	}
}

func TestSession_PresetThumbnails(t *testing.T) {
	s := openTestSession(t, 400, 300, HintNone)

	thumbs, err := s.PresetThumbnails(context.Background(), 32)
	if err != nil {
		t.Fatalf("PresetThumbnails failed: %v", err)
	}
	if len(thumbs) != len(Presets()) {
		t.Fatalf("got %d thumbnails, want %d", len(thumbs), len(Presets()))
	}
	for name, img := range thumbs {
		if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
			t.Errorf("%s: got %dx%d, want 32x32", name, b.Dx(), b.Dy())
		}
	}
}

func TestSession_State(t *testing.T) {
	s := openTestSession(t, 1000, 750, HintNone)
	if err := s.Pipeline().ApplyPreset("bw"); err != nil {
		t.Fatal(err)
	}
	s.Transform().ToggleFlipV()

	st := s.State()
	if st.ID != s.ID() {
		t.Errorf("ID: got %q, want %q", st.ID, s.ID())
	}
	if st.ActiveFilter != "bw" {
		t.Errorf("ActiveFilter: got %q, want bw", st.ActiveFilter)
	}
	if st.FilterCSS != "contrast(120%) grayscale(100%)" {
		t.Errorf("FilterCSS: got %q", st.FilterCSS)
	}
	if st.TransformCSS != "rotate(0deg) scaleX(1) scaleY(-1)" {
		t.Errorf("TransformCSS: got %q", st.TransformCSS)
	}
	if st.Closed || st.Dragging {
		t.Errorf("unexpected flags: %+v", st)
	}
}

func TestParseAspectHint(t *testing.T) {
	tests := []struct {
		in      string
		want    AspectHint
		wantErr bool
	}{
		{"", HintNone, false},
		{"none", HintNone, false},
		{"Profile", HintProfile, false},
		{"cover", HintCover, false},
		{"banner", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAspectHint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAspectHint(%q): error %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAspectHint(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
