package editor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// AspectHint preselects a crop ratio when a session opens.
type AspectHint string

const (
	HintNone    AspectHint = "none"
	HintProfile AspectHint = "profile"
	HintCover   AspectHint = "cover"
)

// ParseAspectHint validates a hint. The empty string means none.
func ParseAspectHint(s string) (AspectHint, error) {
	switch AspectHint(strings.ToLower(strings.TrimSpace(s))) {
	case "", HintNone:
		return HintNone, nil
	case HintProfile:
		return HintProfile, nil
	case HintCover:
		return HintCover, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHint, s)
	}
}

// aspect is the mode a hint selects.
func (h AspectHint) aspect() AspectMode {
	switch h {
	case HintProfile:
		return AspectSquare
	case HintCover:
		return Aspect16x9
	}
	return AspectFree
}

// Options configures how sessions load and render images.
type Options struct {
	// MaxDisplay bounds the display geometry. Images are never upscaled.
	MaxDisplay geometry.Size

	// MaxPixels rejects larger sources at load time. Zero disables the limit.
	MaxPixels int

	// Format and JPEGQuality control Save's encoding.
	Format      imaging.Format
	JPEGQuality int

	// ThumbnailSize is the side of preset thumbnails.
	ThumbnailSize int
}

// DefaultOptions returns a 500x400 display box, JPEG output at quality 85
// and a 50 megapixel load limit.
func DefaultOptions() Options {
	return Options{
		MaxDisplay:    geometry.Size{W: 500, H: 400},
		MaxPixels:     50_000_000,
		Format:        imaging.FormatJPEG,
		JPEGQuality:   imaging.DefaultJPEGQuality,
		ThumbnailSize: 96,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxDisplay.Empty() {
		o.MaxDisplay = d.MaxDisplay
	}
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.ThumbnailSize <= 0 {
		o.ThumbnailSize = d.ThumbnailSize
	}
	return o
}

// Session is one editing pass over one image: the source, its display
// geometry, and the crop, transform and adjustment state the user builds up.
//
// A Session is not safe for concurrent use; Store serialises access for
// transports that need it.
type Session struct {
	id      string
	opts    Options
	hint    AspectHint
	source  *imaging.Source
	display geometry.Size
	raster  *image.NRGBA

	crop      *CropEngine
	transform Transform
	pipeline  *Pipeline

	openedAt time.Time
	closed   bool
}

// Open decodes data and starts a session on it.
//
// Decode failures are returned wrapped in ErrLoad and no session is created.
// An unknown hint fails before any decoding happens.
func Open(ctx context.Context, data []byte, hint AspectHint, opts Options) (*Session, error) {
	if _, err := ParseAspectHint(string(hint)); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	start := time.Now()
	src, err := imaging.Decode(ctx, data, opts.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	log.Ctx(ctx).Debug().
		Str("format", src.Format).
		Stringer("natural", src.Size).
		Int("orientation", src.Orientation).
		Dur("took", time.Since(start)).
		Msg("image decoded")

	return OpenSource(ctx, src, hint, opts)
}

// OpenSource starts a session on an already decoded source, such as one
// served from an imaging.SourceCache.
func OpenSource(ctx context.Context, src *imaging.Source, hint AspectHint, opts Options) (*Session, error) {
	h, err := ParseAspectHint(string(hint))
	if err != nil {
		return nil, err
	}
	if src == nil || src.Image == nil || src.Size.Empty() {
		return nil, fmt.Errorf("%w: %w", ErrLoad, imaging.ErrNoSource)
	}
	opts = opts.withDefaults()

	display := geometry.Fit(src.Size, opts.MaxDisplay)
	s := &Session{
		id:       uuid.NewString(),
		opts:     opts,
		hint:     h,
		source:   src,
		display:  display,
		crop:     NewCropEngine(display),
		pipeline: NewPipeline(),
		openedAt: time.Now(),
	}
	s.applyHint()

	log.Ctx(ctx).Info().
		Str("session", s.id).
		Stringer("natural", src.Size).
		Stringer("display", display).
		Str("hint", string(h)).
		Msg("editing session opened")
	return s, nil
}

func (s *Session) applyHint() {
	s.crop.Reset()
	if m := s.hint.aspect(); m != AspectFree {
		s.crop.SetAspectMode(m)
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) Source() *imaging.Source { return s.source }
func (s *Session) Display() geometry.Size { return s.display }
func (s *Session) Hint() AspectHint { return s.hint }
func (s *Session) CropEngine() *CropEngine { return s.crop }
func (s *Session) Transform() *Transform { return &s.transform }
func (s *Session) Pipeline() *Pipeline { return s.pipeline }
func (s *Session) Closed() bool { return s.closed }
func (s *Session) Options() Options { return s.opts }
func (s *Session) ActiveFilter() string { return s.pipeline.ActiveFilter() }
func (s *Session) Adjustments() Adjustments { return s.pipeline.Values() }
func (s *Session) Crop() geometry.Rect { return s.crop.Crop() }
func (s *Session) Aspect() AspectMode { return s.crop.Aspect() }
func (s *Session) Filters() imaging.FilterChain { return s.pipeline.FilterDescription() }

// ResetCrop restores the crop the session opened with: full frame, or the
// hinted ratio centered.
func (s *Session) ResetCrop() {
	s.applyHint()
}

// Reset returns crop, transform and adjustments to their opening state.
func (s *Session) Reset() {
	s.applyHint()
	s.transform.Reset()
	s.pipeline.Reset()
}

// DisplayRaster is the source resampled to display size, computed on first use.
func (s *Session) DisplayRaster() *image.NRGBA {
	if s.raster == nil {
		s.raster = imaging.DisplayRaster(s.source, s.display)
	}
	return s.raster
}

// Preview renders the live preview: the display raster with the current
// filters and transform, plus the crop overlay when showCrop is set.
// It never touches the compositor.
func (s *Session) Preview(showCrop bool, style imaging.OverlayStyle) *image.NRGBA {
	return imaging.RenderPreview(s.DisplayRaster(), imaging.PreviewOptions{
		Crop:     s.crop.Crop(),
		ShowCrop: showCrop,
		Style:    style,
		Rotation: s.transform.Rotation,
		FlipH:    s.transform.FlipH,
		FlipV:    s.transform.FlipV,
		Filters:  s.pipeline.FilterDescription(),
	})
}

// PresetThumbnails renders every preset over a square thumbnail of the
// display raster. A size of zero uses the session's ThumbnailSize.
func (s *Session) PresetThumbnails(ctx context.Context, size int) (map[string]image.Image, error) {
	if size <= 0 {
		size = s.opts.ThumbnailSize
	}
	chains := make(map[string]imaging.FilterChain, len(presets))
	for _, p := range presets {
		chains[p.Name] = p.Adjustments().FilterDescription()
	}
	return imaging.Thumbnails(ctx, s.DisplayRaster(), size, chains)
}

// CompositeOptions gathers the state the compositor needs.
func (s *Session) CompositeOptions() imaging.CompositeOptions {
	return imaging.CompositeOptions{
		Display:  s.display,
		Crop:     s.crop.Crop(),
		Rotation: s.transform.Rotation,
		FlipH:    s.transform.FlipH,
		FlipV:    s.transform.FlipV,
		Filters:  s.pipeline.FilterDescription(),
	}
}

// Render flattens the session without ending it.
func (s *Session) Render() (*image.NRGBA, error) {
	if s.closed || s.source == nil || s.display.Empty() {
		return nil, ErrPrecondition
	}
	return imaging.Composite(s.source, s.CompositeOptions())
}

// Save runs the compositor, encodes the result and ends the session.
// A session can be saved once; later calls return ErrPrecondition.
func (s *Session) Save(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	img, err := s.Render()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, s.opts.Format, s.opts.JPEGQuality); err != nil {
		return nil, err
	}
	s.closed = true

	b := img.Bounds()
	log.Ctx(ctx).Info().
		Str("session", s.id).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("bytes", buf.Len()).
		Dur("took", time.Since(start)).
		Msg("editing session saved")
	return buf.Bytes(), nil
}

// Cancel discards the session without rendering.
func (s *Session) Cancel(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true
	log.Ctx(ctx).Info().
		Str("session", s.id).
		Dur("open_for", time.Since(s.openedAt)).
		Msg("editing session cancelled")
}

// State is a serialisable snapshot of a session.
type State struct {
	ID           string         `json:"id"`
	Natural      geometry.Size  `json:"natural"`
	Display      geometry.Size  `json:"display"`
	Crop         geometry.Rect  `json:"crop"`
	Aspect       AspectMode     `json:"aspect"`
	Dragging     bool           `json:"dragging"`
	Transform    Transform      `json:"transform"`
	Adjustments  Adjustments    `json:"adjustments"`
	ActiveFilter string         `json:"active_filter"`
	SourceRect   geometry.RectF `json:"source_rect"`
	Output       geometry.Size  `json:"output"`
	FilterCSS    string         `json:"filter_css"`
	TransformCSS string         `json:"transform_css"`
	Closed       bool           `json:"closed"`
}

// State snapshots the session, including where the crop lands in source
// space and the size Save would produce.
func (s *Session) State() State {
	crop := s.crop.Crop()
	src := imaging.SourceRect(s.source.Size, s.display, crop)
	return State{
		ID:           s.id,
		Natural:      s.source.Size,
		Display:      s.display,
		Crop:         crop,
		Aspect:       s.crop.Aspect(),
		Dragging:     s.crop.Dragging(),
		Transform:    s.transform,
		Adjustments:  s.pipeline.Values(),
		ActiveFilter: s.pipeline.ActiveFilter(),
		SourceRect:   src,
		Output:       imaging.OutputSize(s.transform.Rotation, imaging.SourceRegion(s.source.Size, s.display, crop).Size()),
		FilterCSS:    s.pipeline.FilterDescription().CSS(),
		TransformCSS: s.transform.CSS(),
		Closed:       s.closed,
	}
}
