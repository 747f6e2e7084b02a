package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
)

// ErrNoSource is returned when compositing without a decoded source or a
// computed display geometry.
var ErrNoSource = errors.New("no decoded source or display geometry")

// CompositeOptions describes one flatten of a source image.
type CompositeOptions struct {
	// Display is the display-space size the crop rectangle refers to.
	Display geometry.Size

	// Crop is the crop rectangle in display space.
	Crop geometry.Rect

	// Rotation is the clockwise rotation in degrees: 0, 90, 180 or 270.
	Rotation int

	// FlipH and FlipV mirror the crop before it is rotated.
	FlipH bool
	FlipV bool

	// Filters are applied to the source pixels before they are drawn.
	Filters FilterChain
}

// SourceRect maps a display-space crop onto the source pixel grid.
func SourceRect(natural, display geometry.Size, crop geometry.Rect) geometry.RectF {
	sx, sy := geometry.ScaleFactors(natural, display)
	return crop.Scale(sx, sy)
}

// SourceRegion is the whole-pixel source area a display-space crop covers.
// Edges are rounded rather than the extent, so the region never reaches
// past the source, and the result is limited to natural.
func SourceRegion(natural, display geometry.Size, crop geometry.Rect) geometry.Rect {
	f := SourceRect(natural, display, crop)
	x0 := geometry.Clamp(int(math.Round(f.X)), 0, natural.W)
	y0 := geometry.Clamp(int(math.Round(f.Y)), 0, natural.H)
	x1 := geometry.Clamp(int(math.Round(f.X+f.W)), x0, natural.W)
	y1 := geometry.Clamp(int(math.Round(f.Y+f.H)), y0, natural.H)
	return geometry.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// OutputSize returns the canvas size for a source region of size src drawn
// at the given rotation. Quarter turns swap the dimensions.
func OutputSize(rotation int, src geometry.Size) geometry.Size {
	if rotation == 90 || rotation == 270 {
		return geometry.Size{W: src.H, H: src.W}
	}
	return src
}

// Composite flattens crop, filters, flip and rotation into one raster at
// source resolution.
//
// The algorithm:
//  1. Scale the display-space crop into source space (SourceRegion).
//  2. Cut the region out of the source, with a margin when the chain blurs so
//     edge pixels are blurred against their real neighbours.
//  3. Apply the filter chain to the region (a pre-draw pass).
//  4. Mirror (FlipH, FlipV), then rotate clockwise by Rotation.
//
// Step 4 matches drawing the region centered on a canvas after translating
// to the canvas center, rotating, and scaling by (-1,1) / (1,-1).
func Composite(src *Source, opts CompositeOptions) (*image.NRGBA, error) {
	if src == nil || src.Image == nil || src.Size.Empty() || opts.Display.Empty() {
		return nil, ErrNoSource
	}
	switch opts.Rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("unsupported rotation %d", opts.Rotation)
	}

	sx, sy := geometry.ScaleFactors(src.Size, opts.Display)
	bounds := src.Image.Bounds()
	region := SourceRegion(src.Size, opts.Display, opts.Crop)
	rect := image.Rect(region.X, region.Y, region.Right(), region.Bottom()).
		Add(bounds.Min).
		Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("crop %v maps outside the source image", opts.Crop)
	}

	pxScale := (sx + sy) / 2
	pad := int(math.Ceil(3 * opts.Filters.BlurRadius() * pxScale))
	outer := rect.Inset(-pad).Intersect(bounds)

	var out image.Image = imaging.Crop(src.Image, outer)
	if len(opts.Filters) > 0 {
		out = ApplyFilters(out, opts.Filters, pxScale)
	}
	cropped := imaging.Crop(out, rect.Sub(outer.Min))

	return Orient(cropped, opts.Rotation, opts.FlipH, opts.FlipV), nil
}

// Orient mirrors img and then rotates it clockwise by rotation degrees.
func Orient(img image.Image, rotation int, flipH, flipV bool) *image.NRGBA {
	out := imaging.Clone(img)
	if flipH {
		out = imaging.FlipH(out)
	}
	if flipV {
		out = imaging.FlipV(out)
	}
	// imaging rotates counter-clockwise.
	switch rotation {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}
	return out
}
