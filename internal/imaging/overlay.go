package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
)

// OverlayStyle controls how the crop selection is drawn over a preview.
type OverlayStyle struct {
	// Shade darkens everything outside the crop.
	Shade color.NRGBA

	// Grid is the colour of the rule-of-thirds lines and the crop border.
	Grid color.NRGBA

	// Handle is the colour of the corner handles.
	Handle color.NRGBA

	// HandleSize is the side of each corner handle in pixels.
	HandleSize int
}

// DefaultOverlayStyle returns the styling used by the browser editor:
// a 50% black shade, translucent white guides and white corner handles.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		Shade:      color.NRGBA{0, 0, 0, 128},
		Grid:       color.NRGBA{255, 255, 255, 160},
		Handle:     color.NRGBA{255, 255, 255, 255},
		HandleSize: 10,
	}
}

// ParseOverlayStyle builds a style from hex colours, keeping the default for
// any empty or invalid value.
func ParseOverlayStyle(shadeHex, gridHex string) OverlayStyle {
	style := DefaultOverlayStyle()
	if c, err := parseHexColor(shadeHex); err == nil {
		style.Shade = c
	}
	if c, err := parseHexColor(gridHex); err == nil {
		style.Grid = c
	}
	return style
}

// CropOverlay draws the crop selection on top of img: the area outside crop
// is shaded, the crop gets a border and a rule-of-thirds grid, and square
// handles mark its corners.
//
// crop is in the pixel space of img and is clamped to its bounds.
func CropOverlay(img image.Image, crop geometry.Rect, style OverlayStyle) *image.NRGBA {
	b := img.Bounds()
	frame := geometry.Size{W: b.Dx(), H: b.Dy()}
	crop = crop.ClampTo(frame, geometry.Size{W: 1, H: 1})

	result := imaging.Clone(img)

	// Shade the four bands around the selection.
	shade := []image.Rectangle{
		image.Rect(0, 0, frame.W, crop.Y),
		image.Rect(0, crop.Bottom(), frame.W, frame.H),
		image.Rect(0, crop.Y, crop.X, crop.Bottom()),
		image.Rect(crop.Right(), crop.Y, frame.W, crop.Bottom()),
	}
	for _, r := range shade {
		result = fillOver(result, r, style.Shade)
	}

	// Border.
	result = fillOver(result, image.Rect(crop.X, crop.Y, crop.Right(), crop.Y+1), style.Grid)
	result = fillOver(result, image.Rect(crop.X, crop.Bottom()-1, crop.Right(), crop.Bottom()), style.Grid)
	result = fillOver(result, image.Rect(crop.X, crop.Y, crop.X+1, crop.Bottom()), style.Grid)
	result = fillOver(result, image.Rect(crop.Right()-1, crop.Y, crop.Right(), crop.Bottom()), style.Grid)

	// Thirds.
	for i := 1; i <= 2; i++ {
		x := crop.X + crop.W*i/3
		y := crop.Y + crop.H*i/3
		result = fillOver(result, image.Rect(x, crop.Y, x+1, crop.Bottom()), style.Grid)
		result = fillOver(result, image.Rect(crop.X, y, crop.Right(), y+1), style.Grid)
	}

	if style.HandleSize > 0 {
		s := style.HandleSize
		handle := imaging.New(s, s, style.Handle)
		corners := []image.Point{
			{crop.X - s/2, crop.Y - s/2},
			{crop.Right() - s/2, crop.Y - s/2},
			{crop.X - s/2, crop.Bottom() - s/2},
			{crop.Right() - s/2, crop.Bottom() - s/2},
		}
		for _, p := range corners {
			result = imaging.Paste(result, handle, p)
		}
	}

	return result
}

// fillOver alpha-blends a solid rectangle of colour c onto img.
func fillOver(img *image.NRGBA, r image.Rectangle, c color.NRGBA) *image.NRGBA {
	r = r.Intersect(img.Bounds())
	if r.Empty() || c.A == 0 {
		return img
	}
	patch := imaging.New(r.Dx(), r.Dy(), color.NRGBA{c.R, c.G, c.B, 255})
	return imaging.Overlay(img, patch, r.Min, float64(c.A)/255)
}

// parseHexColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA". The '#' is optional.
func parseHexColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimPrefix(hex, "#")

	a := uint8(255)
	switch len(hex) {
	case 3, 6:
	case 8:
		v, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		a = uint8(v)
		hex = hex[:6]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}
