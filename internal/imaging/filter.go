package imaging

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
)

// FilterKind names a tonal filter operation. The values match the CSS filter
// function names so a chain can be rendered verbatim by a browser preview.
type FilterKind string

const (
	FilterBrightness FilterKind = "brightness"
	FilterContrast   FilterKind = "contrast"
	FilterSaturate   FilterKind = "saturate"
	FilterSepia      FilterKind = "sepia"
	FilterGrayscale  FilterKind = "grayscale"
	FilterHueRotate  FilterKind = "hue-rotate"
	FilterBlur       FilterKind = "blur"
)

// FilterOp is one step of a filter chain.
//
// Amount units depend on Kind:
//   - brightness, contrast, saturate, sepia, grayscale: percent (100 = 1.0)
//   - hue-rotate: degrees
//   - blur: pixels of standard deviation, in display space
type FilterOp struct {
	Kind   FilterKind `json:"kind"`
	Amount float64    `json:"amount"`
}

// CSS renders the op as a CSS filter function, e.g. "brightness(110%)".
func (op FilterOp) CSS() string {
	v := strconv.FormatFloat(op.Amount, 'f', -1, 64)
	switch op.Kind {
	case FilterHueRotate:
		return string(op.Kind) + "(" + v + "deg)"
	case FilterBlur:
		return string(op.Kind) + "(" + v + "px)"
	default:
		return string(op.Kind) + "(" + v + "%)"
	}
}

// FilterChain is an ordered list of filter operations. Operations are applied
// in order, each one consuming the clamped output of the previous one.
type FilterChain []FilterOp

// CSS renders the chain as a CSS filter property value. An empty chain
// renders as "none".
func (c FilterChain) CSS() string {
	if len(c) == 0 {
		return "none"
	}
	parts := make([]string, len(c))
	for i, op := range c {
		parts[i] = op.CSS()
	}
	return strings.Join(parts, " ")
}

// BlurRadius returns the largest blur amount in the chain.
func (c FilterChain) BlurRadius() float64 {
	var r float64
	for _, op := range c {
		if op.Kind == FilterBlur && op.Amount > r {
			r = op.Amount
		}
	}
	return r
}

// ApplyFilters renders chain over img.
//
// pxScale converts display-space pixel amounts (blur) into the pixel grid of
// img; pass 1 when img is the display raster and the display-to-source scale
// when img is a source-resolution crop.
//
// Consecutive colour operations are fused into a single per-pixel pass.
// Colour math runs on straight (un-premultiplied) values in [0,1] and every
// step is clamped, matching how browsers evaluate CSS filter lists.
func ApplyFilters(img image.Image, chain FilterChain, pxScale float64) image.Image {
	if len(chain) == 0 {
		return img
	}

	out := img
	var pending []pixelFunc
	flush := func() {
		if len(pending) == 0 {
			return
		}
		fns := pending
		out = adjust.Apply(out, func(c color.RGBA) color.RGBA {
			return applyPixel(c, fns)
		})
		pending = nil
	}

	for _, op := range chain {
		if op.Kind == FilterBlur {
			flush()
			if sigma := op.Amount * pxScale; sigma > 0 {
				out = imaging.Blur(out, sigma)
			}
			continue
		}
		if fn := pixelFuncFor(op); fn != nil {
			pending = append(pending, fn)
		}
	}
	flush()

	return out
}

// pixelFunc maps straight-alpha RGB in [0,1].
type pixelFunc func(r, g, b float64) (float64, float64, float64)

func applyPixel(c color.RGBA, fns []pixelFunc) color.RGBA {
	if c.A == 0 {
		return c
	}
	a := float64(c.A) / 255
	r := float64(c.R) / 255 / a
	g := float64(c.G) / 255 / a
	b := float64(c.B) / 255 / a
	for _, fn := range fns {
		r, g, b = fn(r, g, b)
		r, g, b = clamp01(r), clamp01(g), clamp01(b)
	}
	return color.RGBA{
		R: uint8(math.Round(r * a * 255)),
		G: uint8(math.Round(g * a * 255)),
		B: uint8(math.Round(b * a * 255)),
		A: c.A,
	}
}

func pixelFuncFor(op FilterOp) pixelFunc {
	amount := op.Amount / 100
	switch op.Kind {
	case FilterBrightness:
		return func(r, g, b float64) (float64, float64, float64) {
			return r * amount, g * amount, b * amount
		}
	case FilterContrast:
		return func(r, g, b float64) (float64, float64, float64) {
			return (r-0.5)*amount + 0.5, (g-0.5)*amount + 0.5, (b-0.5)*amount + 0.5
		}
	case FilterSaturate:
		return matrixFunc(saturateMatrix(amount))
	case FilterSepia:
		return matrixFunc(sepiaMatrix(math.Min(amount, 1)))
	case FilterGrayscale:
		return matrixFunc(grayscaleMatrix(math.Min(amount, 1)))
	case FilterHueRotate:
		return matrixFunc(hueRotateMatrix(op.Amount))
	default:
		return nil
	}
}

type colorMatrix [9]float64

func matrixFunc(m colorMatrix) pixelFunc {
	return func(r, g, b float64) (float64, float64, float64) {
		return m[0]*r + m[1]*g + m[2]*b,
			m[3]*r + m[4]*g + m[5]*b,
			m[6]*r + m[7]*g + m[8]*b
	}
}

// saturateMatrix follows the Filter Effects saturate definition.
func saturateMatrix(s float64) colorMatrix {
	return colorMatrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	}
}

func sepiaMatrix(a float64) colorMatrix {
	k := 1 - a
	return colorMatrix{
		0.393 + 0.607*k, 0.769 - 0.769*k, 0.189 - 0.189*k,
		0.349 - 0.349*k, 0.686 + 0.314*k, 0.168 - 0.168*k,
		0.272 - 0.272*k, 0.534 - 0.534*k, 0.131 + 0.869*k,
	}
}

func grayscaleMatrix(a float64) colorMatrix {
	k := 1 - a
	return colorMatrix{
		0.2126 + 0.7874*k, 0.7152 - 0.7152*k, 0.0722 - 0.0722*k,
		0.2126 - 0.2126*k, 0.7152 + 0.2848*k, 0.0722 - 0.0722*k,
		0.2126 - 0.2126*k, 0.7152 - 0.7152*k, 0.0722 + 0.9278*k,
	}
}

// hueRotateMatrix follows the Filter Effects hue-rotate definition, a
// rotation about the luminance axis rather than an HSV hue shift.
func hueRotateMatrix(deg float64) colorMatrix {
	rad := deg * math.Pi / 180
	c, sn := math.Cos(rad), math.Sin(rad)
	return colorMatrix{
		0.213 + c*0.787 - sn*0.213, 0.715 - c*0.715 - sn*0.715, 0.072 - c*0.072 + sn*0.928,
		0.213 - c*0.213 + sn*0.143, 0.715 + c*0.285 + sn*0.140, 0.072 - c*0.072 - sn*0.283,
		0.213 - c*0.213 - sn*0.787, 0.715 - c*0.715 + sn*0.715, 0.072 + c*0.928 + sn*0.072,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
