package editor

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// Active filter tags besides preset names.
const (
	FilterOriginal = "original"
	FilterCustom   = "custom"
)

// Adjustments is the tonal adjustment vector of a session.
//
// Brightness, Contrast and Saturate are percentages with 100 as identity.
// Sepia and Grayscale are percentages with 0 as identity. HueRotate is in
// degrees and Blur in display pixels, both with 0 as identity.
type Adjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturate   float64 `json:"saturate"`
	Sepia      float64 `json:"sepia"`
	Grayscale  float64 `json:"grayscale"`
	HueRotate  float64 `json:"hueRotate"`
	Blur       float64 `json:"blur"`
}

// IdentityAdjustments returns the vector that leaves an image unchanged.
func IdentityAdjustments() Adjustments {
	return Adjustments{Brightness: 100, Contrast: 100, Saturate: 100}
}

// AdjustmentKey names one component of Adjustments.
type AdjustmentKey string

const (
	KeyBrightness AdjustmentKey = "brightness"
	KeyContrast   AdjustmentKey = "contrast"
	KeySaturate   AdjustmentKey = "saturate"
	KeySepia      AdjustmentKey = "sepia"
	KeyGrayscale  AdjustmentKey = "grayscale"
	KeyHueRotate  AdjustmentKey = "hueRotate"
	KeyBlur       AdjustmentKey = "blur"
)

// AdjustmentRange describes the valid values of one adjustment.
type AdjustmentRange struct {
	Key      AdjustmentKey      `json:"key"`
	Min      float64            `json:"min"`
	Max      float64            `json:"max"`
	Identity float64            `json:"identity"`
	Filter   imaging.FilterKind `json:"filter"`
}

// adjustmentRanges is in filter order: the order operations appear in a
// filter description.
var adjustmentRanges = []AdjustmentRange{
	{KeyBrightness, 0, 200, 100, imaging.FilterBrightness},
	{KeyContrast, 0, 200, 100, imaging.FilterContrast},
	{KeySaturate, 0, 200, 100, imaging.FilterSaturate},
	{KeySepia, 0, 100, 0, imaging.FilterSepia},
	{KeyGrayscale, 0, 100, 0, imaging.FilterGrayscale},
	{KeyHueRotate, -180, 180, 0, imaging.FilterHueRotate},
	{KeyBlur, 0, 20, 0, imaging.FilterBlur},
}

// AdjustmentRanges lists every adjustment in filter order.
func AdjustmentRanges() []AdjustmentRange {
	return append([]AdjustmentRange(nil), adjustmentRanges...)
}

// ParseAdjustmentKey accepts the JSON key names plus the CSS spellings
// ("hue-rotate", "hue_rotate", "saturation").
func ParseAdjustmentKey(s string) (AdjustmentKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brightness":
		return KeyBrightness, nil
	case "contrast":
		return KeyContrast, nil
	case "saturate", "saturation":
		return KeySaturate, nil
	case "sepia":
		return KeySepia, nil
	case "grayscale", "greyscale":
		return KeyGrayscale, nil
	case "huerotate", "hue-rotate", "hue_rotate", "hue":
		return KeyHueRotate, nil
	case "blur":
		return KeyBlur, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAdjustment, s)
	}
}

func (a *Adjustments) field(key AdjustmentKey) *float64 {
	switch key {
	case KeyBrightness:
		return &a.Brightness
	case KeyContrast:
		return &a.Contrast
	case KeySaturate:
		return &a.Saturate
	case KeySepia:
		return &a.Sepia
	case KeyGrayscale:
		return &a.Grayscale
	case KeyHueRotate:
		return &a.HueRotate
	case KeyBlur:
		return &a.Blur
	}
	return nil
}

// Get returns the value of key.
func (a Adjustments) Get(key AdjustmentKey) (float64, error) {
	f := a.field(key)
	if f == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAdjustment, key)
	}
	return *f, nil
}

// FilterDescription lists the non-identity adjustments as filter operations
// in fixed order: brightness, contrast, saturate, sepia, grayscale,
// hue-rotate, blur.
//
// The live preview and the compositor both render this chain.
func (a Adjustments) FilterDescription() imaging.FilterChain {
	var chain imaging.FilterChain
	for _, r := range adjustmentRanges {
		v := *a.field(r.Key)
		if v == r.Identity {
			continue
		}
		chain = append(chain, imaging.FilterOp{Kind: r.Filter, Amount: v})
	}
	return chain
}

// Preset is a named set of adjustments. Keys not listed keep their identity value.
type Preset struct {
	Name   string                    `json:"name"`
	Label  string                    `json:"label"`
	Values map[AdjustmentKey]float64 `json:"values"`
}

// Adjustments merges the preset over the identity vector.
func (p Preset) Adjustments() Adjustments {
	a := IdentityAdjustments()
	for k, v := range p.Values {
		if f := a.field(k); f != nil {
			*f = v
		}
	}
	return a
}

var presets = []Preset{
	{Name: "original", Label: "Original", Values: map[AdjustmentKey]float64{}},
	{Name: "vivid", Label: "Vivid", Values: map[AdjustmentKey]float64{KeyBrightness: 110, KeyContrast: 115, KeySaturate: 130}},
	{Name: "warm", Label: "Warm", Values: map[AdjustmentKey]float64{KeyBrightness: 105, KeyContrast: 105, KeySaturate: 110, KeySepia: 20}},
	{Name: "cool", Label: "Cool", Values: map[AdjustmentKey]float64{KeyBrightness: 105, KeyContrast: 110, KeySaturate: 90, KeyHueRotate: 15}},
	{Name: "bw", Label: "B&W", Values: map[AdjustmentKey]float64{KeyGrayscale: 100, KeyContrast: 120}},
	{Name: "vintage", Label: "Vintage", Values: map[AdjustmentKey]float64{KeyBrightness: 105, KeyContrast: 90, KeySaturate: 80, KeySepia: 30}},
	{Name: "dramatic", Label: "Dramatic", Values: map[AdjustmentKey]float64{KeyBrightness: 90, KeyContrast: 140, KeySaturate: 120}},
	{Name: "fade", Label: "Fade", Values: map[AdjustmentKey]float64{KeyBrightness: 115, KeyContrast: 85, KeySaturate: 80}},
	{Name: "noir", Label: "Noir", Values: map[AdjustmentKey]float64{KeyGrayscale: 100, KeyContrast: 150, KeyBrightness: 95}},
}

// Presets returns the preset registry in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Pipeline owns a session's adjustment vector and the tag of the filter that
// produced it.
type Pipeline struct {
	values Adjustments
	active string
}

// NewPipeline starts at identity with the "original" tag.
func NewPipeline() *Pipeline {
	return &Pipeline{values: IdentityAdjustments(), active: FilterOriginal}
}

func (p *Pipeline) Values() Adjustments { return p.values }
func (p *Pipeline) ActiveFilter() string { return p.active }

// ApplyPreset replaces the whole vector with the named preset. Unknown names
// leave the pipeline unchanged.
func (p *Pipeline) ApplyPreset(name string) error {
	preset, ok := LookupPreset(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	p.values = preset.Adjustments()
	p.active = preset.Name
	return nil
}

// SetAdjustment clamps value into the key's range, stores it and marks the
// vector as custom. It returns the stored value. NaN resets the key to its
// identity value.
func (p *Pipeline) SetAdjustment(key AdjustmentKey, value float64) (float64, error) {
	f := p.values.field(key)
	if f == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAdjustment, key)
	}
	r := rangeOf(key)
	if math.IsNaN(value) {
		value = r.Identity
	}
	*f = math.Min(math.Max(value, r.Min), r.Max)
	p.active = FilterCustom
	return *f, nil
}

// FilterDescription is the filter chain of the current vector.
func (p *Pipeline) FilterDescription() imaging.FilterChain {
	return p.values.FilterDescription()
}

// Reset restores identity and the "original" tag.
func (p *Pipeline) Reset() {
	p.values = IdentityAdjustments()
	p.active = FilterOriginal
}

func rangeOf(key AdjustmentKey) AdjustmentRange {
	for _, r := range adjustmentRanges {
		if r.Key == key {
			return r
		}
	}
	return AdjustmentRange{}
}
