package editor

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

func TestNewPipeline_Identity(t *testing.T) {
	p := NewPipeline()

	if p.Values() != IdentityAdjustments() {
		t.Errorf("Values: got %+v, want identity", p.Values())
	}
	if p.ActiveFilter() != FilterOriginal {
		t.Errorf("ActiveFilter: got %q, want %q", p.ActiveFilter(), FilterOriginal)
	}
	if len(p.FilterDescription()) != 0 {
		t.Errorf("FilterDescription: got %v, want empty", p.FilterDescription())
	}
	if css := p.FilterDescription().CSS(); css != "none" {
		t.Errorf("CSS: got %q, want none", css)
	}
}

func TestApplyPreset_OriginalIsEmpty(t *testing.T) {
	p := NewPipeline()
	if err := p.ApplyPreset("dramatic"); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyPreset("original"); err != nil {
		t.Fatal(err)
	}

	if got := p.FilterDescription(); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if p.ActiveFilter() != "original" {
		t.Errorf("ActiveFilter: got %q, want original", p.ActiveFilter())
	}
}

func TestApplyPreset_Values(t *testing.T) {
	tests := []struct {
		name string
		want imaging.FilterChain
	}{
		{"vivid", imaging.FilterChain{
			{Kind: imaging.FilterBrightness, Amount: 110},
			{Kind: imaging.FilterContrast, Amount: 115},
			{Kind: imaging.FilterSaturate, Amount: 130},
		}},
		{"warm", imaging.FilterChain{
			{Kind: imaging.FilterBrightness, Amount: 105},
			{Kind: imaging.FilterContrast, Amount: 105},
			{Kind: imaging.FilterSaturate, Amount: 110},
			{Kind: imaging.FilterSepia, Amount: 20},
		}},
		{"cool", imaging.FilterChain{
			{Kind: imaging.FilterBrightness, Amount: 105},
			{Kind: imaging.FilterContrast, Amount: 110},
			{Kind: imaging.FilterSaturate, Amount: 90},
			{Kind: imaging.FilterHueRotate, Amount: 15},
		}},
		{"bw", imaging.FilterChain{
			{Kind: imaging.FilterContrast, Amount: 120},
			{Kind: imaging.FilterGrayscale, Amount: 100},
		}},
		{"noir", imaging.FilterChain{
			{Kind: imaging.FilterBrightness, Amount: 95},
			{Kind: imaging.FilterContrast, Amount: 150},
			{Kind: imaging.FilterGrayscale, Amount: 100},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline()
			if err := p.ApplyPreset(tt.name); err != nil {
				t.Fatalf("ApplyPreset failed: %v", err)
			}
			got := p.FilterDescription()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("op %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			if p.ActiveFilter() != tt.name {
				t.Errorf("ActiveFilter: got %q, want %q", p.ActiveFilter(), tt.name)
			}
		})
	}
}

func TestApplyPreset_OverwritesWholeVector(t *testing.T) {
	p := NewPipeline()
	if _, err := p.SetAdjustment(KeyBlur, 4); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyPreset("vivid"); err != nil {
		t.Fatal(err)
	}
	if p.Values().Blur != 0 {
		t.Errorf("Blur: got %v, want 0 after preset", p.Values().Blur)
	}
}

func TestApplyPreset_Unknown(t *testing.T) {
	p := NewPipeline()
	if err := p.ApplyPreset("warm"); err != nil {
		t.Fatal(err)
	}
	before := p.Values()

	err := p.ApplyPreset("sunset")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("got %v, want ErrUnknownPreset", err)
	}
	if p.Values() != before || p.ActiveFilter() != "warm" {
		t.Errorf("unknown preset changed state: %+v %q", p.Values(), p.ActiveFilter())
	}
}

func TestSetAdjustment_MarksCustom(t *testing.T) {
	for _, preset := range Presets() {
		t.Run(preset.Name, func(t *testing.T) {
			p := NewPipeline()
			if err := p.ApplyPreset(preset.Name); err != nil {
				t.Fatal(err)
			}
			if _, err := p.SetAdjustment(KeySepia, 10); err != nil {
				t.Fatal(err)
			}
			if p.ActiveFilter() != FilterCustom {
				t.Errorf("ActiveFilter: got %q, want %q", p.ActiveFilter(), FilterCustom)
			}
		})
	}
}

func TestSetAdjustment_Clamps(t *testing.T) {
	tests := []struct {
		key   AdjustmentKey
		value float64
		want  float64
	}{
		{KeyBrightness, 250, 200},
		{KeyBrightness, -10, 0},
		{KeyContrast, 120, 120},
		{KeySaturate, 1e9, 200},
		{KeySepia, 150, 100},
		{KeyGrayscale, -1, 0},
		{KeyHueRotate, 400, 180},
		{KeyHueRotate, -400, -180},
		{KeyBlur, -3, 0},
		{KeyBlur, 50, 20},
		{KeyBrightness, math.NaN(), 100},
		{KeySepia, math.Inf(1), 100},
	}

	for _, tt := range tests {
		p := NewPipeline()
		got, err := p.SetAdjustment(tt.key, tt.value)
		if err != nil {
			t.Fatalf("SetAdjustment(%s, %v) failed: %v", tt.key, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("SetAdjustment(%s, %v): got %v, want %v", tt.key, tt.value, got, tt.want)
		}
		if stored, _ := p.Values().Get(tt.key); stored != tt.want {
			t.Errorf("stored %s: got %v, want %v", tt.key, stored, tt.want)
		}
	}
}

func TestSetAdjustment_UnknownKey(t *testing.T) {
	p := NewPipeline()
	if _, err := p.SetAdjustment("exposure", 1); !errors.Is(err, ErrUnknownAdjustment) {
		t.Errorf("got %v, want ErrUnknownAdjustment", err)
	}
	if p.ActiveFilter() != FilterOriginal {
		t.Errorf("ActiveFilter changed to %q", p.ActiveFilter())
	}
}

func TestFilterDescription_Order(t *testing.T) {
	p := NewPipeline()
	// Set in reverse order; the description order is fixed.
	for _, kv := range []struct {
		k AdjustmentKey
		v float64
	}{
		{KeyBlur, 2},
		{KeyHueRotate, -30},
		{KeyGrayscale, 50},
		{KeySepia, 40},
		{KeySaturate, 80},
		{KeyContrast, 90},
		{KeyBrightness, 120},
	} {
		if _, err := p.SetAdjustment(kv.k, kv.v); err != nil {
			t.Fatal(err)
		}
	}

	want := []imaging.FilterKind{
		imaging.FilterBrightness,
		imaging.FilterContrast,
		imaging.FilterSaturate,
		imaging.FilterSepia,
		imaging.FilterGrayscale,
		imaging.FilterHueRotate,
		imaging.FilterBlur,
	}
	got := p.FilterDescription()
	if len(got) != len(want) {
		t.Fatalf("got %d ops, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Kind != want[i] {
			t.Errorf("op %d: got %s, want %s", i, got[i].Kind, want[i])
		}
	}

	wantCSS := "brightness(120%) contrast(90%) saturate(80%) sepia(40%) grayscale(50%) hue-rotate(-30deg) blur(2px)"
	if css := got.CSS(); css != wantCSS {
		t.Errorf("CSS: got %q, want %q", css, wantCSS)
	}
}

func TestFilterDescription_OmitsIdentity(t *testing.T) {
	p := NewPipeline()
	if _, err := p.SetAdjustment(KeyBrightness, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SetAdjustment(KeySepia, 0); err != nil {
		t.Fatal(err)
	}
	if got := p.FilterDescription(); len(got) != 0 {
		t.Errorf("identity values should be omitted: got %v", got)
	}
	// Still custom: a manual edit happened.
	if p.ActiveFilter() != FilterCustom {
		t.Errorf("ActiveFilter: got %q, want custom", p.ActiveFilter())
	}
}

func TestPipeline_Reset(t *testing.T) {
	p := NewPipeline()
	if err := p.ApplyPreset("noir"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SetAdjustment(KeyBlur, 3); err != nil {
		t.Fatal(err)
	}

	p.Reset()

	if p.Values() != IdentityAdjustments() {
		t.Errorf("Values: got %+v, want identity", p.Values())
	}
	if p.ActiveFilter() != FilterOriginal {
		t.Errorf("ActiveFilter: got %q, want original", p.ActiveFilter())
	}
}

func TestPresets_Registry(t *testing.T) {
	names := []string{"original", "vivid", "warm", "cool", "bw", "vintage", "dramatic", "fade", "noir"}
	presets := Presets()
	if len(presets) != len(names) {
		t.Fatalf("got %d presets, want %d", len(presets), len(names))
	}
	for i, name := range names {
		if presets[i].Name != name {
			t.Errorf("preset %d: got %q, want %q", i, presets[i].Name, name)
		}
		if _, ok := LookupPreset(name); !ok {
			t.Errorf("LookupPreset(%q) failed", name)
		}
	}

	// Presets returns a copy.
	presets[0].Name = "changed"
	if p, _ := LookupPreset("original"); p.Name != "original" {
		t.Error("registry was modified through Presets()")
	}
}

func TestParseAdjustmentKey(t *testing.T) {
	tests := []struct {
		in   string
		want AdjustmentKey
	}{
		{"brightness", KeyBrightness},
		{"Contrast", KeyContrast},
		{"saturation", KeySaturate},
		{"sepia", KeySepia},
		{"greyscale", KeyGrayscale},
		{"hueRotate", KeyHueRotate},
		{"hue-rotate", KeyHueRotate},
		{"hue_rotate", KeyHueRotate},
		{"blur", KeyBlur},
	}

	for _, tt := range tests {
		got, err := ParseAdjustmentKey(tt.in)
		if err != nil {
			t.Errorf("ParseAdjustmentKey(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAdjustmentKey(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseAdjustmentKey("vibrance"); !errors.Is(err, ErrUnknownAdjustment) {
		t.Errorf("got %v, want ErrUnknownAdjustment", err)
	}
}
