package editor

import "fmt"

// Transform is the whole-frame orientation of a session: a clockwise rotation
// in quarter turns and two independent mirror flags.
type Transform struct {
	Rotation int  `json:"rotation"`
	FlipH    bool `json:"flip_h"`
	FlipV    bool `json:"flip_v"`
}

// RotateLeft turns the frame 90° counter-clockwise.
func (t *Transform) RotateLeft() {
	t.Rotation = (t.Rotation - 90 + 360) % 360
}

// RotateRight turns the frame 90° clockwise.
func (t *Transform) RotateRight() {
	t.Rotation = (t.Rotation + 90) % 360
}

func (t *Transform) ToggleFlipH() { t.FlipH = !t.FlipH }
func (t *Transform) ToggleFlipV() { t.FlipV = !t.FlipV }

// Reset clears rotation and both flips.
func (t *Transform) Reset() {
	*t = Transform{}
}

// IsIdentity reports whether the transform leaves the frame unchanged.
func (t Transform) IsIdentity() bool {
	return t == Transform{}
}

// CSS renders the transform for a browser preview.
func (t Transform) CSS() string {
	sx, sy := 1, 1
	if t.FlipH {
		sx = -1
	}
	if t.FlipV {
		sy = -1
	}
	return fmt.Sprintf("rotate(%ddeg) scaleX(%d) scaleY(%d)", t.Rotation, sx, sy)
}
