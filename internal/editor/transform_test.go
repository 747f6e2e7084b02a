package editor

import "testing"

func TestTransform_RotateRightCycle(t *testing.T) {
	var tr Transform
	want := []int{90, 180, 270, 0}
	for i, w := range want {
		tr.RotateRight()
		if tr.Rotation != w {
			t.Errorf("after %d turns: got %d, want %d", i+1, tr.Rotation, w)
		}
	}
}

func TestTransform_RotateLeftCycle(t *testing.T) {
	var tr Transform
	want := []int{270, 180, 90, 0}
	for i, w := range want {
		tr.RotateLeft()
		if tr.Rotation != w {
			t.Errorf("after %d turns: got %d, want %d", i+1, tr.Rotation, w)
		}
	}
}

func TestTransform_RotateClosure(t *testing.T) {
	for _, start := range []int{0, 90, 180, 270} {
		tr := Transform{Rotation: start}
		for i := 0; i < 4; i++ {
			tr.RotateRight()
		}
		if tr.Rotation != start {
			t.Errorf("4x RotateRight from %d: got %d", start, tr.Rotation)
		}

		tr.RotateLeft()
		tr.RotateRight()
		if tr.Rotation != start {
			t.Errorf("RotateLeft+RotateRight from %d: got %d", start, tr.Rotation)
		}
	}
}

func TestTransform_FlipsAreIndependent(t *testing.T) {
	var tr Transform

	tr.ToggleFlipH()
	if !tr.FlipH || tr.FlipV {
		t.Errorf("after ToggleFlipH: got %+v", tr)
	}
	tr.ToggleFlipV()
	if !tr.FlipH || !tr.FlipV {
		t.Errorf("after ToggleFlipV: got %+v", tr)
	}
	tr.ToggleFlipH()
	tr.ToggleFlipV()
	if tr.FlipH || tr.FlipV {
		t.Errorf("double toggles should restore flips: got %+v", tr)
	}
}

func TestTransform_Reset(t *testing.T) {
	tr := Transform{Rotation: 270, FlipH: true, FlipV: true}
	tr.Reset()
	if !tr.IsIdentity() {
		t.Errorf("Reset: got %+v, want identity", tr)
	}
}

func TestTransform_CSS(t *testing.T) {
	tests := []struct {
		tr   Transform
		want string
	}{
		{Transform{}, "rotate(0deg) scaleX(1) scaleY(1)"},
		{Transform{Rotation: 90, FlipH: true}, "rotate(90deg) scaleX(-1) scaleY(1)"},
		{Transform{Rotation: 270, FlipV: true}, "rotate(270deg) scaleX(1) scaleY(-1)"},
	}

	for _, tt := range tests {
		if got := tt.tr.CSS(); got != tt.want {
			t.Errorf("CSS(%+v): got %q, want %q", tt.tr, got, tt.want)
		}
	}
}
