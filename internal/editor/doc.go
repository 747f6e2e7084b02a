// Package editor holds the state of an image editing session and the rules
// that change it.
//
// A Session aggregates four pieces:
//
//   - a CropEngine, which owns the crop rectangle in display space and turns
//     pointer drags (BeginDrag, UpdateDrag, EndDrag) into rectangles that
//     always fit the frame and honour the aspect lock;
//   - a Transform, holding quarter-turn rotation and the two flip flags;
//   - a Pipeline, holding the tonal adjustment vector, the preset registry
//     and the active filter tag;
//   - the decoded source and its display geometry.
//
// Previews are re-derived from this state on every call. Save hands the same
// state to the compositor in package imaging once, encodes the result and
// ends the session.
//
// # Example
//
//	s, err := editor.Open(ctx, data, editor.HintProfile, editor.DefaultOptions())
//	if err != nil {
//	    return err // wraps editor.ErrLoad
//	}
//	_ = s.CropEngine().BeginDrag(editor.HandleBottomRight, editor.Point{X: 300, Y: 300})
//	_, _ = s.CropEngine().UpdateDrag(editor.Point{X: 280, Y: 260})
//	s.CropEngine().EndDrag()
//	s.Transform().RotateRight()
//	_ = s.Pipeline().ApplyPreset("vivid")
//	jpeg, err := s.Save(ctx)
//
// Sessions are not safe for concurrent use. Store serialises access when a
// transport addresses sessions by id from several goroutines.
package editor
