package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/geometry"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// maxThumbnailSize bounds editor_filter_previews.
const maxThumbnailSize = 512

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "editor_open", "editor_rotate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler unmarshals its arguments, applies defaults for optional
// parameters and runs against the addressed session while holding its lock.
// Most handlers return the session state after the change.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	switch name {
	// Session lifecycle
	case "editor_open":
		return s.handleOpen(ctx, args)
	case "editor_state":
		return s.sessionTool(args, func(*editor.Session) error { return nil })
	case "editor_save":
		return s.handleSave(ctx, args)
	case "editor_cancel":
		return s.handleCancel(ctx, args)
	case "editor_reset":
		return s.sessionTool(args, func(sess *editor.Session) error {
			sess.Reset()
			return nil
		})

	// Crop
	case "editor_begin_drag":
		return s.handleBeginDrag(args)
	case "editor_update_drag":
		return s.handleUpdateDrag(args)
	case "editor_end_drag":
		return s.sessionTool(args, func(sess *editor.Session) error {
			sess.CropEngine().EndDrag()
			return nil
		})
	case "editor_set_crop":
		return s.handleSetCrop(args)
	case "editor_set_aspect":
		return s.handleSetAspect(args)
	case "editor_reset_crop":
		return s.sessionTool(args, func(sess *editor.Session) error {
			sess.ResetCrop()
			return nil
		})

	// Transform
	case "editor_rotate":
		return s.handleRotate(args)
	case "editor_flip":
		return s.handleFlip(args)
	case "editor_reset_transform":
		return s.sessionTool(args, func(sess *editor.Session) error {
			sess.Transform().Reset()
			return nil
		})

	// Adjustments
	case "editor_list_presets":
		return listPresets(), nil
	case "editor_apply_preset":
		return s.handleApplyPreset(args)
	case "editor_set_adjustment":
		return s.handleSetAdjustment(args)
	case "editor_reset_adjustments":
		return s.sessionTool(args, func(sess *editor.Session) error {
			sess.Pipeline().Reset()
			return nil
		})

	// Rendering
	case "editor_preview":
		return s.handlePreview(args)
	case "editor_filter_previews":
		return s.handleFilterPreviews(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// sessionTool runs fn on the session named in args and returns its state.
func (s *Server) sessionTool(args json.RawMessage, fn func(*editor.Session) error) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withState(a.SessionID, fn)
}

func (s *Server) withState(id string, fn func(*editor.Session) error) (editor.State, error) {
	var st editor.State
	err := s.sessions.With(id, func(sess *editor.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		st = sess.State()
		return nil
	})
	return st, err
}

// === Session Lifecycle Handlers ===

type openArgs struct {
	Path    string `json:"path"`
	DataURI string `json:"data_uri"`
	Base64  string `json:"base64"`
	Hint    string `json:"hint"`
	Format  string `json:"format"`
}

func (s *Server) handleOpen(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a openArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	hint, err := editor.ParseAspectHint(a.Hint)
	if err != nil {
		return nil, err
	}
	opts := s.opts
	if a.Format != "" {
		if opts.Format, err = imaging.ParseFormat(a.Format); err != nil {
			return nil, err
		}
	}

	given := 0
	for _, v := range []string{a.Path, a.DataURI, a.Base64} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return nil, errors.New("provide exactly one of path, data_uri or base64")
	}

	var sess *editor.Session
	switch {
	case a.Path != "":
		src, err := s.cache.Load(ctx, a.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", editor.ErrLoad, err)
		}
		sess, err = editor.OpenSource(ctx, src, hint, opts)
		if err != nil {
			return nil, err
		}
	case a.DataURI != "":
		data, err := imaging.ParseDataURI(a.DataURI)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", editor.ErrLoad, err)
		}
		if sess, err = editor.Open(ctx, data, hint, opts); err != nil {
			return nil, err
		}
	default:
		data, err := base64.StdEncoding.DecodeString(a.Base64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %w", editor.ErrLoad, err)
		}
		if sess, err = editor.Open(ctx, data, hint, opts); err != nil {
			return nil, err
		}
	}

	st := sess.State()
	if a.Path != "" {
		s.trackSource(sess.ID(), a.Path)
	}
	if _, err := s.sessions.Add(sess); err != nil {
		if a.Path != "" {
			s.releaseSource(sess)
		}
		return nil, err
	}
	return st, nil
}

type saveArgs struct {
	SessionID  string `json:"session_id"`
	OutputPath string `json:"output_path"`
}

type saveResult struct {
	SessionID   string `json:"session_id"`
	Path        string `json:"path,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Bytes       int    `json:"bytes"`
	MimeType    string `json:"mime_type"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

func (s *Server) handleSave(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a saveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	// Saving ends the session, so refuse early when the write cannot succeed.
	if a.OutputPath != "" {
		if fi, err := os.Stat(filepath.Dir(a.OutputPath)); err != nil || !fi.IsDir() {
			return nil, fmt.Errorf("output directory does not exist: %s", filepath.Dir(a.OutputPath))
		}
	}

	var res saveResult
	err := s.sessions.With(a.SessionID, func(sess *editor.Session) error {
		out := sess.State().Output
		data, err := sess.Save(ctx)
		if err != nil {
			return err
		}
		res = saveResult{
			SessionID: sess.ID(),
			Width:     out.W,
			Height:    out.H,
			Bytes:     len(data),
			MimeType:  sess.Options().Format.MimeType(),
		}
		if a.OutputPath == "" {
			res.ImageBase64 = base64.StdEncoding.EncodeToString(data)
			return nil
		}
		if err := os.WriteFile(a.OutputPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		res.Path = a.OutputPath
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Server) handleCancel(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	err := s.sessions.With(a.SessionID, func(sess *editor.Session) error {
		sess.Cancel(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session_id": a.SessionID,
		"cancelled":  true,
	}, nil
}

// === Crop Handlers ===

type beginDragArgs struct {
	SessionID string  `json:"session_id"`
	Handle    string  `json:"handle"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (s *Server) handleBeginDrag(args json.RawMessage) (interface{}, error) {
	var a beginDragArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	h, err := editor.ParseHandle(a.Handle)
	if err != nil {
		return nil, err
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		return sess.CropEngine().BeginDrag(h, editor.Point{X: a.X, Y: a.Y})
	})
}

type updateDragArgs struct {
	SessionID string  `json:"session_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (s *Server) handleUpdateDrag(args json.RawMessage) (interface{}, error) {
	var a updateDragArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		_, err := sess.CropEngine().UpdateDrag(editor.Point{X: a.X, Y: a.Y})
		return err
	})
}

type setCropArgs struct {
	SessionID string `json:"session_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func (s *Server) handleSetCrop(args json.RawMessage) (interface{}, error) {
	var a setCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		sess.CropEngine().SetCrop(geometry.Rect{X: a.X, Y: a.Y, W: a.Width, H: a.Height})
		return nil
	})
}

type setAspectArgs struct {
	SessionID string `json:"session_id"`
	Aspect    string `json:"aspect"`
}

func (s *Server) handleSetAspect(args json.RawMessage) (interface{}, error) {
	var a setAspectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	m, err := editor.ParseAspectMode(a.Aspect)
	if err != nil {
		return nil, err
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		sess.CropEngine().SetAspectMode(m)
		return nil
	})
}

// === Transform Handlers ===

type rotateArgs struct {
	SessionID string `json:"session_id"`
	Direction string `json:"direction"`
}

func (s *Server) handleRotate(args json.RawMessage) (interface{}, error) {
	var a rotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var rotate func(*editor.Transform)
	switch strings.ToLower(a.Direction) {
	case "", "right", "cw", "clockwise":
		rotate = (*editor.Transform).RotateRight
	case "left", "ccw", "counterclockwise":
		rotate = (*editor.Transform).RotateLeft
	default:
		return nil, fmt.Errorf("unknown rotation direction: %q", a.Direction)
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		rotate(sess.Transform())
		return nil
	})
}

type flipArgs struct {
	SessionID string `json:"session_id"`
	Axis      string `json:"axis"`
}

func (s *Server) handleFlip(args json.RawMessage) (interface{}, error) {
	var a flipArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var flip func(*editor.Transform)
	switch strings.ToLower(a.Axis) {
	case "horizontal", "h", "x":
		flip = (*editor.Transform).ToggleFlipH
	case "vertical", "v", "y":
		flip = (*editor.Transform).ToggleFlipV
	default:
		return nil, fmt.Errorf("unknown flip axis: %q", a.Axis)
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		flip(sess.Transform())
		return nil
	})
}

// === Adjustment Handlers ===

type presetsResult struct {
	Presets     []editor.Preset          `json:"presets"`
	Adjustments []editor.AdjustmentRange `json:"adjustments"`
	Aspects     []editor.AspectMode      `json:"aspects"`
}

func listPresets() presetsResult {
	return presetsResult{
		Presets:     editor.Presets(),
		Adjustments: editor.AdjustmentRanges(),
		Aspects:     editor.AspectModes(),
	}
}

type applyPresetArgs struct {
	SessionID string `json:"session_id"`
	Preset    string `json:"preset"`
}

func (s *Server) handleApplyPreset(args json.RawMessage) (interface{}, error) {
	var a applyPresetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		return sess.Pipeline().ApplyPreset(a.Preset)
	})
}

type setAdjustmentArgs struct {
	SessionID string   `json:"session_id"`
	Key       string   `json:"key"`
	Value     *float64 `json:"value"`
}

func (s *Server) handleSetAdjustment(args json.RawMessage) (interface{}, error) {
	var a setAdjustmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	key, err := editor.ParseAdjustmentKey(a.Key)
	if err != nil {
		return nil, err
	}
	if a.Value == nil {
		return nil, errors.New("value is required")
	}
	return s.withState(a.SessionID, func(sess *editor.Session) error {
		_, err := sess.Pipeline().SetAdjustment(key, *a.Value)
		return err
	})
}

// === Rendering Handlers ===

type previewArgs struct {
	SessionID string `json:"session_id"`
	ShowCrop  *bool  `json:"show_crop"`
}

type previewResult struct {
	*imaging.EncodedImage
	Crop      geometry.Rect `json:"crop"`
	FilterCSS string        `json:"filter_css"`
}

func (s *Server) handlePreview(args json.RawMessage) (interface{}, error) {
	var a previewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	showCrop := true
	if a.ShowCrop != nil {
		showCrop = *a.ShowCrop
	}

	var res previewResult
	err := s.sessions.With(a.SessionID, func(sess *editor.Session) error {
		img := sess.Preview(showCrop, imaging.DefaultOverlayStyle())
		enc, err := imaging.EncodeBase64(img, imaging.FormatPNG, 0)
		if err != nil {
			return err
		}
		res = previewResult{
			EncodedImage: enc,
			Crop:         sess.Crop(),
			FilterCSS:    sess.Filters().CSS(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type filterPreviewsArgs struct {
	SessionID string `json:"session_id"`
	Size      int    `json:"size"`
}

type filterPreview struct {
	Preset string `json:"preset"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
	*imaging.EncodedImage
}

func (s *Server) handleFilterPreviews(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a filterPreviewsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Size < 0 || a.Size > maxThumbnailSize {
		return nil, fmt.Errorf("size must be 0 (default) or 1-%d", maxThumbnailSize)
	}

	var previews []filterPreview
	err := s.sessions.With(a.SessionID, func(sess *editor.Session) error {
		thumbs, err := sess.PresetThumbnails(ctx, a.Size)
		if err != nil {
			return err
		}
		for _, p := range editor.Presets() {
			enc, err := imaging.EncodeBase64(thumbs[p.Name], imaging.FormatPNG, 0)
			if err != nil {
				return err
			}
			previews = append(previews, filterPreview{
				Preset:       p.Name,
				Label:        p.Label,
				Active:       sess.ActiveFilter() == p.Name,
				EncodedImage: enc,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session_id": a.SessionID,
		"previews":   previews,
	}, nil
}
