package server

import (
	"github.com/ironsheep/image-editor-mcp/internal/editor"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session id returned by editor_open",
	}
}

// sessionOnlySchema is the schema of tools that take nothing but a session id.
func sessionOnlySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": sessionIDProperty(),
		},
		"required": []string{"session_id"},
	}
}

func aspectNames() []string {
	var names []string
	for _, m := range editor.AspectModes() {
		names = append(names, string(m))
	}
	return names
}

func presetNames() []string {
	var names []string
	for _, p := range editor.Presets() {
		names = append(names, p.Name)
	}
	return names
}

func adjustmentNames() []string {
	var names []string
	for _, r := range editor.AdjustmentRanges() {
		names = append(names, string(r.Key))
	}
	return names
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Session lifecycle
		{
			Name:        "editor_open",
			Description: "Open an image for editing and start a session. Provide exactly one of path, data_uri or base64. The crop starts at the full frame, or at a centered ratio when a hint is given. Returns the session state including its id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"data_uri": map[string]interface{}{
						"type":        "string",
						"description": "Image as a data URI (data:image/png;base64,...)",
					},
					"base64": map[string]interface{}{
						"type":        "string",
						"description": "Image bytes encoded as standard base64",
					},
					"hint": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"none", "profile", "cover"},
						"description": "profile preselects 1:1, cover preselects 16:9. Default none",
						"default":     "none",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"jpeg", "png"},
						"description": "Encoding used by editor_save. Default jpeg",
						"default":     "jpeg",
					},
				},
			},
		},
		{
			Name:        "editor_state",
			Description: "Return the full state of a session: natural and display size, crop, aspect, transform, adjustments, the source rectangle the crop maps to and the output size.",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "editor_save",
			Description: "Render the edited image at full resolution and end the session. Writes to output_path when given, otherwise returns the image as base64.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path to write the result to",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_cancel",
			Description: "Discard a session without rendering.",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "editor_reset",
			Description: "Reset crop, rotation, flips and adjustments to the state the session opened with.",
			InputSchema: sessionOnlySchema(),
		},

		// Crop
		{
			Name:        "editor_begin_drag",
			Description: "Start dragging the crop selection. Coordinates are in display space (the image fitted into 500x400).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"handle": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"move", "top-left", "top-right", "bottom-left", "bottom-right"},
						"description": "What the drag grabs: the whole selection or one corner",
					},
					"x": map[string]interface{}{
						"type":        "number",
						"description": "Pointer X in display space",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Pointer Y in display space",
					},
				},
				"required": []string{"session_id", "handle", "x", "y"},
			},
		},
		{
			Name:        "editor_update_drag",
			Description: "Move the pointer of the active drag. The crop is recomputed from where the drag started, clamped to the image and kept at least 40x40.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"x": map[string]interface{}{
						"type":        "number",
						"description": "Pointer X in display space",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Pointer Y in display space",
					},
				},
				"required": []string{"session_id", "x", "y"},
			},
		},
		{
			Name:        "editor_end_drag",
			Description: "Finish the active drag, keeping the current crop.",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "editor_set_crop",
			Description: "Set the crop directly in display space. The rectangle is fitted to the aspect mode, clamped to the image and kept at least 40x40.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge in display space",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge in display space",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Width in display pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Height in display pixels",
					},
				},
				"required": []string{"session_id", "x", "y", "width", "height"},
			},
		},
		{
			Name:        "editor_set_aspect",
			Description: "Change the aspect mode. A fixed ratio replaces the crop with the largest centered rectangle of that ratio; free keeps the crop.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"aspect": map[string]interface{}{
						"type":        "string",
						"enum":        aspectNames(),
						"description": "Aspect mode",
					},
				},
				"required": []string{"session_id", "aspect"},
			},
		},
		{
			Name:        "editor_reset_crop",
			Description: "Restore the crop the session opened with.",
			InputSchema: sessionOnlySchema(),
		},

		// Transform
		{
			Name:        "editor_rotate",
			Description: "Rotate the output by 90 degrees.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"left", "right"},
						"description": "left is counter-clockwise, right is clockwise. Default right",
						"default":     "right",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_flip",
			Description: "Toggle a mirror of the output.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"axis": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"horizontal", "vertical"},
						"description": "horizontal mirrors left/right, vertical mirrors top/bottom",
					},
				},
				"required": []string{"session_id", "axis"},
			},
		},
		{
			Name:        "editor_reset_transform",
			Description: "Clear rotation and flips.",
			InputSchema: sessionOnlySchema(),
		},

		// Adjustments
		{
			Name:        "editor_list_presets",
			Description: "List the filter presets with their values and the valid range of every adjustment.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "editor_apply_preset",
			Description: "Replace all adjustments with a preset's values.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"preset": map[string]interface{}{
						"type":        "string",
						"enum":        presetNames(),
						"description": "Preset name",
					},
				},
				"required": []string{"session_id", "preset"},
			},
		},
		{
			Name:        "editor_set_adjustment",
			Description: "Set one adjustment. The value is clamped to its range and the active filter becomes custom.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"key": map[string]interface{}{
						"type":        "string",
						"enum":        adjustmentNames(),
						"description": "Adjustment to change",
					},
					"value": map[string]interface{}{
						"type":        "number",
						"description": "New value; see editor_list_presets for ranges",
					},
				},
				"required": []string{"session_id", "key", "value"},
			},
		},
		{
			Name:        "editor_reset_adjustments",
			Description: "Return every adjustment to its identity value.",
			InputSchema: sessionOnlySchema(),
		},

		// Rendering
		{
			Name:        "editor_preview",
			Description: "Render the live preview at display size with the current filters and transform, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"show_crop": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the crop selection with a rule-of-thirds grid. Default true",
						"default":     true,
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_filter_previews",
			Description: "Render a small square thumbnail of the image for every preset, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Thumbnail side in pixels. Default 96",
						"default":     96,
					},
				},
				"required": []string{"session_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
