// Package server implements the MCP (Model Context Protocol) server for the
// image editor.
//
// This package provides a JSON-RPC 2.0 server that exposes interactive editing
// sessions through the MCP protocol, so an assistant can crop, rotate, filter
// and save an image the same way a person would in the browser editor.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Session lifecycle:
//   - editor_open: Load an image (path, data URI or base64) and start a session
//   - editor_state: Current crop, transform, adjustments and output size
//   - editor_reset: Back to the opening state
//   - editor_save: Render at full resolution and end the session
//   - editor_cancel: End the session without rendering
//
// Crop:
//   - editor_begin_drag, editor_update_drag, editor_end_drag: Pointer drags
//   - editor_set_crop: Set the rectangle directly
//   - editor_set_aspect: free, 1:1, 4:3, 16:9 or 3:4
//   - editor_reset_crop: Back to the opening crop
//
// Transform:
//   - editor_rotate: Quarter turns left or right
//   - editor_flip: Horizontal or vertical mirror
//   - editor_reset_transform: Clear rotation and flips
//
// Adjustments:
//   - editor_list_presets: Presets, adjustment ranges and aspect modes
//   - editor_apply_preset: Replace the adjustments with a preset
//   - editor_set_adjustment: Change one slider
//   - editor_reset_adjustments: Identity adjustments
//
// Rendering:
//   - editor_preview: Display-size preview with the crop overlay
//   - editor_filter_previews: One thumbnail per preset
//
// Crop coordinates are always in display space: the image fitted into the
// configured display box (500x400 by default) without upscaling.
//
// # Sessions
//
// Sessions live in an editor.Store keyed by id. Calls on one session are
// serialised by the store; saved and cancelled sessions are dropped, and
// sessions left idle past the configured timeout are cancelled. Files opened
// by path are decoded once and shared through an imaging.SourceCache; a file
// is evicted when the last session using it ends.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(editor.DefaultOptions())
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("server stopped")
//	}
package server
