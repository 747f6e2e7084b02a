package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// Server handles MCP protocol communication
type Server struct {
	sessions *editor.Store
	cache    *imaging.SourceCache
	opts     editor.Options
	version  string

	// paths maps session ids to the file their source was loaded from.
	mu    sync.Mutex
	paths map[string]string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Option customises a Server.
type Option func(*Server)

// WithVersion sets the version reported in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithStore shares a session store with another transport.
func WithStore(st *editor.Store) Option {
	return func(s *Server) { s.sessions = st }
}

// New creates a new MCP server instance
func New(opts editor.Options, options ...Option) *Server {
	s := &Server{
		sessions: editor.NewStore(),
		cache:    imaging.NewSourceCache(opts.MaxPixels),
		opts:     opts,
		version:  "dev",
		paths:    make(map[string]string),
	}
	for _, o := range options {
		o(s)
	}
	s.sessions.OnRemove(s.releaseSource)
	return s
}

// Run serves MCP over stdin and stdout until stdin closes. Idle sessions are
// expired in the background while it runs.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sessions.Run(ctx)

	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// trackSource records that session id was opened from path.
func (s *Server) trackSource(id, path string) {
	s.mu.Lock()
	s.paths[id] = path
	s.mu.Unlock()
}

// releaseSource forgets the session's path and evicts the cached source once
// no open session uses it.
func (s *Server) releaseSource(sess *editor.Session) {
	s.mu.Lock()
	path, ok := s.paths[sess.ID()]
	delete(s.paths, sess.ID())
	s.mu.Unlock()
	if ok {
		s.evictUnused(path)
	}
}

func (s *Server) evictUnused(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.paths {
		if p == path {
			return
		}
	}
	s.cache.Evict(path)
}

// Serve reads one JSON-RPC request per line from r and writes responses to w.
// It returns when r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	logger := log.Ctx(ctx)

	scanner := bufio.NewScanner(r)
	// Data URIs of full-size photos arrive inline.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Warn().Err(err).Msg("Failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				logger.Error().Err(err).Msg("Failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	log.Ctx(ctx).Debug().Str("method", req.Method).Interface("id", req.ID).Msg("request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "image-editor-mcp",
				"version": s.version,
			},
		},
	}
}
