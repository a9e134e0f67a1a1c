package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jward/thicket"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotIndexed    = -32003 // File is not in the index
	ErrorCodeUnsupported   = -32005 // Language has no grammar or hierarchy table
)

// handleChunks handles the chunks tool invocation
func (s *Server) handleChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	p, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	withContent := getBoolDefault(args, "include_content", false)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireIndexed(p); err != nil {
		return nil, err
	}
	chunks, err := s.engine.Query().Chunks(p)
	if err != nil {
		return nil, internalError("chunks", err)
	}

	out := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, chunkResponse(c, withContent))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":   p,
		"count":  len(out),
		"chunks": out,
	})), nil
}

// handleChunkAt handles the chunk_at tool invocation
func (s *Server) handleChunkAt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	p, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	line := getIntDefault(args, "line", 0)
	if line < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "line must be a positive 1-based line number", map[string]interface{}{
			"param": "line",
			"value": line,
		})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireIndexed(p); err != nil {
		return nil, err
	}
	c, err := s.engine.Query().ChunkAt(p, line)
	if err != nil {
		return nil, internalError("chunk_at", err)
	}

	response := map[string]interface{}{
		"path":  p,
		"line":  line,
		"found": c != nil,
	}
	if c != nil {
		response["chunk"] = chunkResponse(c, true)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDependencies handles the dependencies tool invocation
func (s *Server) handleDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	p, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	depth, err := depthArg(args)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireIndexed(p); err != nil {
		return nil, err
	}
	qb := s.engine.Query()

	if depth > 1 {
		g, err := qb.TransitiveDependencies(p, depth)
		if err != nil {
			return nil, internalError("dependencies", err)
		}
		return mcp.NewToolResultText(formatJSON(graphResponse(g))), nil
	}

	imps, err := qb.Dependencies(p)
	if err != nil {
		return nil, internalError("dependencies", err)
	}
	out := make([]map[string]interface{}, 0, len(imps))
	for _, imp := range imps {
		out = append(out, map[string]interface{}{
			"raw_import": imp.RawImport,
			"resolved":   imp.ResolvedPath,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":         p,
		"dependencies": out,
	})), nil
}

// handleDependents handles the dependents tool invocation
func (s *Server) handleDependents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	p, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	depth, err := depthArg(args)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireIndexed(p); err != nil {
		return nil, err
	}
	qb := s.engine.Query()

	if depth > 1 {
		g, err := qb.TransitiveDependents(p, depth)
		if err != nil {
			return nil, internalError("dependents", err)
		}
		return mcp.NewToolResultText(formatJSON(graphResponse(g))), nil
	}

	imps, err := qb.Dependents(p)
	if err != nil {
		return nil, internalError("dependents", err)
	}
	out := make([]map[string]interface{}, 0, len(imps))
	for _, imp := range imps {
		out = append(out, map[string]interface{}{
			"file":       imp.SourcePath,
			"raw_import": imp.RawImport,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":       p,
		"dependents": out,
	})), nil
}

// handleChunkSource handles the chunk_source tool invocation
func (s *Server) handleChunkSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing",
		})
	}

	language := getStringDefault(args, "language", "")
	if language == "" {
		filename := getStringDefault(args, "filename", "")
		lang, ok := thicket.LanguageForFile(filename)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "language or a recognised filename is required", map[string]interface{}{
				"param":    "language",
				"filename": filename,
			})
		}
		language = lang
	}

	chunks, err := thicket.ChunkSource(ctx, []byte(content), language)
	if errors.Is(err, thicket.ErrUnsupportedLanguage) {
		return nil, newMCPError(ErrorCodeUnsupported, "unsupported language", map[string]interface{}{
			"language": language,
		})
	}
	if err != nil {
		return nil, internalError("chunk_source", err)
	}

	out := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, map[string]interface{}{
			"node_type":       c.NodeType,
			"name":            c.Name,
			"context_path":    c.ContextPath,
			"start_line":      c.Span.StartLine,
			"end_line":        c.Span.EndLine,
			"leading_comment": c.LeadingComment,
			"content":         c.Content,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"language": language,
		"chunks":   out,
	})), nil
}

// handleDirectoryGraph handles the directory_graph tool invocation
func (s *Server) handleDirectoryGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qb := s.engine.Query()
	g, err := qb.DirectoryDependencyGraph()
	if err != nil {
		return nil, internalError("directory_graph", err)
	}
	cycles, err := qb.CircularDependencies()
	if err != nil {
		return nil, internalError("directory_graph", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"directories": g.Directories,
		"edges":       g.Edges,
		"cycles":      cycles,
	})), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	indexErr := s.engine.IndexDirectory(ctx)
	if indexErr != nil && ctx.Err() != nil {
		return nil, internalError("reindex", indexErr)
	}
	if err := s.engine.Resolve(ctx); err != nil {
		return nil, internalError("reindex", err)
	}

	files, err := s.engine.Query().Files()
	if err != nil {
		return nil, internalError("reindex", err)
	}
	response := map[string]interface{}{
		"root":        s.engine.Root(),
		"files":       len(files),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	// Per-file failures do not abort the pass; report the summary.
	if indexErr != nil {
		s.logger.WithError(indexErr).Warn("reindex completed with errors")
		response["error"] = indexErr.Error()
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

func chunkResponse(c *thicket.Chunk, withContent bool) map[string]interface{} {
	m := map[string]interface{}{
		"ordinal":         c.Ordinal,
		"node_type":       c.NodeType,
		"name":            c.Name,
		"label":           c.Label(),
		"context_path":    []string(c.ContextPath),
		"start_line":      c.StartLine,
		"end_line":        c.EndLine,
		"leading_comment": c.LeadingComment,
	}
	if withContent {
		m["content"] = c.Content
	}
	return m
}

func graphResponse(g *thicket.FileGraph) map[string]interface{} {
	if g == nil {
		return map[string]interface{}{"nodes": []interface{}{}, "edges": []interface{}{}}
	}
	return map[string]interface{}{
		"root":  g.Root,
		"depth": g.Depth,
		"nodes": g.Nodes,
		"edges": g.Edges,
	}
}

func (s *Server) requireIndexed(p string) error {
	f, err := s.engine.Query().File(p)
	if err != nil {
		return internalError("lookup", err)
	}
	if f == nil {
		return newMCPError(ErrorCodeNotIndexed, "file is not indexed", map[string]interface{}{
			"path": p,
		})
	}
	return nil
}

func toolArgs(request mcp.CallToolRequest) (map[string]interface{}, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// requirePath returns the cleaned, root-relative path argument.
func requirePath(args map[string]interface{}) (string, error) {
	p, ok := args["path"].(string)
	if !ok || p == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if path.IsAbs(p) {
		return "", newMCPError(ErrorCodeInvalidParams, "path must be relative to the indexed root", map[string]interface{}{
			"param": "path",
			"value": p,
		})
	}
	return path.Clean(p), nil
}

func depthArg(args map[string]interface{}) (int, error) {
	depth := getIntDefault(args, "depth", 1)
	if depth < 1 || depth > 100 {
		return 0, newMCPError(ErrorCodeInvalidParams, "depth must be between 1 and 100", map[string]interface{}{
			"param": "depth",
			"value": depth,
		})
	}
	return depth, nil
}

func internalError(tool string, err error) error {
	return newMCPError(ErrorCodeInternalError, tool+" failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value.
// JSON numbers arrive as float64.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
