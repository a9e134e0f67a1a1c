// Package mcp exposes a thicket index over the Model Context Protocol.
// The server speaks stdio and answers chunk and dependency questions
// about the files indexed under the engine's root.
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/jward/thicket"
)

// ServerName is the name reported during the MCP handshake.
const ServerName = "thicket"

// Server wraps the MCP server with the engine it answers from.
type Server struct {
	mcp    *server.MCPServer
	engine *thicket.Engine
	logger *logrus.Entry

	// mu serialises reindex against the read-only tools.
	mu sync.RWMutex
}

// NewServer registers every tool against engine. The caller keeps
// ownership of engine and closes it after Serve returns.
func NewServer(engine *thicket.Engine, logger *logrus.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("mcp: engine is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			thicket.Version,
			server.WithToolCapabilities(false),
		),
		engine: engine,
		logger: logger.WithField("component", "mcp"),
	}
	s.registerTools()
	return s, nil
}

// Serve blocks on stdio until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.WithField("root", s.engine.Root()).Info("serving on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(chunksTool(), s.handleChunks)
	s.mcp.AddTool(chunkAtTool(), s.handleChunkAt)
	s.mcp.AddTool(dependenciesTool(), s.handleDependencies)
	s.mcp.AddTool(dependentsTool(), s.handleDependents)
	s.mcp.AddTool(chunkSourceTool(), s.handleChunkSource)
	s.mcp.AddTool(directoryGraphTool(), s.handleDirectoryGraph)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
}
