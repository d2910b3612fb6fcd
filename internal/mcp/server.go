package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codenav-mcp/internal/config"
	"github.com/dshills/codenav-mcp/internal/query"
)

const (
	// ServerName is the MCP server name
	ServerName = "codenav-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	engine *query.Engine
	cfg    *config.Config
}

// NewServer creates a new MCP server instance. A nil config uses the
// defaults.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:    mcpServer,
		engine: query.NewEngine(cfg),
		cfg:    cfg,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexRepositoryTool(), s.handleIndexRepository)
	s.mcp.AddTool(goToTool(), s.handleGoTo)
	s.mcp.AddTool(textSearchTool(), s.handleTextSearch)
	s.mcp.AddTool(fuzzySearchTool(), s.handleFuzzySearch)
	s.mcp.AddTool(getHoverableRangesTool(), s.handleGetHoverableRanges)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
