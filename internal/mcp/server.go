// ABOUTME: MCP server implementation for xvault
// ABOUTME: Provides tools, resources, and prompts for AI agents to query captured posts and authors

package mcp

import (
	"github.com/harper/xvault/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with vault-specific context
type Server struct {
	mcpServer *server.MCPServer
	store     *storage.Store
}

// NewServer creates a new MCP server instance
func NewServer(store *storage.Store, version string) *Server {
	s := &Server{store: store}

	s.mcpServer = server.NewMCPServer(
		"xvault",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
