// Package mcpServer exposes the document index to MCP clients over streamable HTTP.
package mcpServer

import (
	"net/http"

	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

var logger = logger_i.NewLogger("MCP Server")

type Server struct {
	ragService rag.Service
	server     *mcp.Server
}

func NewServer(ragService rag.Service) *Server {
	s := &Server{
		ragService: ragService,
		server:     mcp.NewServer(&mcp.Implementation{Name: "doc-chat", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Handler serves every MCP session from the same server instance.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
