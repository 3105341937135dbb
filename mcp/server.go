// Package mcp exposes the tariff news tool over the Model Context Protocol.
// The stdio and SSE transports share one mcp-go server and one Handler.
package mcp

import (
	"context"
	"io"
	"net/http"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/tariffnews/internal/runtime"
	tariffnews "github.com/mohammad-safakhou/tariffnews/tools/tariff_news"
)

const (
	ServerName  = "tariff-news-server"
	SSEBasePath = "/mcp"
)

// Server owns the mcp-go server and the transports built on it.
type Server struct {
	mcp    *mcpserver.MCPServer
	logger *zap.Logger
	known  map[string]bool
}

// NewServer registers the single tool on a fresh mcp-go server.
func NewServer(handler *Handler, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := mcpserver.NewMCPServer(ServerName, version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithToolFilter(hideUnknownTool),
		mcpserver.WithRecovery(),
	)
	s.AddTool(Tool(), handler.ToolHandler())
	s.AddTool(unknownTool(), handler.unknownToolHandler())
	return &Server{mcp: s, logger: logger, known: map[string]bool{ToolName: true}}
}

// Tool is the advertised tool descriptor.
func Tool() mcpgo.Tool {
	return mcpgo.NewToolWithRawSchema(ToolName, ToolDescription, tariffnews.InputSchema())
}

// MCPServer exposes the underlying mcp-go server (in-process clients).
// Calls made on it directly skip unknown tool routing.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) route(raw []byte) []byte {
	return routeUnknownTool(raw, s.known)
}

// ServeStdio blocks serving JSON-RPC over in/out until ctx is done or in is
// closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))
	s.logger.Info("mcp stdio transport started", zap.String("tool", ToolName))
	return stdio.Listen(ctx, newRoutingReader(in, s.route), out)
}

// SSEHandler serves the SSE transport at /mcp/sse with messages posted to
// /mcp/message. The authenticated subject, if any, follows the message into
// the tool call.
func (s *Server) SSEHandler() http.Handler {
	sse := mcpserver.NewSSEServer(s.mcp,
		mcpserver.WithStaticBasePath(SSEBasePath),
		mcpserver.WithSSEContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if sub, ok := runtime.SubjectFromContext(r.Context()); ok {
				return runtime.ContextWithSubject(ctx, sub)
			}
			return ctx
		}),
	)
	return routingHandler(sse, s.route)
}
