// Package mcpserver publishes the agent tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/yolodolo42/txagent/internal/agent"
)

const Name = "txagent"

// Server exposes every tool in the registry to an MCP client.
type Server struct {
	tools *agent.ToolRegistry
	mcp   *server.MCPServer
	log   *logrus.Logger
}

// New registers one MCP tool per registry spec.
func New(tools *agent.ToolRegistry, version string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		tools: tools,
		mcp:   server.NewMCPServer(Name, version, server.WithToolCapabilities(true)),
		log:   log,
	}
	for _, spec := range tools.Specs() {
		s.mcp.AddTool(toolFromSpec(spec), s.handler(spec.Name))
	}
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in/out until ctx ends or in closes.
// Logs must not go to out; logrus writes to stderr by default.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.WithField("tools", len(s.tools.Specs())).Info("mcp server listening on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func toolFromSpec(spec agent.ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, p := range spec.Params {
		opts = append(opts, mcp.WithString(p.Name, mcp.Required(), mcp.Description(p.Description)))
	}
	return mcp.NewTool(spec.Name, opts...)
}

// handler maps tool failures to an error result rather than a protocol error,
// so the client sees the taxonomy message.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		log := s.log.WithFields(logrus.Fields{"tool": name, "args": redactedArgs(args)})

		out, err := s.tools.Call(ctx, name, args)
		if err != nil {
			log.WithError(err).Warn("tool failed")
			return mcp.NewToolResultError(agent.ErrorText(err)), nil
		}
		log.Info("tool succeeded")
		return mcp.NewToolResultText(out.Text), nil
	}
}

func redactedArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return agent.RedactJSONArgs(string(b))
}
