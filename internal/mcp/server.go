// Package mcp exposes the debug-info tables as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/gobwas/glob"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/extract"
)

// Backend is the store the tools read from. *catalog.Store implements it.
type Backend interface {
	Query(ctx context.Context, query string) (*catalog.Result, error)
	Tables(ctx context.Context) ([]catalog.TableCount, error)
	Describe(name string) (catalog.TableDoc, bool)
	FindFunctions(ctx context.Context, pattern string, limit int) ([]extract.Function, error)
	StructLayout(ctx context.Context, name string) (*catalog.Layout, error)
	CallSites(ctx context.Context) ([]extract.CallSite, error)
}

// Config contains configuration for the MCP server.
type Config struct {
	// EnabledTools optionally restricts which tools are available. Entries
	// are tool names or globs such as "dwarf_*". If empty, all tools are
	// enabled.
	EnabledTools []string

	// Audit logs every tool call with its arguments.
	Audit bool

	// Version is reported to clients during initialization.
	Version string
}

// Server wraps the mcp-go server and provides the debug-info tools.
type Server struct {
	mcpServer *server.MCPServer
	backend   Backend
	config    Config
	enabled   []glob.Glob
	logger    zerolog.Logger
	startedAt time.Time
	// handlers maps tool names to their handlers for direct calls.
	handlers map[string]server.ToolHandlerFunc
}

// New creates a new MCP server instance.
func New(backend Backend, config Config, logger zerolog.Logger) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"dwarfsql",
			config.Version,
			server.WithToolCapabilities(false),
		),
		backend:   backend,
		config:    config,
		logger:    logger.With().Str("component", "mcp").Logger(),
		startedAt: time.Now(),
		handlers:  make(map[string]server.ToolHandlerFunc),
	}

	for _, pattern := range config.EnabledTools {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tool pattern %q: %w", pattern, err)
		}
		s.enabled = append(s.enabled, g)
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	s.logger.Info().
		Int("tool_count", len(s.handlers)).
		Bool("audit_enabled", config.Audit).
		Msg("MCP server initialized")

	return s, nil
}

// ServeStdio serves the protocol over the given streams until ctx is
// cancelled or in reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info().Msg("Starting MCP server on stdio")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(errorLogger{logger: s.logger}, "", 0))
	return stdio.Listen(ctx, in, out)
}

// HandleMessage processes one JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ToolNames returns the registered tool names in sorted order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool executes a tool by name with JSON-encoded arguments and returns
// its text output.
func (s *Server) CallTool(ctx context.Context, name string, argumentsJSON string) (string, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return "", fmt.Errorf("tool not found or not enabled: %s", name)
	}

	var args map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return "", fmt.Errorf("failed to parse arguments: %w", err)
		}
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := handler(ctx, request)
	if err != nil {
		return "", err
	}

	text := resultText(result)
	if result.IsError {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

// IsToolEnabled reports whether the configuration exposes the tool.
func (s *Server) IsToolEnabled(name string) bool {
	if len(s.enabled) == 0 {
		// All tools enabled by default.
		return true
	}
	for _, g := range s.enabled {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// auditToolCall logs a tool invocation if auditing is enabled.
func (s *Server) auditToolCall(name string, args any) {
	if !s.config.Audit {
		return
	}

	argsJSON, err := json.Marshal(args)
	if err != nil || string(argsJSON) == "null" {
		argsJSON = []byte("{}")
	}
	s.logger.Info().
		Str("tool", name).
		RawJSON("args", argsJSON).
		Msg("MCP tool called")
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// errorLogger routes stdio transport errors to zerolog.
type errorLogger struct {
	logger zerolog.Logger
}

func (l errorLogger) Write(p []byte) (int, error) {
	l.logger.Warn().Msg(string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	for len(p) > 0 && (p[len(p)-1] == '\n' || p[len(p)-1] == '\r') {
		p = p[:len(p)-1]
	}
	return p
}
