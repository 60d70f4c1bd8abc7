package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/coral-mesh/dwarfsql/internal/callgraph"
	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/query"
)

// queryDescription lists the tables by their real names so clients do not
// guess them.
func queryDescription() string {
	return fmt.Sprintf("Run a SQL query against the DWARF debug-info tables (%s). "+
		"Use dwarf_list_tables and dwarf_describe_table to discover the columns.",
		strings.Join(catalog.TableNames(), ", "))
}

// registerTools registers every enabled tool.
func (s *Server) registerTools() error {
	tools := []struct {
		name        string
		description string
		input       any
		handler     server.ToolHandlerFunc
	}{
		{
			name:        "dwarf_query",
			description: queryDescription(),
			input:       QueryInput{},
			handler:     s.handleQuery,
		},
		{
			name:        "dwarf_list_tables",
			description: "List the debug-info tables with their row counts.",
			input:       ListTablesInput{},
			handler:     s.handleListTables,
		},
		{
			name:        "dwarf_describe_table",
			description: "Describe the columns of one debug-info table.",
			input:       DescribeTableInput{},
			handler:     s.handleDescribeTable,
		},
		{
			name:        "dwarf_find_functions",
			description: "Find functions whose name or linkage name matches a glob pattern.",
			input:       FindFunctionsInput{},
			handler:     s.handleFindFunctions,
		},
		{
			name:        "dwarf_struct_layout",
			description: "Show the members of a struct, class or union in offset order.",
			input:       StructLayoutInput{},
			handler:     s.handleStructLayout,
		},
		{
			name:        "dwarf_call_graph",
			description: "List the callers or callees of a function up to a given depth, based on DW_TAG_call_site entries.",
			input:       CallGraphInput{},
			handler:     s.handleCallGraph,
		},
	}

	for _, t := range tools {
		if !s.IsToolEnabled(t.name) {
			continue
		}
		if err := s.registerToolWithSchema(t.name, t.description, t.input, t.handler); err != nil {
			return err
		}
	}
	return nil
}

// registerToolWithSchema registers a tool whose input schema is reflected
// from inputType.
func (s *Server) registerToolWithSchema(name, description string, inputType any, handler server.ToolHandlerFunc) error {
	inputSchema, err := generateInputSchema(inputType)
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", name, err)
	}

	schemaBytes, err := json.Marshal(inputSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for %s: %w", name, err)
	}

	tool := mcp.NewToolWithRawSchema(name, description, schemaBytes)
	s.mcpServer.AddTool(tool, handler)
	s.handlers[name] = handler
	return nil
}

func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input QueryInput
	if err := parseArguments(request.Params.Arguments, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.auditToolCall("dwarf_query", input)

	if strings.TrimSpace(input.SQL) == "" {
		return mcp.NewToolResultError("sql is required"), nil
	}
	limit := constants.DefaultQueryLimit
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}

	res, err := s.backend.Query(ctx, input.SQL)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	total := len(res.Rows)
	truncated := total > limit
	if truncated {
		res = &catalog.Result{Columns: res.Columns, Rows: res.Rows[:limit]}
	}

	var buf bytes.Buffer
	if err := query.WriteTable(&buf, res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if truncated {
		fmt.Fprintf(&buf, "\n(showing %d of %d rows)\n", limit, total)
	} else {
		fmt.Fprintf(&buf, "\n%s\n", query.Summary(total, 0))
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.auditToolCall("dwarf_list_tables", request.Params.Arguments)

	counts, err := s.backend.Tables(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
	}

	var b strings.Builder
	for _, c := range counts {
		desc := ""
		if doc, ok := s.backend.Describe(c.Name); ok {
			desc = doc.Description
		}
		fmt.Fprintf(&b, "%s (%d rows): %s\n", c.Name, c.Rows, desc)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleDescribeTable(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input DescribeTableInput
	if err := parseArguments(request.Params.Arguments, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.auditToolCall("dwarf_describe_table", input)

	doc, ok := s.backend.Describe(input.Table)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown table: %s", input.Table)), nil
	}
	return jsonResult(doc)
}

func (s *Server) handleFindFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FindFunctionsInput
	if err := parseArguments(request.Params.Arguments, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.auditToolCall("dwarf_find_functions", input)

	if input.Pattern == "" {
		return mcp.NewToolResultError("pattern is required"), nil
	}
	limit := constants.DefaultFindLimit
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}

	fns, err := s.backend.FindFunctions(ctx, input.Pattern, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(fns)
}

func (s *Server) handleStructLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input StructLayoutInput
	if err := parseArguments(request.Params.Arguments, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.auditToolCall("dwarf_struct_layout", input)

	layout, err := s.backend.StructLayout(ctx, input.Name)
	if errors.Is(err, catalog.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("struct not found: %s", input.Name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read struct: %v", err)), nil
	}
	return jsonResult(layout)
}

// callGraphOutput is the result of dwarf_call_graph.
type callGraphOutput struct {
	Function  callgraph.Node  `json:"function"`
	Direction string          `json:"direction"`
	Depth     int             `json:"depth"`
	Hits      []callgraph.Hit `json:"functions"`
}

func (s *Server) handleCallGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CallGraphInput
	if err := parseArguments(request.Params.Arguments, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.auditToolCall("dwarf_call_graph", input)

	dir := callgraph.Callees
	if input.Direction != nil && *input.Direction != "" {
		dir = callgraph.Direction(*input.Direction)
		if dir != callgraph.Callees && dir != callgraph.Callers {
			return mcp.NewToolResultError(fmt.Sprintf("invalid direction: %s (must be callers or callees)", *input.Direction)), nil
		}
	}
	depth := constants.DefaultCallDepth
	if input.Depth != nil && *input.Depth > 0 {
		depth = *input.Depth
	}

	calls, err := s.backend.CallSites(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read call sites: %v", err)), nil
	}
	g, err := callgraph.Build(calls)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build call graph: %v", err)), nil
	}

	roots := g.Lookup(input.Function)
	if len(roots) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", callgraph.ErrUnknownFunction, input.Function)), nil
	}

	out := make([]callGraphOutput, 0, len(roots))
	for _, root := range roots {
		hits, err := g.Walk(root.Offset, dir, depth)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out = append(out, callGraphOutput{Function: root, Direction: string(dir), Depth: depth, Hits: hits})
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
