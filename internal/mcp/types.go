package mcp

// Input types for MCP tools.
// Optional fields use pointers to allow nil values.

// QueryInput is the input for dwarf_query.
type QueryInput struct {
	SQL   string `json:"sql" jsonschema:"description=SQL statement to run against the debug-info tables"`
	Limit *int   `json:"limit,omitempty" jsonschema:"description=Maximum number of rows to return,default=1000"`
}

// ListTablesInput is the input for dwarf_list_tables.
type ListTablesInput struct{}

// DescribeTableInput is the input for dwarf_describe_table.
type DescribeTableInput struct {
	Table string `json:"table" jsonschema:"description=Table name (e.g. 'functions' 'struct_members')"`
}

// FindFunctionsInput is the input for dwarf_find_functions.
type FindFunctionsInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Glob matched against function and linkage names (e.g. 'parse*' '*Alloc*')"`
	Limit   *int   `json:"limit,omitempty" jsonschema:"description=Maximum number of functions to return,default=50"`
}

// StructLayoutInput is the input for dwarf_struct_layout.
type StructLayoutInput struct {
	Name string `json:"name" jsonschema:"description=Struct class or union name"`
}

// CallGraphInput is the input for dwarf_call_graph.
type CallGraphInput struct {
	Function  string  `json:"function" jsonschema:"description=Function name"`
	Direction *string `json:"direction,omitempty" jsonschema:"description=Which edges to follow,enum=callees,enum=callers,default=callees"`
	Depth     *int    `json:"depth,omitempty" jsonschema:"description=Maximum number of hops,default=3"`
}
