package extract

// The record types below are flat projections of the DIE tree. Offsets are
// file offsets into .debug_info and act as primary and foreign keys; 0 in a
// foreign-key field means "none".

// CompilationUnit describes one compilation unit.
type CompilationUnit struct {
	Offset      uint64 `duckdb:"id,pk" json:"id"`
	Name        string `duckdb:"name" json:"name"`
	CompDir     string `duckdb:"comp_dir" json:"comp_dir"`
	Producer    string `duckdb:"producer" json:"producer"`
	Language    int64  `duckdb:"language" json:"language"`
	LowPC       uint64 `duckdb:"low_pc" json:"low_pc"`
	HighPC      uint64 `duckdb:"high_pc" json:"high_pc"`
	Version     int64  `duckdb:"version" json:"version"`
	AddressSize int64  `duckdb:"address_size" json:"address_size"`
}

// Function describes a subprogram.
type Function struct {
	Offset      uint64 `duckdb:"id,pk" json:"id"`
	UnitOffset  uint64 `duckdb:"cu_id" json:"cu_id"`
	Name        string `duckdb:"name" json:"name"`
	LinkageName string `duckdb:"linkage_name" json:"linkage_name"`
	LowPC       uint64 `duckdb:"low_pc" json:"low_pc"`
	HighPC      uint64 `duckdb:"high_pc" json:"high_pc"`
	ReturnType  string `duckdb:"return_type" json:"return_type"`
	External    bool   `duckdb:"is_external" json:"is_external"`
	Declaration bool   `duckdb:"is_declaration" json:"is_declaration"`
	Inline      bool   `duckdb:"is_inline" json:"is_inline"`
	Line        int64  `duckdb:"line" json:"line"`
}

// Variable describes a variable or formal parameter, global or local.
type Variable struct {
	Offset      uint64 `duckdb:"id,pk" json:"id"`
	UnitOffset  uint64 `duckdb:"cu_id" json:"cu_id"`
	FuncOffset  uint64 `duckdb:"func_id" json:"func_id"`
	Name        string `duckdb:"name" json:"name"`
	Type        string `duckdb:"type" json:"type"`
	Location    string `duckdb:"location" json:"location"`
	IsParameter bool   `duckdb:"is_parameter" json:"is_parameter"`
	External    bool   `duckdb:"is_external" json:"is_external"`
	Line        int64  `duckdb:"line" json:"line"`
}

// Type describes a base, typedef or modifier type.
type Type struct {
	Offset     uint64 `duckdb:"id,pk" json:"id"`
	UnitOffset uint64 `duckdb:"cu_id" json:"cu_id"`
	Name       string `duckdb:"name" json:"name"`
	Tag        int64  `duckdb:"tag" json:"tag"`
	TagName    string `duckdb:"tag_name" json:"tag_name"`
	ByteSize   int64  `duckdb:"byte_size" json:"byte_size"`
}

// Struct describes a structure, class or union.
type Struct struct {
	Offset      uint64 `duckdb:"id,pk" json:"id"`
	UnitOffset  uint64 `duckdb:"cu_id" json:"cu_id"`
	Name        string `duckdb:"name" json:"name"`
	Kind        string `duckdb:"kind" json:"kind"`
	ByteSize    int64  `duckdb:"byte_size" json:"byte_size"`
	Declaration bool   `duckdb:"is_declaration" json:"is_declaration"`
}

// Member describes a data member of a struct.
type Member struct {
	Offset       uint64 `duckdb:"id,pk" json:"id"`
	StructOffset uint64 `duckdb:"struct_id" json:"struct_id"`
	Name         string `duckdb:"name" json:"name"`
	Type         string `duckdb:"type" json:"type"`
	ByteOffset   uint64 `duckdb:"byte_offset" json:"byte_offset"`
	BitOffset    int64  `duckdb:"bit_offset" json:"bit_offset"`
	BitSize      int64  `duckdb:"bit_size" json:"bit_size"`
}

// Enum describes an enumeration type.
type Enum struct {
	Offset     uint64 `duckdb:"id,pk" json:"id"`
	UnitOffset uint64 `duckdb:"cu_id" json:"cu_id"`
	Name       string `duckdb:"name" json:"name"`
	ByteSize   int64  `duckdb:"byte_size" json:"byte_size"`
}

// EnumValue describes one enumerator.
type EnumValue struct {
	Offset     uint64 `duckdb:"id,pk" json:"id"`
	EnumOffset uint64 `duckdb:"enum_id" json:"enum_id"`
	Name       string `duckdb:"name" json:"name"`
	Value      int64  `duckdb:"value" json:"value"`
}

// Line is one row of a unit's line-number program.
type Line struct {
	UnitOffset  uint64 `duckdb:"cu_id" json:"cu_id"`
	Address     uint64 `duckdb:"address" json:"address"`
	File        string `duckdb:"file" json:"file"`
	Line        int64  `duckdb:"line" json:"line"`
	Column      int64  `duckdb:"col" json:"col"`
	IsStmt      bool   `duckdb:"is_stmt" json:"is_stmt"`
	BasicBlock  bool   `duckdb:"basic_block" json:"basic_block"`
	EndSequence bool   `duckdb:"end_sequence" json:"end_sequence"`
}

// Parameter is a formal parameter of a subprogram.
type Parameter struct {
	Offset     uint64 `duckdb:"id,pk" json:"id"`
	FuncOffset uint64 `duckdb:"func_id" json:"func_id"`
	Name       string `duckdb:"name" json:"name"`
	Type       string `duckdb:"type" json:"type"`
	Index      int64  `duckdb:"param_index" json:"param_index"`
	Location   string `duckdb:"location" json:"location"`
	Line       int64  `duckdb:"line" json:"line"`
}

// LocalVariable is a variable declared inside a subprogram.
type LocalVariable struct {
	Offset     uint64 `duckdb:"id,pk" json:"id"`
	FuncOffset uint64 `duckdb:"func_id" json:"func_id"`
	Name       string `duckdb:"name" json:"name"`
	Type       string `duckdb:"type" json:"type"`
	Location   string `duckdb:"location" json:"location"`
	Line       int64  `duckdb:"line" json:"line"`
	ScopeLow   uint64 `duckdb:"scope_low_pc" json:"scope_low_pc"`
	ScopeHigh  uint64 `duckdb:"scope_high_pc" json:"scope_high_pc"`
}

// BaseClass is one inheritance edge.
type BaseClass struct {
	Offset        uint64 `duckdb:"id,pk" json:"id"`
	DerivedOffset uint64 `duckdb:"derived_id" json:"derived_id"`
	DerivedName   string `duckdb:"derived_name" json:"derived_name"`
	BaseOffset    uint64 `duckdb:"base_id" json:"base_id"`
	BaseName      string `duckdb:"base_name" json:"base_name"`
	ByteOffset    uint64 `duckdb:"byte_offset" json:"byte_offset"`
	Virtual       bool   `duckdb:"is_virtual" json:"is_virtual"`
	Access        string `duckdb:"access" json:"access"`
}

// CallSite is a call recorded inside a subprogram.
type CallSite struct {
	Offset       uint64 `duckdb:"id,pk" json:"id"`
	CallerOffset uint64 `duckdb:"caller_id" json:"caller_id"`
	CallerName   string `duckdb:"caller_name" json:"caller_name"`
	CalleeOffset uint64 `duckdb:"callee_id" json:"callee_id"`
	CalleeName   string `duckdb:"callee_name" json:"callee_name"`
	PC           uint64 `duckdb:"call_pc" json:"call_pc"`
	Line         int64  `duckdb:"call_line" json:"call_line"`
	TailCall     bool   `duckdb:"is_tail_call" json:"is_tail_call"`
}

// InlinedCall is an inlined instance of a subprogram.
type InlinedCall struct {
	Offset         uint64 `duckdb:"id,pk" json:"id"`
	AbstractOrigin uint64 `duckdb:"abstract_origin" json:"abstract_origin"`
	Name           string `duckdb:"name" json:"name"`
	CallerOffset   uint64 `duckdb:"caller_id" json:"caller_id"`
	LowPC          uint64 `duckdb:"low_pc" json:"low_pc"`
	HighPC         uint64 `duckdb:"high_pc" json:"high_pc"`
	CallLine       int64  `duckdb:"call_line" json:"call_line"`
	CallColumn     int64  `duckdb:"call_column" json:"call_column"`
}

// Namespace is a C++ namespace.
type Namespace struct {
	Offset       uint64 `duckdb:"id,pk" json:"id"`
	Name         string `duckdb:"name" json:"name"`
	ParentOffset uint64 `duckdb:"parent_id" json:"parent_id"`
	Anonymous    bool   `duckdb:"is_anonymous" json:"is_anonymous"`
}
