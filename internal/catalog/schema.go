// Package catalog materialises the records of a debug session into
// relational tables and serves queries over them.
package catalog

import (
	"context"
	"fmt"

	"github.com/coral-mesh/dwarfsql/internal/duckdb"
	"github.com/coral-mesh/dwarfsql/internal/extract"
)

// ColumnDoc documents one column of a table.
type ColumnDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TableDoc documents one table.
type TableDoc struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Columns     []ColumnDoc `json:"columns"`
}

// tableSpec binds a table name to its record type and extractor.
type tableSpec struct {
	name        string
	description string
	columnDocs  map[string]string
	columns     func(d duckdb.Dialect) []duckdb.Column
	load        func(ctx context.Context, db duckdb.Execer, d duckdb.Dialect, s *extract.Session) (int, error)
	drop        func(ctx context.Context, db duckdb.Execer, d duckdb.Dialect) error
	count       func(ctx context.Context, db duckdb.Execer, d duckdb.Dialect) (int64, error)
}

// define describes a table holding records of type T.
func define[T any](name, description string, docs map[string]string, rows func(s *extract.Session) ([]T, error)) tableSpec {
	return tableSpec{
		name:        name,
		description: description,
		columnDocs:  docs,
		columns: func(d duckdb.Dialect) []duckdb.Column {
			return duckdb.NewTable[T](nil, name, duckdb.WithDialect(d)).Columns()
		},
		load: func(ctx context.Context, db duckdb.Execer, d duckdb.Dialect, s *extract.Session) (int, error) {
			tbl := duckdb.NewTable[T](db, name, duckdb.WithDialect(d))
			if err := tbl.Create(ctx); err != nil {
				return 0, err
			}

			items, err := rows(s)
			if err != nil {
				return 0, fmt.Errorf("failed to extract %s: %w", name, err)
			}

			ptrs := make([]*T, len(items))
			for i := range items {
				ptrs[i] = &items[i]
			}
			if err := tbl.BatchInsert(ctx, ptrs); err != nil {
				return 0, fmt.Errorf("failed to insert %s: %w", name, err)
			}
			return len(items), nil
		},
		drop: func(ctx context.Context, db duckdb.Execer, d duckdb.Dialect) error {
			return duckdb.NewTable[T](db, name, duckdb.WithDialect(d)).Drop(ctx)
		},
		count: func(ctx context.Context, db duckdb.Execer, d duckdb.Dialect) (int64, error) {
			return duckdb.NewTable[T](db, name, duckdb.WithDialect(d)).Count(ctx)
		},
	}
}

// all extracts records of every unit.
func all[T any](fn func(s *extract.Session, filter uint64) ([]T, error)) func(s *extract.Session) ([]T, error) {
	return func(s *extract.Session) ([]T, error) {
		return fn(s, 0)
	}
}

// structMembers collects the members of every struct with a definition.
func structMembers(s *extract.Session) ([]extract.Member, error) {
	structs, err := s.Structs(0)
	if err != nil {
		return nil, err
	}

	var out []extract.Member
	for _, st := range structs {
		if st.Declaration {
			continue
		}
		members, err := s.Members(st.Offset)
		if err != nil {
			return nil, err
		}
		out = append(out, members...)
	}
	return out, nil
}

// enumValues collects the enumerators of every enum.
func enumValues(s *extract.Session) ([]extract.EnumValue, error) {
	enums, err := s.Enums(0)
	if err != nil {
		return nil, err
	}

	var out []extract.EnumValue
	for _, e := range enums {
		values, err := s.EnumValues(e.Offset)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}

const (
	docID     = "DIE offset in .debug_info"
	docCU     = "offset of the owning compilation unit"
	docFunc   = "offset of the owning function, 0 for globals"
	docName   = "name, empty when anonymous"
	docType   = "resolved type name"
	docLoc    = "location expression as hex, or [loclist]"
	docLine   = "declaration line"
	docLowPC  = "start address"
	docHighPC = "end address (exclusive), 0 when unknown"
)

// tables lists every table in load order.
var tables = []tableSpec{
	define("compilation_units", "Compilation units (one per source file).", map[string]string{
		"id":           docID,
		"name":         "primary source file",
		"comp_dir":     "compilation directory",
		"producer":     "compiler identification",
		"language":     "DW_LANG code",
		"low_pc":       docLowPC,
		"high_pc":      docHighPC,
		"version":      "DWARF version of the unit",
		"address_size": "target address size in bytes",
	}, func(s *extract.Session) ([]extract.CompilationUnit, error) { return s.CompilationUnits() }),

	define("functions", "Functions and methods.", map[string]string{
		"id":             docID,
		"cu_id":          docCU,
		"name":           docName,
		"linkage_name":   "mangled symbol name",
		"low_pc":         docLowPC,
		"high_pc":        docHighPC,
		"return_type":    "resolved return type, void when absent",
		"is_external":    "visible outside its compilation unit",
		"is_declaration": "declaration without a body",
		"is_inline":      "declared inline",
		"line":           docLine,
	}, all((*extract.Session).Functions)),

	define("variables", "Global and local variables, including parameters.", map[string]string{
		"id":           docID,
		"cu_id":        docCU,
		"func_id":      docFunc,
		"name":         docName,
		"type":         docType,
		"location":     docLoc,
		"is_parameter": "formal parameter",
		"is_external":  "visible outside its compilation unit",
		"line":         docLine,
	}, all((*extract.Session).Variables)),

	define("types", "Base types, typedefs and type modifiers.", map[string]string{
		"id":        docID,
		"cu_id":     docCU,
		"name":      docName,
		"tag":       "DW_TAG code",
		"tag_name":  "tag name without the DW_TAG_ prefix",
		"byte_size": "size in bytes, -1 when unknown",
	}, all((*extract.Session).Types)),

	define("structs", "Structures, classes and unions.", map[string]string{
		"id":             docID,
		"cu_id":          docCU,
		"name":           docName,
		"kind":           "struct, class or union",
		"byte_size":      "size in bytes, -1 when unknown",
		"is_declaration": "forward declaration without members",
	}, all((*extract.Session).Structs)),

	define("struct_members", "Data members of structures, classes and unions.", map[string]string{
		"id":          docID,
		"struct_id":   "offset of the owning struct",
		"name":        docName,
		"type":        docType,
		"byte_offset": "offset from the start of the struct",
		"bit_offset":  "bit offset, 0 when not a bit-field",
		"bit_size":    "bit width, 0 when not a bit-field",
	}, structMembers),

	define("enums", "Enumeration types.", map[string]string{
		"id":        docID,
		"cu_id":     docCU,
		"name":      docName,
		"byte_size": "size in bytes, -1 when unknown",
	}, all((*extract.Session).Enums)),

	define("enum_values", "Enumerators.", map[string]string{
		"id":      docID,
		"enum_id": "offset of the owning enum",
		"name":    "enumerator name",
		"value":   "enumerator value",
	}, enumValues),

	define("line_info", "Line-number table rows.", map[string]string{
		"cu_id":        docCU,
		"address":      "instruction address",
		"file":         "source file",
		"line":         "source line",
		"col":          "source column, 0 when unknown",
		"is_stmt":      "recommended breakpoint location",
		"basic_block":  "start of a basic block",
		"end_sequence": "first address past the sequence",
	}, all((*extract.Session).Lines)),

	define("parameters", "Formal parameters of functions.", map[string]string{
		"id":          docID,
		"func_id":     "offset of the function",
		"name":        docName,
		"type":        docType,
		"param_index": "zero-based position",
		"location":    docLoc,
		"line":        docLine,
	}, all((*extract.Session).Parameters)),

	define("local_variables", "Variables declared inside functions.", map[string]string{
		"id":            docID,
		"func_id":       "offset of the function",
		"name":          docName,
		"type":          docType,
		"location":      docLoc,
		"line":          docLine,
		"scope_low_pc":  "start of the innermost enclosing scope",
		"scope_high_pc": "end of the innermost enclosing scope",
	}, all((*extract.Session).LocalVariables)),

	define("base_classes", "Inheritance edges.", map[string]string{
		"id":           docID,
		"derived_id":   "offset of the derived class",
		"derived_name": "name of the derived class",
		"base_id":      "offset of the base class",
		"base_name":    "name of the base class",
		"byte_offset":  "offset of the base subobject",
		"is_virtual":   "virtual inheritance",
		"access":       "public, protected or private",
	}, all((*extract.Session).BaseClasses)),

	define("calls", "Call sites.", map[string]string{
		"id":           docID,
		"caller_id":    "offset of the calling function",
		"caller_name":  "name of the calling function",
		"callee_id":    "offset of the called function, 0 when unknown",
		"callee_name":  "name of the called function, empty when unknown",
		"call_pc":      "return address of the call",
		"call_line":    "source line of the call",
		"is_tail_call": "tail call",
	}, all((*extract.Session).CallSites)),

	define("inlined_calls", "Inlined function instances.", map[string]string{
		"id":              docID,
		"abstract_origin": "offset of the inlined function",
		"name":            "name of the inlined function",
		"caller_id":       "offset of the function it was inlined into",
		"low_pc":          docLowPC,
		"high_pc":         docHighPC,
		"call_line":       "source line of the call",
		"call_column":     "source column of the call",
	}, all((*extract.Session).InlinedCalls)),

	define("namespaces", "C++ namespaces.", map[string]string{
		"id":           docID,
		"name":         docName,
		"parent_id":    "offset of the enclosing namespace, 0 at global scope",
		"is_anonymous": "anonymous namespace",
	}, all((*extract.Session).Namespaces)),
}

// lookup finds a registered table by name.
func lookup(name string) (tableSpec, bool) {
	for _, t := range tables {
		if t.name == name {
			return t, true
		}
	}
	return tableSpec{}, false
}

// TableNames returns the names of all tables in load order.
func TableNames() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names
}

// Describe returns the documentation of a table.
func Describe(name string, d duckdb.Dialect) (TableDoc, bool) {
	t, ok := lookup(name)
	if !ok {
		return TableDoc{}, false
	}
	return t.doc(d), true
}

// Schema returns the documentation of all tables.
func Schema(d duckdb.Dialect) []TableDoc {
	docs := make([]TableDoc, len(tables))
	for i, t := range tables {
		docs[i] = t.doc(d)
	}
	return docs
}

func (t tableSpec) doc(d duckdb.Dialect) TableDoc {
	cols := t.columns(d)
	doc := TableDoc{
		Name:        t.name,
		Description: t.description,
		Columns:     make([]ColumnDoc, len(cols)),
	}
	for i, c := range cols {
		doc.Columns[i] = ColumnDoc{Name: c.Name, Type: c.Type, Description: t.columnDocs[c.Name]}
	}
	return doc
}
