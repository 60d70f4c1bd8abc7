// Package duckdb provides the relational plumbing shared by the catalog:
// a reflective table mapper, a SELECT builder and query helpers.
//
// # ORM
//
// The Table type maps a struct to a table through `duckdb` tags. The same
// mapping generates the DDL, so record types are the single source of the
// schema:
//
//	type Function struct {
//	    Offset uint64 `duckdb:"id,pk"`
//	    Name   string `duckdb:"name"`
//	}
//
//	table := duckdb.NewTable[Function](db, "functions")
//	err := table.Create(ctx)
//	err = table.BatchInsert(ctx, []*Function{...})
//
// Tables default to the DuckDB dialect. WithDialect(DialectSQLite) targets
// SQLite, which has no unsigned 64-bit integer type: such values are stored
// as their int64 bit pattern and converted back when scanned.
//
// # Query Builder
//
// Builder renders single-table SELECTs for Table.Find:
//
//	sql, args, err := duckdb.NewQueryBuilder("functions").
//	    Eq("cu_id", 11).
//	    Like("main%", "name", "linkage_name").
//	    OrderBy("-low_pc").
//	    Build()
//
// Empty string filters are skipped.
package duckdb
