package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Execer is an interface that matches both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect selects the SQL flavour generated by a Table.
type Dialect int

const (
	// DialectDuckDB targets DuckDB, which has native unsigned integers.
	DialectDuckDB Dialect = iota
	// DialectSQLite targets SQLite. Unsigned 64-bit values are stored as
	// their two's-complement int64 bit pattern.
	DialectSQLite
)

// String returns the engine name of the dialect.
func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "duckdb"
}

// Column describes one mapped struct field.
type Column struct {
	Name string
	Type string
	PK   bool
}

// Table represents a generic database table wrapper for type T.
type Table[T any] struct {
	db        Execer
	dialect   Dialect
	tableName string
	columns   []string
	pkColumns []string
	sqlTypes  map[string]string
	fieldMap  map[string]int // Map column name to field index
}

// TableOption configures a Table.
type TableOption func(*tableOptions)

type tableOptions struct {
	dialect Dialect
}

// WithDialect sets the SQL dialect. The default is DialectDuckDB.
func WithDialect(d Dialect) TableOption {
	return func(o *tableOptions) {
		o.dialect = d
	}
}

// NewTable maps struct type T onto tableName. Fields are mapped by their
// `duckdb:"column[,pk]"` tag; untagged fields and "-" are skipped. db may
// be nil when only the schema is needed.
func NewTable[T any](db Execer, tableName string, opts ...TableOption) *Table[T] {
	var o tableOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("duckdb: table %s: %s is not a struct", tableName, rt))
	}

	t := &Table[T]{
		db:        db,
		dialect:   o.dialect,
		tableName: tableName,
		sqlTypes:  map[string]string{},
		fieldMap:  map[string]int{},
	}
	for i := range rt.NumField() {
		f := rt.Field(i)
		name, flags, _ := strings.Cut(f.Tag.Get("duckdb"), ",")
		if name = strings.TrimSpace(name); name == "" || name == "-" {
			continue
		}

		t.columns = append(t.columns, name)
		t.fieldMap[name] = i
		t.sqlTypes[name] = sqlType(f.Type, o.dialect)
		if slices.Contains(strings.Split(flags, ","), "pk") {
			t.pkColumns = append(t.pkColumns, name)
		}
	}
	return t
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.tableName
}

// Columns returns the mapped columns in declaration order.
func (t *Table[T]) Columns() []Column {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = Column{Name: c, Type: t.sqlTypes[c], PK: t.isPK(c)}
	}
	return cols
}

func (t *Table[T]) isPK(col string) bool {
	return slices.Contains(t.pkColumns, col)
}

// sqlType maps a Go field type to a column type.
func sqlType(rt reflect.Type, d Dialect) string {
	if rt == reflect.TypeOf(time.Time{}) {
		return "TIMESTAMP"
	}
	switch rt.Kind() {
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return "INTEGER"
	case reflect.Int, reflect.Int64:
		return "BIGINT"
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		if d == DialectSQLite {
			return "INTEGER"
		}
		return "UINTEGER"
	case reflect.Uint, reflect.Uint64:
		if d == DialectSQLite {
			return "INTEGER"
		}
		return "UBIGINT"
	case reflect.Float32, reflect.Float64:
		return "DOUBLE"
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return "BLOB"
		}
	}
	return "VARCHAR"
}

// quoteIdent quotes an identifier for both DuckDB and SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (t *Table[T]) quotedColumns() string {
	quoted := make([]string, len(t.columns))
	for i, c := range t.columns {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// CreateStatement returns the CREATE TABLE statement for T.
func (t *Table[T]) CreateStatement() string {
	defs := make([]string, 0, len(t.columns)+1)
	for _, c := range t.columns {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(c), t.sqlTypes[c]))
	}
	if len(t.pkColumns) > 0 {
		pks := make([]string, len(t.pkColumns))
		for i, pk := range t.pkColumns {
			pks[i] = quoteIdent(pk)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(t.tableName), strings.Join(defs, ", "))
}

// Create creates the table if it does not exist.
func (t *Table[T]) Create(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, t.CreateStatement()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.tableName, err)
	}
	return nil
}

// Drop removes the table if it exists.
func (t *Table[T]) Drop(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(t.tableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", t.tableName, err)
	}
	return nil
}

// convertFieldValue converts a Go value to a driver parameter.
func (t *Table[T]) convertFieldValue(v any) any {
	if t.dialect != DialectSQLite {
		return v
	}
	switch val := v.(type) {
	case uint64:
		return int64(val)
	case uint:
		return int64(val)
	default:
		return v
	}
}

func (t *Table[T]) values(item *T) []any {
	val := reflect.ValueOf(item).Elem()
	values := make([]any, len(t.columns))
	for i, col := range t.columns {
		values[i] = t.convertFieldValue(val.Field(t.fieldMap[col]).Interface())
	}
	return values
}

func (t *Table[T]) insertQuery() string {
	placeholders := make([]string, len(t.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	// #nosec G201 - table and column names are not user input, they come from struct tags
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.tableName),
		t.quotedColumns(),
		strings.Join(placeholders, ", "),
	)
}

func (t *Table[T]) upsertQuery() string {
	query := t.insertQuery()
	if len(t.pkColumns) == 0 {
		return query
	}

	updates := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		if !t.isPK(col) {
			q := quoteIdent(col)
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", q, q))
		}
	}
	pks := make([]string, len(t.pkColumns))
	for i, pk := range t.pkColumns {
		pks[i] = quoteIdent(pk)
	}

	updateClause := "DO NOTHING"
	if len(updates) > 0 {
		updateClause = fmt.Sprintf("DO UPDATE SET %s", strings.Join(updates, ", "))
	}
	return query + fmt.Sprintf(" ON CONFLICT (%s) %s", strings.Join(pks, ", "), updateClause)
}

// BatchInsert inserts items in a single transaction using one prepared
// statement.
func (t *Table[T]) BatchInsert(ctx context.Context, items []*T) error {
	return t.batch(ctx, t.insertQuery(), items)
}

// BatchUpsert is BatchInsert with ON CONFLICT handling.
func (t *Table[T]) BatchUpsert(ctx context.Context, items []*T) error {
	return t.batch(ctx, t.upsertQuery(), items)
}

func (t *Table[T]) batch(ctx context.Context, query string, items []*T) (err error) {
	if len(items) == 0 {
		return nil
	}

	// Check if db is already a Tx or a DB
	var tx *sql.Tx
	switch d := t.db.(type) {
	case *sql.Tx:
		tx = d
	case *sql.DB:
		tx, err = d.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
	default:
		return fmt.Errorf("unsupported Execer type for batch insert: %T", t.db)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		if _, err = stmt.ExecContext(ctx, t.values(item)...); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}

	// Commit only if we started the tx.
	if _, started := t.db.(*sql.DB); started {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	return nil
}

// List retrieves all items matching the filters, which are simple
// "column = value" pairs combined with AND. Results are ordered by the
// primary key when the table has one.
func (t *Table[T]) List(ctx context.Context, filters map[string]any) ([]*T, error) {
	for col := range filters {
		if _, ok := t.fieldMap[col]; !ok {
			return nil, fmt.Errorf("column %s does not exist in table %s", col, t.tableName)
		}
	}

	return t.Find(ctx, func(b *Builder) {
		for _, col := range t.columns {
			if v, ok := filters[col]; ok {
				b.Where(quoteIdent(col)+" = ?", t.convertFieldValue(v))
			}
		}
		for _, pk := range t.pkColumns {
			b.OrderBy(quoteIdent(pk))
		}
	})
}

// Find retrieves the items selected by a query builder. The builder already
// selects every mapped column from the table; configure adds the filters,
// ordering and limit. Argument values are passed to the driver unchanged.
func (t *Table[T]) Find(ctx context.Context, configure func(b *Builder)) ([]*T, error) {
	b := NewQueryBuilder(quoteIdent(t.tableName))
	for _, col := range t.columns {
		b.Select(quoteIdent(col))
	}
	if configure != nil {
		configure(b)
	}

	query, args, err := b.Build()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*T
	for rows.Next() {
		item, err := t.scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of rows in the table.
func (t *Table[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(t.tableName)).Scan(&n)
	return n, err
}

// scan scans one row into a new T.
func (t *Table[T]) scan(scanFn func(dest ...any) error) (*T, error) {
	var item T
	val := reflect.ValueOf(&item).Elem()
	dest := make([]any, len(t.columns))

	for i, col := range t.columns {
		field := val.Field(t.fieldMap[col])
		if t.dialect == DialectSQLite && field.Kind() == reflect.Uint64 {
			dest[i] = &uint64Scanner{dst: field.Addr().Interface().(*uint64)}
			continue
		}
		dest[i] = field.Addr().Interface()
	}

	if err := scanFn(dest...); err != nil {
		return nil, err
	}
	return &item, nil
}

// uint64Scanner reads back uint64 values that SQLite stores as int64.
type uint64Scanner struct {
	dst *uint64
}

func (s *uint64Scanner) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s.dst = uint64(v)
	case nil:
		*s.dst = 0
	default:
		return fmt.Errorf("cannot scan %T into uint64", src)
	}
	return nil
}
