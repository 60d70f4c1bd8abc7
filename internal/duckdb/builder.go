package duckdb

import (
	"errors"
	"strings"
)

// Builder assembles a single-table SELECT. Table and column names are
// inserted verbatim, so callers quote them; values always travel as
// arguments.
type Builder struct {
	from    string
	cols    []string
	conds   []string
	args    []any
	orderBy []string
}

// NewQueryBuilder starts a SELECT from table.
func NewQueryBuilder(table string) *Builder {
	return &Builder{from: table}
}

// Select appends result columns. Without any, Build selects *.
func (b *Builder) Select(columns ...string) *Builder {
	b.cols = append(b.cols, columns...)
	return b
}

// Where ANDs cond into the filter. cond uses ? placeholders for args.
func (b *Builder) Where(cond string, args ...any) *Builder {
	b.conds = append(b.conds, cond)
	b.args = append(b.args, args...)
	return b
}

// Eq filters on column = value. An empty string value adds nothing.
func (b *Builder) Eq(column string, value any) *Builder {
	if s, ok := value.(string); ok && s == "" {
		return b
	}
	return b.Where(column+" = ?", value)
}

// Like filters on any of columns matching pattern with LIKE; several
// columns are ORed inside one condition. An empty pattern adds nothing.
func (b *Builder) Like(pattern string, columns ...string) *Builder {
	if pattern == "" || len(columns) == 0 {
		return b
	}
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		conds[i] = c + " LIKE ?"
		args[i] = pattern
	}
	if len(conds) == 1 {
		return b.Where(conds[0], args...)
	}
	return b.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// OrderBy appends sort keys; a leading "-" sorts that key descending.
func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, c := range columns {
		if name, desc := strings.CutPrefix(c, "-"); desc {
			c = name + " DESC"
		}
		b.orderBy = append(b.orderBy, c)
	}
	return b
}

// Build renders the query and its arguments. It leaves b unchanged.
func (b *Builder) Build() (string, []any, error) {
	if b.from == "" {
		return "", nil, errors.New("table name is required")
	}

	cols := "*"
	if len(b.cols) > 0 {
		cols = strings.Join(b.cols, ", ")
	}
	parts := []string{"SELECT", cols, "FROM", b.from}
	args := append([]any(nil), b.args...)

	if len(b.conds) > 0 {
		parts = append(parts, "WHERE", strings.Join(b.conds, " AND "))
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY", strings.Join(b.orderBy, ", "))
	}
	return strings.Join(parts, " "), args, nil
}
