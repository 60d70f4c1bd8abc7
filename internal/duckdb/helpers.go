package duckdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InterpolateQuery renders query on one line with each ? placeholder
// replaced by the SQL literal for the matching argument. It is meant for
// log output only; placeholders inside quoted literals are left alone.
func InterpolateQuery(query string, args []any) string {
	var b strings.Builder
	b.Grow(len(query))

	next := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote && next < len(args):
			b.WriteString(sqlLiteral(args[next]))
			next++
		default:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		// Round(0) strips the monotonic reading.
		return quote(x.Round(0).Format(time.RFC3339Nano))
	case []byte:
		return quote(string(x))
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
