// Package query renders query results as tables, CSV or JSON.
package query

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
)

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be table, csv, or json)", s)
	}
}

// Write renders res to w.
func Write(w io.Writer, f Format, res *catalog.Result) error {
	switch f {
	case FormatTable, "":
		if err := WriteTable(w, res); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%s\n", Summary(len(res.Rows), 0))
		return err
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatJSON:
		return WriteJSON(w, res)
	default:
		return fmt.Errorf("invalid format: %s (must be table, csv, or json)", f)
	}
}

// WriteTable prints a header, a separator and one aligned line per row.
func WriteTable(w io.Writer, res *catalog.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))

	sep := make([]string, len(res.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))

	cells := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, val := range row {
			cells[i] = escapeCell(FormatValue(val))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return tw.Flush()
}

// escapeCell keeps a value on one tabwriter cell.
func escapeCell(s string) string {
	return strings.NewReplacer("\t", `\t`, "\n", `\n`).Replace(s)
}

// WriteCSV prints a header record followed by one record per row.
func WriteCSV(w io.Writer, res *catalog.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, val := range row {
			record[i] = FormatValue(val)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON prints an indented array with one object per row.
func WriteJSON(w io.Writer, res *catalog.Result) error {
	results := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		obj := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			obj[col] = jsonValue(row[i])
		}
		results = append(results, obj)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func jsonValue(val any) any {
	switch v := val.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}

// FormatValue formats a value for display in table or CSV output.
func FormatValue(val any) string {
	if val == nil {
		return "NULL"
	}

	switch v := val.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Summary returns the row-count footer, with the duration when non-zero.
func Summary(rows int, d time.Duration) string {
	noun := "rows"
	if rows == 1 {
		noun = "row"
	}
	if d > 0 {
		return fmt.Sprintf("(%d %s in %s)", rows, noun, d.Round(time.Millisecond))
	}
	return fmt.Sprintf("(%d %s)", rows, noun)
}
