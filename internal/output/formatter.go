// Package output renders query records for the terminal.
//
// Supported formats:
//   - table: aligned columns (default)
//   - csv: comma-separated values with a header row
//   - json: JSON Lines, one record per line
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// Formatter writes rows with the given column order.
type Formatter interface {
	Format(columns []string, rows []map[string]any) error
}

// New returns the formatter for format.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, csv or json)", format)
	}
}

// Rows flattens records to column maps, dropping the attributes block.
func Rows(records []domain.Record) []map[string]any {
	rows := make([]map[string]any, len(records))
	for i, r := range records {
		rows[i] = r.Values
	}
	return rows
}

// Columns orders the union of row keys: preferred names first, in order,
// then any remaining keys sorted.
func Columns(preferred []string, rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, p := range preferred {
		if seen[p] && !slices.Contains(columns, p) {
			columns = append(columns, p)
		}
	}
	var rest []string
	for col := range seen {
		if !slices.Contains(columns, col) {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// formatValue converts a value to a single cell.
func formatValue(v any) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any, []any:
		// Relationship fields and nested results
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
