package queryengine

import (
	"database/sql"
	"fmt"
	"strings"
)

// eachRow scans every row into a reused value slice and hands it to fn.
// []byte cells are converted to strings before fn sees them.
func eachRow(rows *sql.Rows, fn func(columns []string, values []any)) error {
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read result columns: %w", err)
	}

	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	for n := 1; rows.Next(); n++ {
		clear(values)
		if err := rows.Scan(targets...); err != nil {
			return fmt.Errorf("scan result row %d: %w", n, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		fn(columns, values)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate result rows: %w", err)
	}
	return nil
}

// ScanRows reads a statistics result into column-keyed maps.
func ScanRows(rows *sql.Rows) ([]map[string]any, error) {
	result := make([]map[string]any, 0)
	err := eachRow(rows, func(columns []string, values []any) {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ScanText joins the first column of every row with newlines. Engines that
// return text plans spread them over many rows; NULL rows are skipped.
func ScanText(rows *sql.Rows) (string, error) {
	var lines []string
	err := eachRow(rows, func(_ []string, values []any) {
		if len(values) == 0 || values[0] == nil {
			return
		}
		if s, ok := values[0].(string); ok {
			lines = append(lines, s)
			return
		}
		lines = append(lines, fmt.Sprint(values[0]))
	})
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
