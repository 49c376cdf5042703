package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx so row helpers can
// run inside or outside a transaction.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Row is one table row keyed by column name.
type Row map[string]any

// WorkingRows loads every Working row of a table keyed by surrogate id,
// along with the table's column order. This is the generic row access
// the snapshot and merge paths share; column names come from the result
// set, not from PRAGMA reflection.
func WorkingRows(ctx context.Context, q Queryer, table string) ([]string, map[int64]Row, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE baseline = ?", table), WorkingBaseline)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s columns: %w", table, err)
	}

	byID := make(map[int64]Row)
	for rows.Next() {
		values := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}

		id, ok := row["id"].(int64)
		if !ok {
			return nil, nil, fmt.Errorf("table %s has no integer id column", table)
		}
		byID[id] = row
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}

	return cols, byID, nil
}

// InsertRowExceptID inserts a row verbatim with a freshly assigned
// surrogate id.
func InsertRowExceptID(ctx context.Context, q Queryer, table string, cols []string, row Row) error {
	names := make([]string, 0, len(cols))
	marks := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		if col == "id" {
			continue
		}
		names = append(names, col)
		marks = append(marks, "?")
		args = append(args, row[col])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// CloneWorkingRows duplicates every Working row of a table under a new
// baseline label, preserving all columns except the surrogate id.
func CloneWorkingRows(ctx context.Context, q Queryer, table, newBaseline string) (int, error) {
	cols, byID, err := WorkingRows(ctx, q, table)
	if err != nil {
		return 0, err
	}

	cloned := 0
	for _, row := range byID {
		clone := make(Row, len(row))
		for k, v := range row {
			clone[k] = v
		}
		clone["baseline"] = newBaseline
		if err := InsertRowExceptID(ctx, q, table, cols, clone); err != nil {
			return cloned, err
		}
		cloned++
	}
	return cloned, nil
}

// RowsByHierarchy loads every row of a table under one baseline label,
// keyed by system_hierarchy. Surrogate ids are reassigned when rows are
// cloned into a baseline, so cross-baseline comparison keys on the
// stable hierarchical identity instead.
func RowsByHierarchy(ctx context.Context, q Queryer, table, baselineName string) (map[string]Row, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE baseline = ?", table), baselineName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s columns: %w", table, err)
	}

	byHierarchy := make(map[string]Row)
	for rows.Next() {
		values := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}

		hierarchy, ok := row["system_hierarchy"].(string)
		if !ok {
			return nil, fmt.Errorf("table %s has no system_hierarchy column", table)
		}
		byHierarchy[hierarchy] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}

	return byHierarchy, nil
}

// CountWorkingRows counts Working rows in a table.
func CountWorkingRows(ctx context.Context, q Queryer, table string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE baseline = ?", table), WorkingBaseline).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", table, err)
	}
	return count, nil
}

// IgnoredDiffColumns are the columns expected to differ between two
// copies of the same logical row: surrogate id, baseline label, and
// audit timestamps.
var IgnoredDiffColumns = map[string]bool{
	"id":         true,
	"baseline":   true,
	"created_at": true,
	"updated_at": true,
}

// RowsDiffer reports whether two rows disagree on any column outside
// IgnoredDiffColumns.
func RowsDiffer(a, b Row) bool {
	for col, av := range a {
		if IgnoredDiffColumns[col] {
			continue
		}
		if av != b[col] {
			return true
		}
	}
	return false
}

// normalize folds driver byte slices to strings so row values compare
// with plain equality.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
