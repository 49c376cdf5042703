//go:build ignore

// Store integrity check for operators: verifies the audit chain and
// cross-checks baseline_metadata record counts against the actual rows.
//
// Usage: go run scripts/check_store.go -db path/to/project.db
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/example/stpactl/internal/audit"
	"github.com/example/stpactl/internal/store"
)

func main() {
	dbPath := flag.String("db", "project.db", "path to the store file")
	flag.Parse()

	if err := run(*dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "check failed:", err)
		os.Exit(1)
	}
	fmt.Println("✓ Store checks passed")
}

func run(dbPath string) error {
	ctx := context.Background()

	st, err := store.OpenReadOnly(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := audit.NewLog().Verify(ctx, st.DB()); err != nil {
		return err
	}
	fmt.Println("audit chain: ok")

	rows, err := st.DB().QueryContext(ctx,
		"SELECT baseline_name, record_count FROM baseline_metadata")
	if err != nil {
		return err
	}
	defer rows.Close()

	type meta struct {
		name  string
		count int
	}
	var baselines []meta
	for rows.Next() {
		var m meta
		if err := rows.Scan(&m.name, &m.count); err != nil {
			return err
		}
		baselines = append(baselines, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range baselines {
		actual := 0
		for _, table := range store.BaselineTables() {
			var count int
			err := st.DB().QueryRowContext(ctx,
				fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE baseline = ?", table.Name), m.name).
				Scan(&count)
			if err != nil {
				return err
			}
			actual += count
		}
		if actual != m.count {
			return fmt.Errorf("baseline %s: metadata says %d records, found %d", m.name, m.count, actual)
		}
		fmt.Printf("baseline %s: %d records ok\n", m.name, actual)
	}

	return nil
}
