// Package ddl builds the DuckDB statements a session issues on its own behalf.
package ddl

import (
	"fmt"
)

// ShowTables lists every table and view visible in the session's default schema.
const ShowTables = "SHOW TABLES"

// CreateCSVView returns a DuckDB DDL statement registering a read-only view
// over a single CSV file, with schema inference left to the engine:
//
//	CREATE OR REPLACE VIEW "<name>" AS SELECT * FROM read_csv_auto('<path>')
//
// OR REPLACE makes a later registration of the same name win silently, which
// is how stem collisions inside a lake are resolved.
func CreateCSVView(name, path string) (string, error) {
	if err := ValidateViewName(name); err != nil {
		return "", fmt.Errorf("invalid view name: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("source path is required")
	}
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_csv_auto(%s)",
		QuoteIdentifier(name),
		QuoteLiteral(path),
	), nil
}
