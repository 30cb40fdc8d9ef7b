package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
)

// Opener allocates a fresh, empty engine handle. Every call must return a
// handle that shares no state with any other handle.
type Opener func(ctx context.Context) (*sql.DB, error)

// DuckDBOpener opens a private in-memory DuckDB database. An empty DSN gives
// each call its own database, and pinning the pool to a single connection
// keeps every statement of a session on the same engine connection.
func DuckDBOpener(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}
