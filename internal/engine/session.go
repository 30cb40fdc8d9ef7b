package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"pipeterm/internal/ddl"
	"pipeterm/internal/domain"
	"pipeterm/internal/lake"
)

type sessionState int

const (
	stateOpen sessionState = iota
	stateClosed
)

func (s sessionState) String() string {
	if s == stateOpen {
		return "open"
	}
	return "closed"
}

// Session is one request's exclusive engine handle plus the views registered
// on it. A Session is not shared between goroutines in normal use; the mutex
// only makes Close safe to call while another call is still running.
type Session struct {
	gateway *Gateway
	lake    domain.Lake

	mu    sync.Mutex
	state sessionState
	db    *sql.DB
	views []domain.View
}

// Lake returns the lake the session was opened against.
func (s *Session) Lake() domain.Lake { return s.lake }

// Views returns the views registered on the session, one per distinct name.
func (s *Session) Views() []domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.View, len(s.views))
	copy(out, s.views)
	return out
}

// ListTables returns the table and view names the engine reports, in the
// engine's order.
func (s *Session) ListTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("list tables"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, ddl.ShowTables)
	if err != nil {
		return nil, domain.ErrEngine(err, "list tables")
	}
	defer rows.Close() //nolint:errcheck

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrEngine(err, "scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrEngine(err, "list tables")
	}
	return tables, nil
}

// Execute runs query verbatim and materializes the whole result. Any error
// the engine raises while preparing or streaming the statement comes back as
// a QueryError carrying the engine's message; no partial result is returned.
//
// Results are built fully in memory. That is fine for the small CSV sets a
// lake holds, and is the first thing to revisit for larger data.
func (s *Session) Execute(ctx context.Context, query string) (*domain.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("execute"); err != nil {
		return nil, err
	}

	timeout := s.gateway.queryTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := s.run(ctx, query)
	if err != nil && timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, domain.ErrQuery(fmt.Errorf("query exceeded timeout of %s: %w", timeout, err))
	}
	return result, err
}

func (s *Session) run(ctx context.Context, query string) (*domain.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.ErrQuery(err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrEngine(err, "read result columns")
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, domain.ErrEngine(err, "read result column types")
	}
	types := make([]string, len(colTypes))
	for i, ct := range colTypes {
		types[i] = ct.DatabaseTypeName()
	}

	result := &domain.QueryResult{Columns: cols, Rows: []map[string]any{}}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domain.ErrQuery(err)
		}
		result.Rows = append(result.Rows, shapeRow(cols, types, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrQuery(err)
	}
	return result, nil
}

// Close releases the engine handle. Only the first call does any work;
// later calls return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	s.gateway.live.Add(-1)
	return s.db.Close()
}

func (s *Session) checkOpen(op string) error {
	if s.state != stateOpen {
		return domain.ErrInvalidState("cannot %s: session for lake %q is %s", op, s.lake.Name, s.state)
	}
	return nil
}

// registerViews creates a view per file in listing order. DuckDB compares
// identifiers case-insensitively, so Orders.csv and orders.csv map to the same
// view: the file registered last wins and the earlier view is replaced without
// error. That policy is kept deliberately until someone decides otherwise.
func (s *Session) registerViews(ctx context.Context, files []string) error {
	seen := make(map[string]int, len(files))
	for _, f := range files {
		view := domain.View{
			Name: lake.ViewName(f),
			Path: filepath.Join(s.lake.Path, f),
		}
		stmt, err := ddl.CreateCSVView(view.Name, view.Path)
		if err != nil {
			return domain.ErrEngine(err, "build view for %q", f)
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.ErrEngine(err, "register view %q", view.Name)
		}

		key := strings.ToLower(view.Name)
		if i, ok := seen[key]; ok {
			s.gateway.logger.Debug("view replaced by later file",
				"lake", s.lake.Name, "view", view.Name,
				"replaced", s.views[i].Path, "by", view.Path)
			s.views[i] = view
			continue
		}
		seen[key] = len(s.views)
		s.views = append(s.views, view)
	}
	return nil
}
