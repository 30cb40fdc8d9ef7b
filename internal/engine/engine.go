// Package engine turns a lake directory into a short-lived, queryable DuckDB
// session. A Gateway opens one private in-memory handle per session, registers
// a view per CSV file, and guarantees the handle is released when the session
// ends, whatever the outcome.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"pipeterm/internal/domain"
)

// Gateway creates sessions against lakes. It holds no per-session state; the
// only shared field is the live-session counter.
type Gateway struct {
	resolver     domain.LakeResolver
	open         Opener
	queryTimeout time.Duration
	logger       *slog.Logger

	live atomic.Int64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithOpener replaces the DuckDB opener, e.g. with a go-sqlmock handle in tests.
func WithOpener(open Opener) Option {
	return func(g *Gateway) { g.open = open }
}

// WithQueryTimeout bounds each Execute call. Zero lets statements run to
// completion.
func WithQueryTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.queryTimeout = d }
}

// NewGateway creates a Gateway that resolves lakes with resolver.
func NewGateway(resolver domain.LakeResolver, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{resolver: resolver, open: DuckDBOpener, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OpenSessions returns the number of sessions whose handle has not been
// released yet. It is zero whenever no request is in flight.
func (g *Gateway) OpenSessions() int64 { return g.live.Load() }

// Open resolves the lake, allocates a new engine handle and registers one
// view per CSV file. A missing lake fails before any handle is allocated. If
// registration fails the handle is closed before the error is returned.
func (g *Gateway) Open(ctx context.Context, lakeName string) (*Session, error) {
	lk, err := g.resolver.Resolve(ctx, lakeName)
	if err != nil {
		return nil, err
	}
	files, err := g.resolver.ListFiles(ctx, lakeName)
	if err != nil {
		return nil, err
	}

	db, err := g.open(ctx)
	if err != nil {
		return nil, domain.ErrEngine(err, "open engine handle")
	}
	g.live.Add(1)

	s := &Session{gateway: g, lake: lk, db: db, state: stateOpen}
	if err := s.registerViews(ctx, files); err != nil {
		if cerr := s.Close(); cerr != nil {
			g.logger.Warn("close session after failed registration", "lake", lakeName, "error", cerr)
		}
		return nil, err
	}

	g.logger.Debug("session opened",
		"lake", lakeName,
		"views", len(s.views),
		"request_id", domain.RequestIDFromContext(ctx),
	)
	return s, nil
}

// WithSession opens a session, passes it to fn and closes it on every exit
// path, including a panic inside fn. A close failure is reported only when fn
// itself succeeded.
func (g *Gateway) WithSession(ctx context.Context, lakeName string, fn func(*Session) error) (err error) {
	s, err := g.Open(ctx, lakeName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = domain.ErrEngine(cerr, "close session")
		}
	}()
	return fn(s)
}

// Version opens a throw-away handle, asks the engine for its version and
// releases the handle again. Used by the health endpoint.
func (g *Gateway) Version(ctx context.Context) (string, error) {
	db, err := g.open(ctx)
	if err != nil {
		return "", domain.ErrEngine(err, "open engine handle")
	}
	defer db.Close() //nolint:errcheck

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", domain.ErrEngine(err, "read engine version")
	}
	return version, nil
}
