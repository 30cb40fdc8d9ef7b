// Package query implements the lake listing and query execution service used
// by the HTTP layer.
package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pipeterm/internal/domain"
	"pipeterm/internal/engine"
)

// HealthStatus is the payload returned by the health check.
type HealthStatus struct {
	Status        string `json:"status"`
	DuckDBVersion string `json:"duckdb_version"`
	LakeRoot      string `json:"lake_root"`
}

// QueryService opens one engine session per call and always releases it
// before returning.
//
//nolint:revive // Name chosen for clarity across package boundaries
type QueryService struct {
	lakes    domain.LakeResolver
	gateway  *engine.Gateway
	lakeRoot string
	logger   *slog.Logger
}

// NewQueryService creates a new QueryService.
func NewQueryService(lakes domain.LakeResolver, gateway *engine.Gateway, lakeRoot string, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{lakes: lakes, gateway: gateway, lakeRoot: lakeRoot, logger: logger}
}

// ListLakes returns the lakes under the configured root.
func (s *QueryService) ListLakes(ctx context.Context) ([]string, error) {
	return s.lakes.ListLakes(ctx)
}

// ListFiles returns the CSV file names of a lake without opening the engine.
func (s *QueryService) ListFiles(ctx context.Context, lake string) ([]string, error) {
	return s.lakes.ListFiles(ctx, lake)
}

// ListTables returns the names of the views the engine registered for lake.
func (s *QueryService) ListTables(ctx context.Context, lake string) ([]string, error) {
	var tables []string
	err := s.gateway.WithSession(ctx, lake, func(sess *engine.Session) error {
		var err error
		tables, err = sess.ListTables(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// Execute runs sqlQuery against lake and returns the fully materialized result.
func (s *QueryService) Execute(ctx context.Context, lake, sqlQuery string) (*domain.QueryResult, error) {
	if strings.TrimSpace(sqlQuery) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}

	start := time.Now()
	var result *domain.QueryResult
	err := s.gateway.WithSession(ctx, lake, func(sess *engine.Session) error {
		var err error
		result, err = sess.Execute(ctx, sqlQuery)
		return err
	})
	duration := time.Since(start).Milliseconds()

	if err != nil {
		s.logger.Info("query failed",
			"lake", lake,
			"duration_ms", duration,
			"error", err,
			"request_id", domain.RequestIDFromContext(ctx),
		)
		return nil, err
	}

	s.logger.Info("query executed",
		"lake", lake,
		"duration_ms", duration,
		"row_count", result.RowCount(),
		"request_id", domain.RequestIDFromContext(ctx),
	)
	return result, nil
}

// Health reports the engine version. The handle used for the check is closed
// before Health returns.
func (s *QueryService) Health(ctx context.Context) (*HealthStatus, error) {
	version, err := s.gateway.Version(ctx)
	if err != nil {
		return nil, err
	}
	return &HealthStatus{Status: "ok", DuckDBVersion: version, LakeRoot: s.lakeRoot}, nil
}
