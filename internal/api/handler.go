// Package api provides the HTTP handlers for the lake query API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"pipeterm/internal/domain"
	"pipeterm/internal/service/query"
)

// maxQueryBodyBytes caps the size of a query request body.
const maxQueryBodyBytes = 1 << 20

// QueryAPI is the service surface the handlers depend on.
type QueryAPI interface {
	ListLakes(ctx context.Context) ([]string, error)
	ListFiles(ctx context.Context, lake string) ([]string, error)
	ListTables(ctx context.Context, lake string) ([]string, error)
	Execute(ctx context.Context, lake, sql string) (*domain.QueryResult, error)
	Health(ctx context.Context) (*query.HealthStatus, error)
}

// QueryRequest is the body of POST /api/v1/{lake}/query.
type QueryRequest struct {
	SQL *string `json:"sql"`
}

// Handler serves the lake API.
type Handler struct {
	svc         QueryAPI
	serviceName string
	logger      *slog.Logger
}

// NewHandler creates a Handler. serviceName appears in the root message.
func NewHandler(svc QueryAPI, serviceName string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, serviceName: serviceName, logger: logger}
}

// Routes mounts the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/healthz", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lakes", h.ListLakes)
		r.Get("/{lake}/files", h.ListFiles)
		r.Get("/{lake}/tables", h.ListTables)
		r.Post("/{lake}/query", h.Query)
	})
}

// Root reports that the service is up.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": h.serviceName + " API is running"})
}

// Health reports engine availability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Health(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ListLakes returns the lake names under the root.
func (h *Handler) ListLakes(w http.ResponseWriter, r *http.Request) {
	lakes, err := h.svc.ListLakes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(lakes))
}

// ListFiles returns the CSV file names of a lake.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context(), lakeParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(files))
}

// ListTables returns the view names the engine registered for a lake.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.ListTables(r.Context(), lakeParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tables))
}

// Query runs the posted SQL against a lake.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, domain.ErrValidation("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.SQL == nil || strings.TrimSpace(*req.SQL) == "" {
		h.writeError(w, r, domain.ErrValidation("sql query is required"))
		return
	}

	result, err := h.svc.Execute(r.Context(), lakeParam(r), *req.SQL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.Columns == nil {
		result.Columns = []string{}
	}
	if result.Rows == nil {
		result.Rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, result)
}

// lakeParam returns the decoded {lake} segment. chi routes on RawPath when
// the request carried one, so only then is the segment still escaped (e.g.
// %2E%2E) and needs unescaping before validation. Otherwise chi has already
// matched on the decoded Path and a second decode would change the name.
func lakeParam(r *http.Request) string {
	raw := chi.URLParam(r, "lake")
	if r.URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
