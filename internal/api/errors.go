package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"pipeterm/internal/domain"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Detail string `json:"detail"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var query *domain.QueryError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &query):
		return http.StatusBadRequest
	default:
		// EngineError, InvalidStateError and anything unclassified.
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"detail": ...}. The message is passed through
// unchanged, including for 500s.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", domain.RequestIDFromContext(r.Context()),
		)
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}

// recoverer turns a handler panic into a logged 500 carrying the usual
// {"detail": ...} body. http.ErrAbortHandler is re-raised so net/http can
// abort the connection.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared as in net/http
					panic(rec)
				}
				logger.Error("handler panicked",
					"path", r.URL.Path,
					"panic", rec,
					"request_id", domain.RequestIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal Server Error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
