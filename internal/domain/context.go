package domain

import "context"

type requestIDKey struct{}

// WithRequestID stores the HTTP request ID in the context so that services
// can tag their log lines without depending on the middleware package.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
