// Package testutil provides shared fixtures and mock implementations of
// domain interfaces for use in tests across the codebase.
package testutil

import (
	"context"

	"pipeterm/internal/domain"
)

var _ domain.LakeResolver = (*MockLakeResolver)(nil)

// MockLakeResolver implements domain.LakeResolver for testing. Unset
// functions report the lake as not found.
type MockLakeResolver struct {
	ResolveFn   func(ctx context.Context, name string) (domain.Lake, error)
	ListFilesFn func(ctx context.Context, name string) ([]string, error)
	ListLakesFn func(ctx context.Context) ([]string, error)
}

// Resolve implements the interface method for testing.
func (m *MockLakeResolver) Resolve(ctx context.Context, name string) (domain.Lake, error) {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, name)
	}
	return domain.Lake{}, domain.ErrNotFound("lake %q not found", name)
}

// ListFiles implements the interface method for testing.
func (m *MockLakeResolver) ListFiles(ctx context.Context, name string) ([]string, error) {
	if m.ListFilesFn != nil {
		return m.ListFilesFn(ctx, name)
	}
	return nil, domain.ErrNotFound("lake %q not found", name)
}

// ListLakes implements the interface method for testing.
func (m *MockLakeResolver) ListLakes(ctx context.Context) ([]string, error) {
	if m.ListLakesFn != nil {
		return m.ListLakesFn(ctx)
	}
	return []string{}, nil
}
