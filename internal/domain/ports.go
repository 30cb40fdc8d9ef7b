package domain

import "context"

// LakeResolver maps lake names to directories and enumerates their files.
// Implemented by lake.Resolver.
type LakeResolver interface {
	Resolve(ctx context.Context, name string) (Lake, error)
	ListFiles(ctx context.Context, name string) ([]string, error)
	ListLakes(ctx context.Context) ([]string, error)
}
