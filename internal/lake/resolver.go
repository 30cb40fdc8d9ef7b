// Package lake maps lake names onto directories under a configured root and
// enumerates the CSV files they hold.
//
// The resolver never writes: lakes are created and filled by ingestion jobs
// that run outside this service.
package lake

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pipeterm/internal/domain"
)

// maxNameLen bounds a lake name to what common filesystems accept for a
// single path segment.
const maxNameLen = 255

// Compile-time check.
var _ domain.LakeResolver = (*Resolver)(nil)

// Resolver resolves lake names relative to a fixed root directory.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver rooted at root. The root is injected rather
// than read from process state so tests can point it at a temporary directory.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the directory lakes are resolved against.
func (r *Resolver) Root() string { return r.root }

// ValidateName checks that name is usable as exactly one path segment under
// the root. Separators and dot segments are rejected so a name can
// never escape the root.
func ValidateName(name string) error {
	switch {
	case name == "":
		return domain.ErrValidation("lake name is required")
	case name == "." || name == "..":
		return domain.ErrValidation("invalid lake name %q", name)
	case len(name) > maxNameLen:
		return domain.ErrValidation("lake name must be at most %d characters", maxNameLen)
	case strings.ContainsAny(name, `/\`):
		return domain.ErrValidation("lake name %q must not contain path separators", name)
	case strings.ContainsRune(name, 0):
		return domain.ErrValidation("lake name must not contain NUL bytes")
	}
	return nil
}

// Resolve returns the lake named name, or a NotFoundError when its directory
// does not exist or is not a directory.
func (r *Resolver) Resolve(ctx context.Context, name string) (domain.Lake, error) {
	if err := ctx.Err(); err != nil {
		return domain.Lake{}, err
	}
	if err := ValidateName(name); err != nil {
		return domain.Lake{}, err
	}

	path := filepath.Join(r.root, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Lake{}, domain.ErrNotFound("lake %q not found", name)
		}
		return domain.Lake{}, domain.ErrEngine(err, "stat lake %q", name)
	}
	if !info.IsDir() {
		return domain.Lake{}, domain.ErrNotFound("lake %q not found", name)
	}
	return domain.Lake{Name: name, Path: path}, nil
}

// ListFiles returns the names of the CSV files directly inside the lake.
// Sub-directories are ignored, as is a file named just ".csv" (it has no stem
// to name a view after). Names come back in os.ReadDir order, which is sorted
// by file name.
func (r *Resolver) ListFiles(ctx context.Context, name string) ([]string, error) {
	lk, err := r.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(lk.Path)
	if err != nil {
		return nil, domain.ErrEngine(err, "list lake %q", name)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !IsDataFile(e.Name()) {
			continue
		}
		if e.IsDir() {
			continue
		}
		if e.Type()&fs.ModeSymlink != 0 {
			// Follow links so a linked directory named foo.csv is still skipped.
			info, err := os.Stat(filepath.Join(lk.Path, e.Name()))
			if err != nil || info.IsDir() {
				continue
			}
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// ListLakes returns the names of the lake directories under the root, skipping
// hidden entries. A missing root yields an empty list.
func (r *Resolver) ListLakes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, domain.ErrEngine(err, "list lake root")
	}

	lakes := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() {
			continue
		}
		lakes = append(lakes, e.Name())
	}
	return lakes, nil
}

// IsDataFile reports whether a file name carries the CSV suffix and a
// non-empty stem. The suffix match is case-insensitive.
func IsDataFile(name string) bool {
	return len(name) > len(domain.CSVExtension) &&
		strings.EqualFold(filepath.Ext(name), domain.CSVExtension)
}

// ViewName derives the view name for a data file by stripping its extension.
func ViewName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
