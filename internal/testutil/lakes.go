package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// PeopleCSV is a three-row fixture with an integer column.
const PeopleCSV = "Name,Age,Occupation\nAlice,28,Engineer\nBob,35,Designer\nCharlie,42,Teacher\n"

// WriteLake creates <root>/<name> holding the given files (name → content).
// A nil map creates an empty lake.
func WriteLake(t testing.TB, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create lake %s: %v", name, err)
	}
	for f, body := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s/%s: %v", name, f, err)
		}
	}
	return dir
}
