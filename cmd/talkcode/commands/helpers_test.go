package commands

import (
	"path/filepath"
	"testing"
)

func TestResolveFiles(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/service")
	got := resolveFiles(root, []string{
		"handler.go",
		filepath.FromSlash("/elsewhere/x.go"),
		filepath.FromSlash("sub/../router.go"),
	})

	want := []string{
		filepath.Join(root, "handler.go"),
		filepath.FromSlash("/elsewhere/x.go"),
		filepath.Join(root, "router.go"),
	}
	if len(got) != len(want) {
		t.Fatalf("paths: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveFiles_Empty(t *testing.T) {
	t.Parallel()

	if got := resolveFiles("/work", nil); len(got) != 0 {
		t.Errorf("paths: got %v, want none", got)
	}
}
