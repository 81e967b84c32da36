package rag

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeEmbedder produces deterministic, content-dependent vectors so similarity
// search has something real to rank without any network calls. The store
// embeds documents concurrently, so the call counter is mutex-guarded.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls += len(texts)
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 8)
		for j := 0; j < len(text); j++ {
			v[j%8] += float32(text[j])
		}
		v[0]++ // never the zero vector, even for empty text
		out[i] = v
	}
	return out, nil
}

func testDocs() []Document {
	return []Document{
		{ID: "1", Content: "func Add(a, b int) int { return a + b }", Source: "/src/math.go"},
		{ID: "2", Content: "func Sub(a, b int) int { return a - b }", Source: "/src/math.go"},
		{ID: "3", Content: "def greet(name): return 'hello ' + name", Source: "/src/greet.py"},
	}
}

func Test_ChromemStore_AddAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewChromemStore(t.TempDir(), &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(ctx, testDocs()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := store.Count(); got != 3 {
		t.Fatalf("count: got %d, want 3", got)
	}

	results, err := store.Search(ctx, "greet", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Source == "" {
			t.Errorf("result %s has no source", r.ID)
		}
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by score: %v >= %v expected", results[0].Score, results[1].Score)
	}
}

func Test_ChromemStore_SearchClampsTopK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewChromemStore(t.TempDir(), &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(ctx, testDocs()); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := store.Search(ctx, "anything", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("results: got %d, want all 3", len(results))
	}
}

func Test_ChromemStore_SearchEmptyStore(t *testing.T) {
	t.Parallel()

	store, err := NewChromemStore(t.TempDir(), &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	results, err := store.Search(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results: got %d, want 0", len(results))
	}
}

func Test_ChromemStore_DeleteBySource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewChromemStore(t.TempDir(), &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(ctx, testDocs()); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.DeleteBySource(ctx, "/src/math.go"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := store.Count(); got != 1 {
		t.Fatalf("count after delete: got %d, want 1", got)
	}

	results, err := store.Search(ctx, "greet", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Source != "/src/greet.py" {
		t.Errorf("unexpected survivor: %+v", results)
	}
}

func Test_ChromemStore_PersistAndReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	indexPath := filepath.Join(t.TempDir(), "vector_store", "local")

	if IndexExists(indexPath) {
		t.Fatal("index should not exist yet")
	}

	store, err := NewChromemStore(indexPath, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(ctx, testDocs()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if !IndexExists(indexPath) {
		t.Fatal("index file missing after persist")
	}

	// Reopening must not re-embed stored chunks.
	reopenEmbedder := &fakeEmbedder{}
	reopened, err := OpenChromemStore(indexPath, reopenEmbedder)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if got := reopened.Count(); got != 3 {
		t.Fatalf("count after reopen: got %d, want 3", got)
	}
	if reopenEmbedder.calls != 0 {
		t.Errorf("reopen triggered %d embed calls, want 0", reopenEmbedder.calls)
	}

	// The reattached embedder serves query embedding.
	results, err := reopened.Search(ctx, "subtract integers", 2)
	if err != nil {
		t.Fatalf("search after reopen: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results after reopen: got %d, want 2", len(results))
	}
	if reopenEmbedder.calls != 1 {
		t.Errorf("query embed calls: got %d, want 1", reopenEmbedder.calls)
	}
}

func Test_ChromemStore_PersistLeavesNoTempFile(t *testing.T) {
	t.Parallel()
	indexPath := filepath.Join(t.TempDir(), "vector_store", "openai")

	store, err := NewChromemStore(indexPath, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(context.Background(), testDocs()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	entries, err := os.ReadDir(indexPath)
	if err != nil {
		t.Fatalf("read index dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != indexFileName {
		t.Errorf("unexpected index dir contents: %v", entries)
	}
}

func Test_ChromemStore_FailedPersistKeepsPreviousIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	indexPath := filepath.Join(t.TempDir(), "vector_store", "local")

	store, err := NewChromemStore(indexPath, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(ctx, testDocs()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	// Block the export target with a non-empty directory so the next
	// persist cannot write its temp file.
	tmp := indexFile(indexPath) + ".tmp"
	if err := os.MkdirAll(filepath.Join(tmp, "block"), 0o755); err != nil {
		t.Fatal(err)
	}

	extra := Document{ID: "4", Content: "func Mul(a, b int) int { return a * b }", Source: "/src/mul.go"}
	if err := store.Add(ctx, []Document{extra}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Persist(); err == nil {
		t.Fatal("expected persist to fail")
	}

	// The previously persisted index is still authoritative on disk.
	reopened, err := OpenChromemStore(indexPath, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("open after failed persist: %v", err)
	}
	if got := reopened.Count(); got != 3 {
		t.Errorf("count after failed persist: got %d, want the original 3", got)
	}
}

func Test_OpenChromemStore_MissingIndex(t *testing.T) {
	t.Parallel()
	_, err := OpenChromemStore(filepath.Join(t.TempDir(), "nope"), &fakeEmbedder{})
	if err == nil {
		t.Fatal("expected error for missing index")
	}
}
