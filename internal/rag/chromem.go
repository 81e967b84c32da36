package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
)

const (
	// collectionName is the single chromem collection holding all chunks of
	// one index. One index directory maps to one collection.
	collectionName = "chunks"

	// indexFileName is the exported index file inside the index directory.
	// The file format is owned by chromem-go; this package treats it as opaque.
	indexFileName = "index.gob"
)

// ChromemStore implements VectorStore backed by an embedded chromem-go
// database. The working set lives in memory; Persist exports it to a single
// file under the index path, which makes atomic replace (write tmp, rename)
// possible. An incrementally-written on-disk database could not give us that.
type ChromemStore struct {
	// db is the underlying in-memory chromem database.
	db *chromem.DB

	// collection holds all chunk documents.
	collection *chromem.Collection

	// indexPath is the directory the store persists into.
	indexPath string
}

// indexFile returns the full path of the exported index file for indexPath.
func indexFile(indexPath string) string {
	return filepath.Join(indexPath, indexFileName)
}

// IndexExists reports whether a persisted index exists at indexPath.
func IndexExists(indexPath string) bool {
	info, err := os.Stat(indexFile(indexPath))
	return err == nil && info.Mode().IsRegular()
}

// NewChromemStore creates a fresh, empty store that will persist to indexPath.
// The embedder is used for both document and query embedding.
func NewChromemStore(indexPath string, embedder Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("rag: failed to create collection: %w", err)
	}
	return &ChromemStore{db: db, collection: collection, indexPath: indexPath}, nil
}

// OpenChromemStore loads a previously persisted store from indexPath.
// Loading never re-embeds: the exported file carries the chunk embeddings.
func OpenChromemStore(indexPath string, embedder Embedder) (*ChromemStore, error) {
	file := indexFile(indexPath)
	db := chromem.NewDB()
	if err := db.ImportFromFile(file, ""); err != nil {
		return nil, fmt.Errorf("rag: failed to import index %s: %w", file, err)
	}

	// The embedding function cannot be serialised; reattach it on load.
	collection := db.GetCollection(collectionName, embeddingFunc(embedder))
	if collection == nil {
		return nil, fmt.Errorf("rag: index %s has no %q collection", file, collectionName)
	}

	return &ChromemStore{db: db, collection: collection, indexPath: indexPath}, nil
}

// Add embeds and stores a batch of chunks.
func (s *ChromemStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	cdocs := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		cdocs = append(cdocs, chromem.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: map[string]string{"source": d.Source},
		})
	}

	if err := s.collection.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("rag: failed to add documents: %w", err)
	}
	return nil
}

// Search performs a similarity search and returns the topK most relevant
// chunks in descending similarity order. topK is clamped to the stored chunk
// count; an empty store returns an empty result.
func (s *ChromemStore) Search(ctx context.Context, query string, topK int) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: similarity search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{
			ID:      r.ID,
			Content: r.Content,
			Source:  r.Metadata["source"],
			Score:   r.Similarity,
		})
	}
	return docs, nil
}

// DeleteBySource removes every chunk whose source metadata equals source.
func (s *ChromemStore) DeleteBySource(ctx context.Context, source string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	err := s.collection.Delete(ctx, map[string]string{"source": source}, nil)
	if err != nil {
		return fmt.Errorf("rag: failed to delete chunks for %s: %w", source, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// Persist exports the store to <indexPath>/index.gob. The export is written
// to a temp file first and renamed into place, so a failed write leaves the
// previous index untouched.
func (s *ChromemStore) Persist() error {
	if err := os.MkdirAll(s.indexPath, 0o755); err != nil {
		return fmt.Errorf("rag: failed to create index directory %s: %w", s.indexPath, err)
	}

	file := indexFile(s.indexPath)
	tmp := file + ".tmp"
	if err := s.db.ExportToFile(tmp, false, "", collectionName); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rag: failed to export index: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rag: failed to replace index %s: %w", file, err)
	}
	return nil
}

// embeddingFunc adapts a batch Embedder to chromem's per-text callback.
func embeddingFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("rag: embedder returned %d vectors for one text", len(vectors))
		}
		return vectors[0], nil
	}
}
