// Package rag defines the types and interfaces for retrieval-augmented
// answering: document chunks, embedding, and vector storage. The concrete
// store (chromem-go) satisfies these interfaces so the index manager and the
// query engine never depend on a specific backend.
package rag

import (
	"context"
)

// Document represents one stored or retrieved chunk of source content.
type Document struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the file path the chunk was derived from. Every chunk traces
	// back to exactly one source file; provenance reporting relies on this.
	Source string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// A store is owned by a single index manager per session; no concurrent
// writers are assumed.
type VectorStore interface {
	// Add embeds and stores a batch of chunks.
	Add(ctx context.Context, docs []Document) error

	// Search returns the topK chunks most similar to the query, ordered by
	// descending relevance. topK is clamped to the number of stored chunks;
	// an empty store yields an empty result, not an error.
	Search(ctx context.Context, query string, topK int) ([]Document, error)

	// DeleteBySource removes every chunk whose Source equals source.
	// This is the store's only delete operation: it evicts stale chunks
	// after a file edit so old content can never be retrieved again.
	DeleteBySource(ctx context.Context, source string) error

	// Count returns the number of stored chunks.
	Count() int

	// Persist writes the store to its index path atomically: either the
	// write succeeds completely or the previous on-disk index remains
	// authoritative.
	Persist() error
}
