// Package index manages the lifecycle of a directory's vector index: create,
// reuse, and incremental update. The index lives on disk under
// <root>/vector_store/<modelType>, so switching between local and openai
// embeddings never clobbers the other model's index.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/talkcode/talkcode-go/internal/budget"
	"github.com/talkcode/talkcode-go/internal/chunker"
	"github.com/talkcode/talkcode-go/internal/config"
	"github.com/talkcode/talkcode-go/internal/loader"
	"github.com/talkcode/talkcode-go/internal/rag"
)

var (
	// ErrNoDocuments indicates the root directory yielded nothing indexable.
	ErrNoDocuments = errors.New("index: no indexable documents found")

	// ErrStoreNotFound indicates no persisted index exists for the root.
	ErrStoreNotFound = errors.New("index: no persisted index found")
)

// addBatchSize is the number of chunks embedded and stored per batch.
// Batching keeps progress reporting granular and bounds request payloads.
const addBatchSize = 32

// ProgressFunc reports indexing progress: added chunks out of total.
type ProgressFunc func(added, total int)

// Option configures a CreateOrLoad call.
type Option func(*options)

type options struct {
	forceRecreate bool
	progress      ProgressFunc
}

// WithForceRecreate rebuilds the index even when a persisted one exists.
func WithForceRecreate() Option {
	return func(o *options) { o.forceRecreate = true }
}

// WithProgress registers a callback invoked after each stored batch.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// Manager owns the vector index for one model configuration. A single Manager
// is the only writer of its index path for the duration of a session.
type Manager struct {
	loader         *loader.Loader
	splitter       *chunker.Splitter
	embedder       rag.Embedder
	modelType      string
	embeddingModel string
	log            *slog.Logger
}

// NewManager constructs a Manager from settings and an embedder.
func NewManager(s *config.Settings, emb rag.Embedder, log *slog.Logger) (*Manager, error) {
	splitter, err := chunker.New(s.ChunkSize, s.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Manager{
		loader:         loader.New(),
		splitter:       splitter,
		embedder:       emb,
		modelType:      s.ModelType,
		embeddingModel: s.EmbeddingModel,
		log:            log,
	}, nil
}

// IndexPath returns the index directory for root under this manager's model
// type. The root is cleaned first so "./proj" and "proj" map to the same index.
func (m *Manager) IndexPath(root string) string {
	return filepath.Join(filepath.Clean(root), loader.IndexDirName, m.modelType)
}

// CreateOrLoad returns a ready vector store for root. A persisted index is
// reused without any re-embedding; otherwise the directory is loaded, chunked,
// embedded, and persisted. WithForceRecreate skips reuse and rebuilds.
func (m *Manager) CreateOrLoad(ctx context.Context, root string, opts ...Option) (rag.VectorStore, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	path := m.IndexPath(root)
	if !o.forceRecreate && rag.IndexExists(path) {
		store, err := rag.OpenChromemStore(path, m.embedder)
		if err != nil {
			return nil, err
		}
		m.log.Info("reusing persisted index",
			slog.String("path", path),
			slog.Int("chunks", store.Count()),
		)
		return store, nil
	}

	return m.create(ctx, root, path, &o)
}

// Load opens the persisted index for root without ever building one.
func (m *Manager) Load(root string) (rag.VectorStore, error) {
	path := m.IndexPath(root)
	if !rag.IndexExists(path) {
		return nil, fmt.Errorf("%w: %s (run the index command first)", ErrStoreNotFound, path)
	}
	return rag.OpenChromemStore(path, m.embedder)
}

// create builds a fresh index for root and persists it at path.
func (m *Manager) create(ctx context.Context, root, path string, o *options) (rag.VectorStore, error) {
	docs, err := m.loader.Load(root)
	if err != nil {
		return nil, fmt.Errorf("index: failed to load %s: %w", root, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, root)
	}

	m.logCostEstimate(docs)

	chunks := m.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, root)
	}

	store, err := rag.NewChromemStore(path, m.embedder)
	if err != nil {
		return nil, err
	}

	total := len(chunks)
	for start := 0; start < total; start += addBatchSize {
		end := start + addBatchSize
		if end > total {
			end = total
		}
		if err := store.Add(ctx, chunks[start:end]); err != nil {
			return nil, err
		}
		if o.progress != nil {
			o.progress(end, total)
		}
	}

	if err := store.Persist(); err != nil {
		return nil, err
	}

	m.log.Info("index created",
		slog.String("path", path),
		slog.Int("files", len(docs)),
		slog.Int("chunks", total),
	)
	return store, nil
}

// Update re-indexes the given files in an already open store: stale chunks for
// each path are evicted, fresh chunks added, and the store persisted once at
// the end. Files that are missing, unreadable, or binary are skipped with a
// warning; their previous chunks are left in place.
func (m *Manager) Update(ctx context.Context, store rag.VectorStore, paths []string) error {
	updated := 0
	for _, path := range paths {
		docs, err := m.loader.LoadSingle(path)
		if err != nil {
			return fmt.Errorf("index: failed to load %s: %w", path, err)
		}
		if len(docs) == 0 {
			m.log.Warn("skipping file with no indexable content", slog.String("path", path))
			continue
		}

		if err := store.DeleteBySource(ctx, path); err != nil {
			return err
		}
		if err := store.Add(ctx, m.splitter.Split(docs)); err != nil {
			return err
		}
		updated++
	}

	if err := store.Persist(); err != nil {
		return err
	}

	m.log.Info("index updated",
		slog.Int("files", updated),
		slog.Int("chunks", store.Count()),
	)
	return nil
}

// logCostEstimate logs the projected embedding spend before any API call is
// made. Only the openai backend bills per token; local embedding is free.
func (m *Manager) logCostEstimate(docs []loader.Document) {
	if m.modelType != config.ModelTypeOpenAI {
		return
	}
	cost, err := budget.EstimateCost(docs, m.embeddingModel)
	if errors.Is(err, budget.ErrUnknownModel) {
		m.log.Warn("model missing from pricing table, estimating at default rate",
			slog.String("model", m.embeddingModel),
		)
	}
	m.log.Info("estimated embedding cost",
		slog.Int("tokens", budget.EstimateTokens(docs)),
		slog.String("usd", fmt.Sprintf("%.6f", cost)),
	)
}
