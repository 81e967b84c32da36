// Package chunker splits loaded documents into fixed-size overlapping chunks
// ready for embedding. Chunk IDs are deterministic, so re-splitting the same
// file always yields the same IDs.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/talkcode/talkcode-go/internal/loader"
	"github.com/talkcode/talkcode-go/internal/rag"
)

// ErrInvalidConfig indicates a chunk size or overlap that cannot produce
// forward progress.
var ErrInvalidConfig = errors.New("chunker: invalid configuration")

// Splitter cuts document content into overlapping chunks.
type Splitter struct {
	size    int
	overlap int
}

// New validates the chunking parameters and returns a Splitter.
// Size must be positive, overlap non-negative and strictly smaller than size,
// otherwise the split loop could not advance.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split chunks every document and returns the flattened result. Documents
// shorter than the chunk size become a single chunk. Empty documents produce
// no chunks.
func (s *Splitter) Split(docs []loader.Document) []rag.Document {
	var out []rag.Document
	for _, doc := range docs {
		out = append(out, s.splitOne(doc)...)
	}
	return out
}

// splitOne cuts one document into chunks of at most size bytes, where each
// chunk repeats the last overlap bytes of its predecessor.
func (s *Splitter) splitOne(doc loader.Document) []rag.Document {
	text := doc.Content
	if len(text) == 0 {
		return nil
	}

	var chunks []rag.Document
	for start, index := 0, 0; start < len(text); index++ {
		// A final fragment fully contained in the previous chunk's overlap
		// carries no new content.
		if start > 0 && len(text)-start <= s.overlap {
			break
		}
		end := start + s.size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, rag.Document{
			ID:      chunkID(doc.Source, index),
			Content: text[start:end],
			Source:  doc.Source,
		})
		start += s.size - s.overlap
	}
	return chunks
}

// chunkID derives a stable identifier from the source path and chunk index.
func chunkID(source string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return hex.EncodeToString(sum[:])
}
