// Package loader reads source files from a local directory tree and turns
// them into Documents for chunking and embedding. It deliberately knows
// nothing about vectors: it only decides which files belong to the corpus
// and carries their content plus source path.
package loader

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IndexDirName is the directory under the root that holds the persisted
// vector index. The loader always skips it so the index never indexes itself.
const IndexDirName = "vector_store"

// maxFileSize is the largest file the loader will read. Anything bigger is
// almost certainly generated output or a binary blob, not source to answer
// questions about.
const maxFileSize = 1 << 20 // 1 MiB

// Document is a unit of source content. Immutable once created.
type Document struct {
	// Content is the full text of the file.
	Content string
	// Source is the path of the file the content came from.
	Source string
}

// Loader walks a directory tree and loads text files as Documents.
type Loader struct {
	// skipDirs are directory names skipped entirely during the walk.
	skipDirs map[string]bool
}

// New constructs a Loader with the default skip list.
func New() *Loader {
	return &Loader{
		skipDirs: map[string]bool{
			IndexDirName:   true,
			"node_modules": true,
			"vendor":       true,
			"__pycache__":  true,
		},
	}
}

// Load walks root and returns one Document per readable text file.
// Hidden entries (dot-prefixed), the vector index directory, binaries, and
// oversized files are skipped. Unreadable entries are skipped, not fatal.
func (l *Loader) Load(root string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || l.skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		doc, ok := l.readFile(path)
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// LoadSingle loads one file as a Document. It returns an empty slice when
// the file is missing, unreadable, binary, or oversized; callers treat an
// empty result as "nothing to index for this path", never as a fatal error.
func (l *Loader) LoadSingle(path string) ([]Document, error) {
	doc, ok := l.readFile(path)
	if !ok {
		return nil, nil
	}
	return []Document{doc}, nil
}

// readFile reads path and reports whether it produced a usable Document.
func (l *Loader) readFile(path string) (Document, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxFileSize {
		return Document{}, false
	}

	content, err := os.ReadFile(path)
	if err != nil || len(content) == 0 {
		return Document{}, false
	}
	if isBinary(content) {
		return Document{}, false
	}

	return Document{Content: string(content), Source: path}, true
}

// isBinary reports whether data looks like binary content. A NUL byte in the
// first KiB is a reliable-enough signal for source trees.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
