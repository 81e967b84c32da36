package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/talkcode/talkcode-go/internal/config"
	"github.com/talkcode/talkcode-go/internal/embedder"
	"github.com/talkcode/talkcode-go/internal/index"
	"github.com/talkcode/talkcode-go/internal/store"
)

// session bundles the configured components every command needs: resolved
// settings, the logger, and the index manager for the selected model type.
type session struct {
	settings *config.Settings
	log      *slog.Logger
	manager  *index.Manager
}

// newSession resolves settings from the environment, validates them, and
// wires up the embedder and index manager.
func newSession(log *slog.Logger) (*session, error) {
	s := config.FromEnv()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	emb, err := embedder.New(s, log)
	if err != nil {
		return nil, err
	}

	manager, err := index.NewManager(s, emb, log)
	if err != nil {
		return nil, err
	}

	return &session{settings: s, log: log, manager: manager}, nil
}

// openHistory opens the exchange history database, using the configured path
// or the default under the home directory.
func openHistory(s *config.Settings) (store.HistoryStore, error) {
	path := s.HistoryDB
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// absRoot resolves dir to an absolute, cleaned path. History records and
// provenance are keyed on absolute paths so cwd changes don't split threads.
func absRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not resolve directory %s: %w", dir, err)
	}
	return abs, nil
}

// resolveFiles resolves --file values against root: absolute paths are
// cleaned, relative paths are joined to root. The index records sources under
// the root, so resolving against the process cwd would miss them whenever
// cwd differs from the indexed directory.
func resolveFiles(root string, files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		if filepath.IsAbs(f) {
			out[i] = filepath.Clean(f)
		} else {
			out[i] = filepath.Join(root, f)
		}
	}
	return out
}

// printProvenance writes the answer's source file list to w.
func printProvenance(w io.Writer, sources []string) {
	if len(sources) == 0 {
		return
	}
	heading := color.New(color.FgCyan, color.Bold)
	_, _ = heading.Fprintln(w, "Sources:")
	for _, src := range sources {
		_, _ = color.New(color.FgCyan).Fprintf(w, "  %s\n", src)
	}
}

// indexProgress returns a progress callback that renders a terminal progress
// bar on stderr. The bar is created on the first callback, once the total
// chunk count is known.
func indexProgress(description string) index.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(added, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(added)
	}
}
