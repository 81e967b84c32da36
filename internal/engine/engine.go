// Package engine answers questions about an indexed directory. It retrieves
// the most relevant chunks from the vector store, grounds a prompt in them,
// and streams the model's answer fragment by fragment, with provenance for
// every answer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/talkcode/talkcode-go/internal/budget"
	"github.com/talkcode/talkcode-go/internal/rag"
)

// ErrInvalidK indicates a non-positive retrieval count.
var ErrInvalidK = errors.New("engine: k must be positive")

// systemPromptHeader instructs the model to answer strictly from the
// retrieved context.
const systemPromptHeader = `You are a helpful assistant answering questions about a codebase.
Given the following extracted snippets of the codebase, answer the question using only that context.
If the context does not contain the answer, say you don't know. Do not invent one.`

// Engine runs retrieval-augmented question answering against one store and
// one chat model.
type Engine struct {
	store rag.VectorStore
	chat  model.BaseChatModel
	log   *slog.Logger
}

// New constructs an Engine.
func New(store rag.VectorStore, chat model.BaseChatModel, log *slog.Logger) *Engine {
	return &Engine{store: store, chat: chat, log: log}
}

// Answer holds one in-flight answer. Fragments delivers the model output in
// order as it is generated; the channel closes when the answer is complete or
// failed. Call Wait after draining Fragments to learn how it ended.
type Answer struct {
	// Prompt is the grounded system prompt sent to the model.
	Prompt string

	// Provenance lists the absolute source paths the answer is grounded in,
	// deduplicated, in retrieval order.
	Provenance []string

	// Fragments streams the answer text in generation order.
	Fragments <-chan string

	errc chan error
}

// Wait blocks until the stream has finished and returns its terminal error,
// if any. It must be called after Fragments is drained.
func (a *Answer) Wait() error {
	return <-a.errc
}

// Answer retrieves the k most relevant chunks for question and streams a
// grounded answer. Retrieval is blocking; the returned Answer streams only
// the model output.
func (e *Engine) Answer(ctx context.Context, question string, k int) (*Answer, error) {
	return e.AnswerWithHistory(ctx, question, k, nil)
}

// AnswerWithHistory is Answer with prior conversation turns included.
// History is trimmed oldest-first to fit the model context budget; the
// grounding prompt and the current question are never trimmed.
func (e *Engine) AnswerWithHistory(ctx context.Context, question string, k int, history []*schema.Message) (*Answer, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidK, k)
	}

	docs, err := e.store.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	e.log.Debug("retrieved context",
		slog.Int("chunks", len(docs)),
		slog.Int("k", k),
	)

	prompt := buildPrompt(docs)
	provenance, err := provenance(docs)
	if err != nil {
		return nil, err
	}

	fixed := []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(question),
	}
	history = budget.TrimHistory(fixed, history, budget.DefaultMaxContextTokens)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, fixed[0])
	messages = append(messages, history...)
	messages = append(messages, fixed[1])

	sr, err := e.chat.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to start answer stream: %w", err)
	}

	fragments := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(fragments)
		defer sr.Close()
		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				errc <- nil
				return
			}
			if err != nil {
				errc <- fmt.Errorf("engine: answer stream failed: %w", err)
				return
			}
			if msg.Content == "" {
				continue
			}
			select {
			case fragments <- msg.Content:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return &Answer{
		Prompt:     prompt,
		Provenance: provenance,
		Fragments:  fragments,
		errc:       errc,
	}, nil
}

// buildPrompt renders the retrieved chunks into the grounding system prompt.
// An empty retrieval still produces a valid prompt with an empty context
// block; the model then answers that it doesn't know.
func buildPrompt(docs []rag.Document) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString("\n\nContext:\n")
	for _, d := range docs {
		b.WriteString("```\n")
		b.WriteString(d.Content)
		if !strings.HasSuffix(d.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}

// provenance returns the absolute source paths of docs, deduplicated and in
// retrieval order.
func provenance(docs []rag.Document) ([]string, error) {
	seen := make(map[string]bool, len(docs))
	var sources []string
	for _, d := range docs {
		abs, err := filepath.Abs(d.Source)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to resolve source %s: %w", d.Source, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		sources = append(sources, abs)
	}
	return sources, nil
}
