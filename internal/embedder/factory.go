package embedder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talkcode/talkcode-go/internal/config"
	"github.com/talkcode/talkcode-go/internal/rag"
)

// defaultOpenAIBaseURL is used when no embedding endpoint override is set.
const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// knownChatModelPrefixes contains name fragments that identify chat models
// which are NOT suitable for embedding. If the configured embedding model
// matches any of these, a warning is emitted so the operator knows they may
// have misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"vicuna",
	"falcon",
}

// New constructs a rag.Embedder for the configured model type. The embedding
// endpoint and key cascade from the chat configuration when no embedding
// override is set (handled in config.FromEnv).
func New(s *config.Settings, log *slog.Logger) (rag.Embedder, error) {
	if looksLikeChatModel(s.EmbeddingModel) {
		log.Warn("embedding model looks like a chat model, expect poor or broken embeddings",
			slog.String("model", s.EmbeddingModel),
			slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
		)
	}

	switch s.ModelType {
	case config.ModelTypeLocal:
		return NewOllamaEmbedder(s.OllamaHost, s.EmbeddingModel), nil

	case config.ModelTypeOpenAI:
		if s.EmbeddingAPIKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		baseURL := s.EmbeddingEndpoint
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		return NewOpenAIEmbedder(baseURL, s.EmbeddingAPIKey, s.EmbeddingModel), nil

	default:
		return nil, fmt.Errorf("embedder: unknown model type %q, valid values: %s, %s",
			s.ModelType, config.ModelTypeLocal, config.ModelTypeOpenAI)
	}
}

// looksLikeChatModel returns true when the model name resembles a known chat
// model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}
