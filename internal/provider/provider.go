// Package provider constructs eino chat models for the supported backends.
// Two model types exist: "local" (Ollama) and "openai". The query engine only
// needs Generate and Stream, so factories return model.BaseChatModel.
package provider

import (
	"context"
	"fmt"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/talkcode/talkcode-go/internal/config"
)

// New constructs a chat model for the configured model type. It validates the
// settings first so callers get a clear error at startup rather than on the
// first request.
func New(ctx context.Context, s *config.Settings) (model.BaseChatModel, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.ModelType {
	case config.ModelTypeLocal:
		return newOllama(ctx, s)
	case config.ModelTypeOpenAI:
		return newOpenAI(ctx, s)
	default:
		return nil, fmt.Errorf("provider: unknown model type %q, valid values: %s, %s",
			s.ModelType, config.ModelTypeLocal, config.ModelTypeOpenAI)
	}
}

// newOllama constructs a chat model backed by a local Ollama instance.
func newOllama(ctx context.Context, s *config.Settings) (model.BaseChatModel, error) {
	v, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: s.OllamaHost,
		Model:   s.ModelName,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create ollama chat model: %w", err)
	}
	return v, nil
}

// newOpenAI constructs a chat model backed by the OpenAI API.
func newOpenAI(ctx context.Context, s *config.Settings) (model.BaseChatModel, error) {
	maxTokens := s.MaxTokens
	temperature := s.Temperature
	v, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:       s.ModelName,
		APIKey:      s.APIKey,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create openai chat model: %w", err)
	}
	return v, nil
}
