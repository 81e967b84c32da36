// Package budget provides token and cost estimation plus chat history
// trimming. Because the tool supports multiple LLM backends with different
// tokenizers, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose and code). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/talkcode/talkcode-go/internal/loader"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B, GPT-3.5)
	// while leaving room for the output.
	DefaultMaxContextTokens = 6000

	// defaultPricePerK is the fallback USD price per 1K tokens applied when
	// the model is not in the pricing table. Matches the cheapest chat tier
	// so unknown models still produce a usable order-of-magnitude figure.
	defaultPricePerK = 0.002
)

// ErrUnknownModel indicates the model has no entry in the pricing table.
// EstimateCost still returns an estimate at the default rate alongside it.
var ErrUnknownModel = errors.New("budget: unknown model")

// pricePerKTokens maps model names to USD per 1K input tokens.
var pricePerKTokens = map[string]float64{
	"gpt-3.5-turbo":          0.002,
	"gpt-4":                  0.03,
	"gpt-4-32k":              0.06,
	"gpt-4o":                 0.005,
	"text-embedding-ada-002": 0.0001,
	"text-embedding-3-small": 0.00002,
	"text-embedding-3-large": 0.00013,
}

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateTokens returns the estimated total token count for a document set.
func EstimateTokens(docs []loader.Document) int {
	total := 0
	for _, d := range docs {
		total += Estimate(d.Content)
	}
	return total
}

// EstimateCost returns the estimated USD cost of embedding or processing docs
// with the named model. For a model missing from the pricing table the cost
// is computed at the default rate and ErrUnknownModel is returned alongside
// it, so callers can log the gap without losing the estimate.
func EstimateCost(docs []loader.Document, modelName string) (float64, error) {
	tokens := EstimateTokens(docs)
	rate, ok := pricePerKTokens[modelName]
	if !ok {
		cost := float64(tokens) / 1000 * defaultPricePerK
		return cost, fmt.Errorf("%w: %q priced at default rate", ErrUnknownModel, modelName)
	}
	return float64(tokens) / 1000 * rate, nil
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history fits within maxTokens. fixed
// contains messages that must not be trimmed (grounding prompt, current user
// message). history contains prior conversation turns that may be dropped
// oldest-first.
//
// Returns the trimmed history slice. If even an empty history exceeds the
// budget, the empty slice is returned; fixed messages are never dropped here.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	// History is typically short; a linear scan dropping oldest-first is
	// clear and correct.
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}
