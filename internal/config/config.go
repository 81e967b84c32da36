// Package config provides YAML-based configuration for talkcode.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. TALKCODE_CONFIG environment variable
//  3. ~/.talkcode/config.yaml
//  4. ./talkcode.yaml
//
// If no file is found the system runs entirely from env vars. After Load,
// the resolved values are read once into an immutable [Settings] struct via
// [FromEnv] and passed by reference into each component's constructor; no
// component reads configuration on its own after startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model type identifiers. They name the embedding/chat backend pair and the
// on-disk index directory under <root>/vector_store/<type>.
const (
	// ModelTypeLocal selects a locally running Ollama instance (free).
	ModelTypeLocal = "local"
	// ModelTypeOpenAI selects the OpenAI API (paid; cost is estimated
	// before an index is built).
	ModelTypeOpenAI = "openai"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the chat model backend.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider used to build the index.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval configures chunking and similarity search.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// History configures question/answer history persistence.
	History HistoryConfig `yaml:"history"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Type selects the backend: local (Ollama) or openai.
	Type string `yaml:"type"`
	// Name is the chat model name (e.g. "gpt-3.5-turbo", "llama3").
	Name string `yaml:"name"`
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Host is the Ollama API endpoint for the local backend.
	Host string `yaml:"host"`
	// MaxTokens caps the number of tokens per response.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Endpoint overrides the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// APIKey overrides the chat API key for embedding calls.
	// Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
}

// RetrievalConfig holds chunking and similarity search settings.
type RetrievalConfig struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the shared context between consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// K is the number of chunks retrieved per question.
	K int `yaml:"k"`
}

// HistoryConfig holds question/answer history settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path (default: ~/.talkcode/history.db).
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_TYPE", func(c *Config) string { return c.Model.Type }},
	{"MODEL_NAME", func(c *Config) string { return c.Model.Name }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.APIKey }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Host }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Retrieval.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Retrieval.ChunkOverlap) }},
	{"K", func(c *Config) string { return intStr(c.Retrieval.K) }},
	{"TALKCODE_HISTORY_DB", func(c *Config) string { return c.History.DBPath }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Debug("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// Settings is the immutable resolved configuration consumed by component
// constructors. Build it once at startup with [FromEnv] after [Load].
type Settings struct {
	// ModelType is the backend selector: "local" or "openai".
	ModelType string
	// ModelName is the chat model name.
	ModelName string
	// APIKey is the OpenAI API key (openai model type only).
	APIKey string
	// OllamaHost is the Ollama endpoint (local model type only).
	OllamaHost string
	// MaxTokens caps tokens per model response.
	MaxTokens int
	// Temperature controls response randomness.
	Temperature float32

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
	// EmbeddingEndpoint overrides the embedding API endpoint.
	EmbeddingEndpoint string
	// EmbeddingAPIKey is the key used for embedding calls; falls back to APIKey.
	EmbeddingAPIKey string

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
	// ChunkOverlap is the shared context between consecutive chunks.
	ChunkOverlap int
	// K is the number of chunks retrieved per question.
	K int

	// HistoryDB is the SQLite history path; empty selects the default
	// under the home directory.
	HistoryDB string
}

// FromEnv resolves the effective settings from the environment, applying
// per-backend defaults. Call after [Load] so YAML values are visible.
func FromEnv() *Settings {
	s := &Settings{
		ModelType:         getEnvOrDefault("MODEL_TYPE", ModelTypeLocal),
		APIKey:            os.Getenv("OPENAI_API_KEY"),
		OllamaHost:        getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		MaxTokens:         getEnvInt("MODEL_MAX_TOKENS", 2048),
		Temperature:       getEnvFloat32("MODEL_TEMPERATURE", 0.7),
		EmbeddingEndpoint: os.Getenv("EMBEDDING_ENDPOINT"),
		EmbeddingAPIKey:   os.Getenv("EMBEDDING_API_KEY"),
		ChunkSize:         getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 50),
		K:                 getEnvInt("K", 4),
		HistoryDB:         os.Getenv("TALKCODE_HISTORY_DB"),
	}

	if s.ModelType == ModelTypeOpenAI {
		s.ModelName = getEnvOrDefault("MODEL_NAME", "gpt-3.5-turbo")
		s.EmbeddingModel = getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	} else {
		s.ModelName = getEnvOrDefault("MODEL_NAME", "llama3")
		s.EmbeddingModel = getEnvOrDefault("EMBEDDING_MODEL", "nomic-embed-text")
	}
	if s.EmbeddingAPIKey == "" {
		s.EmbeddingAPIKey = s.APIKey
	}

	return s
}

// Validate checks the settings for errors that would otherwise surface as
// cryptic failures on the first API call.
func (s *Settings) Validate() error {
	switch s.ModelType {
	case ModelTypeLocal, ModelTypeOpenAI:
	default:
		return fmt.Errorf("config: unknown model type %q, valid values: %s, %s",
			s.ModelType, ModelTypeLocal, ModelTypeOpenAI)
	}
	if s.ModelType == ModelTypeOpenAI && s.APIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY is required when MODEL_TYPE=openai")
	}
	return nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("TALKCODE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".talkcode", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("talkcode.yaml"); err == nil {
		return "talkcode.yaml"
	}

	return ""
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
