package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  type: openai
  name: gpt-3.5-turbo
  max_tokens: 1024
  temperature: 0.2
embedding:
  model: text-embedding-3-small
retrieval:
  chunk_size: 400
  chunk_overlap: 40
  k: 6
logging:
  level: debug
  format: json
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"MODEL_TYPE", "MODEL_NAME", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE",
		"EMBEDDING_MODEL",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "K",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_TYPE":        "openai",
		"MODEL_NAME":        "gpt-3.5-turbo",
		"MODEL_MAX_TOKENS":  "1024",
		"MODEL_TEMPERATURE": "0.2",
		"EMBEDDING_MODEL":   "text-embedding-3-small",
		"CHUNK_SIZE":        "400",
		"CHUNK_OVERLAP":     "40",
		"K":                 "6",
		"LOG_LEVEL":         "debug",
		"LOG_FORMAT":        "json",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  type: local
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading; it should NOT be overwritten.
	t.Setenv("MODEL_TYPE", "openai")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_TYPE"); got != "openai" {
		t.Errorf("MODEL_TYPE: expected env override %q, got %q", "openai", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	envKeys := []string{
		"MODEL_TYPE", "MODEL_NAME", "OPENAI_API_KEY", "OLLAMA_HOST",
		"MODEL_MAX_TOKENS", "MODEL_TEMPERATURE",
		"EMBEDDING_MODEL", "EMBEDDING_ENDPOINT", "EMBEDDING_API_KEY",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "K", "TALKCODE_HISTORY_DB",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	s := FromEnv()
	if s.ModelType != ModelTypeLocal {
		t.Errorf("ModelType: got %q, want %q", s.ModelType, ModelTypeLocal)
	}
	if s.ModelName != "llama3" {
		t.Errorf("ModelName: got %q, want llama3", s.ModelName)
	}
	if s.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("EmbeddingModel: got %q, want nomic-embed-text", s.EmbeddingModel)
	}
	if s.ChunkSize != 500 || s.ChunkOverlap != 50 || s.K != 4 {
		t.Errorf("retrieval defaults: got size=%d overlap=%d k=%d", s.ChunkSize, s.ChunkOverlap, s.K)
	}
}

func TestFromEnv_OpenAIDefaults(t *testing.T) {
	t.Setenv("MODEL_TYPE", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	for _, k := range []string{"MODEL_NAME", "EMBEDDING_MODEL", "EMBEDDING_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	s := FromEnv()
	if s.ModelName != "gpt-3.5-turbo" {
		t.Errorf("ModelName: got %q, want gpt-3.5-turbo", s.ModelName)
	}
	if s.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel: got %q, want text-embedding-3-small", s.EmbeddingModel)
	}
	// Embedding key falls back to the chat key.
	if s.EmbeddingAPIKey != "sk-test" {
		t.Errorf("EmbeddingAPIKey: got %q, want sk-test", s.EmbeddingAPIKey)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: unexpected error: %v", err)
	}
}

func TestValidate_OpenAIRequiresKey(t *testing.T) {
	s := &Settings{ModelType: ModelTypeOpenAI}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for openai without api key")
	}
}

func TestValidate_UnknownModelType(t *testing.T) {
	t.Parallel()
	s := &Settings{ModelType: "huggingface"}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for unknown model type")
	}
}
