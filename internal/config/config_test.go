package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	// Clear env to test defaults
	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"StoreProvider", cfg.StoreProvider, "chromem"},
		{"EmbeddingProvider", cfg.EmbeddingProvider, "openai"},
		{"LLMProvider", cfg.LLMProvider, "openai"},
		{"LLMModel", cfg.LLMModel, "gpt-4o-mini"},
		{"EmbeddingModel", cfg.EmbeddingModel, "text-embedding-3-small"},
		{"ChunkSize", cfg.ChunkSize, 1000},
		{"ChunkOverlap", cfg.ChunkOverlap, 200},
		{"TopK", cfg.TopK, 4},
		{"CacheProvider", cfg.CacheProvider, "none"},
		{"EventsProvider", cfg.EventsProvider, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	originalChunk := os.Getenv("CHUNK_SIZE")
	originalTopK := os.Getenv("TOP_K")
	defer func() {
		os.Setenv("CHUNK_SIZE", originalChunk)
		os.Setenv("TOP_K", originalTopK)
	}()

	os.Setenv("CHUNK_SIZE", "200")
	os.Setenv("TOP_K", "7")

	cfg := Load()

	if cfg.ChunkSize != 200 {
		t.Errorf("expected chunk size 200, got %d", cfg.ChunkSize)
	}
	if cfg.TopK != 7 {
		t.Errorf("expected top-k 7, got %d", cfg.TopK)
	}
}

func TestLoadProviderOverrides(t *testing.T) {
	originalEmb := os.Getenv("EMBEDDING_PROVIDER")
	defer func() {
		os.Setenv("EMBEDDING_PROVIDER", originalEmb)
	}()

	os.Setenv("EMBEDDING_PROVIDER", "ollama")

	cfg := Load()

	if cfg.EmbeddingProvider != "ollama" {
		t.Errorf("expected embedding provider 'ollama', got %s", cfg.EmbeddingProvider)
	}
}
