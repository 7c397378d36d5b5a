package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the chat service.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"26214400"` // 25MB in bytes

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"chromem"` // "chromem" (embedded) or "postgres"
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`        // chromem store + saved conversations
	DBURL         string `env:"DB_URL"`
	EmbeddingDim  int    `env:"EMBEDDING_DIM" envDefault:"1536"` // vector column width for postgres

	// Providers
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"openai"` // "openai" or "ollama"
	LLMProvider       string `env:"LLM_PROVIDER" envDefault:"openai"`       // "openai" or "ollama"
	OpenAIKey         string `env:"OPENAI_API_KEY"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	OllamaURL         string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaLLMModel    string `env:"OLLAMA_LLM_MODEL" envDefault:"llama3"`
	OllamaEmbedModel  string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	ProviderTimeout   int    `env:"PROVIDER_TIMEOUT" envDefault:"30"` // seconds per provider call

	// Retrieval pipeline
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1000"`   // characters per chunk
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"200"` // characters shared between consecutive chunks
	TopK         int `env:"TOP_K" envDefault:"4"`

	// Answer cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Outbound events
	EventsProvider string `env:"EVENTS_PROVIDER" envDefault:"none"` // "none" or "nats"
	NATSURL        string `env:"NATS_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
