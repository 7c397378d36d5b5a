package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"pdfchat/internal/cache"
	"pdfchat/internal/chat"
	"pdfchat/internal/config"
	"pdfchat/internal/conversation"
	"pdfchat/internal/embeddings"
	"pdfchat/internal/events"
	"pdfchat/internal/llm"
	"pdfchat/internal/logger"
	"pdfchat/internal/store"
)

// Deps bundles the runtime dependencies for the server.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Chat   *chat.Service
}

// Build loads env, config, and wires the chat service from the configured
// providers.
func Build() (Deps, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	timeout := time.Duration(cfg.ProviderTimeout) * time.Second

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	hist, err := buildHistory(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize conversation history: %w", err)
	}
	embedder, err := buildEmbedder(cfg, log, timeout)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	llmClient, err := buildLLM(cfg, log, timeout)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	answerCache, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	publisher, err := buildEvents(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize events: %w", err)
	}

	svc, err := chat.New(log, st, embedder, llmClient, conversation.NewManager(hist), answerCache, publisher, chat.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		TopK:         cfg.TopK,
		CacheTTL:     time.Duration(cfg.CacheTTL) * time.Second,
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to build chat service: %w", err)
	}

	return Deps{
		Config: cfg,
		Log:    log,
		Chat:   svc,
	}, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "chromem":
		st, err := store.NewChromem(filepath.Join(cfg.DataDir, "index"))
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded store: %w", err)
		}
		log.Info("using embedded chromem store", "dir", cfg.DataDir)
		return st, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL, cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store", "dim", cfg.EmbeddingDim)
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: chromem, postgres)", cfg.StoreProvider)
	}
}

func buildHistory(cfg config.Config, log *slog.Logger) (conversation.History, error) {
	if cfg.StoreProvider == "postgres" {
		hist, err := conversation.NewPostgresHistory(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres history: %w", err)
		}
		log.Info("using Postgres conversation history")
		return hist, nil
	}
	hist, err := conversation.NewFileHistory(filepath.Join(cfg.DataDir, "conversations"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file history: %w", err)
	}
	log.Info("using file conversation history", "dir", cfg.DataDir)
	return hist, nil
}

func buildEmbedder(cfg config.Config, log *slog.Logger, timeout time.Duration) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
		embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
		return embedder, nil
	case "ollama":
		embedder, err := embeddings.NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama embedder: %w", err)
		}
		log.Info("using Ollama embedder", "model", cfg.OllamaEmbedModel)
		return embedder, nil
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER: %s (valid options: openai, ollama)", cfg.EmbeddingProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger, timeout time.Duration) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel), timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return client, nil
	case "ollama":
		client, err := llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaLLMModel, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama client: %w", err)
		}
		log.Info("using Ollama LLM client", "model", cfg.OllamaLLMModel)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, ollama)", cfg.LLMProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "none", "":
		return cache.NewNoOpCache(), nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("using Redis answer cache", "addr", cfg.RedisAddr)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

func buildEvents(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsProvider {
	case "none", "":
		return events.NewNoOpPublisher(), nil
	case "nats":
		if cfg.NATSURL == "" {
			return nil, fmt.Errorf("NATS_URL is required when EVENTS_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("publishing document events to NATS")
		return events.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid EVENTS_PROVIDER: %s (valid options: none, nats)", cfg.EventsProvider)
	}
}
