package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder embeds text with a locally served Ollama model.
type OllamaEmbedder struct {
	llm     *ollama.LLM
	timeout time.Duration
}

// NewOllamaEmbedder creates an embedder backed by a local Ollama server.
func NewOllamaEmbedder(serverURL, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	if model == "" {
		return nil, fmt.Errorf("embedding model required")
	}
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}
	return &OllamaEmbedder{llm: llm, timeout: timeout}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no input texts", ErrProvider)
	}
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.CreateEmbedding(reqCtx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProvider, len(raw), len(texts))
	}

	vecs := make([]Vector, len(raw))
	for i, r := range raw {
		vecs[i] = Vector(r)
	}
	return vecs, nil
}
