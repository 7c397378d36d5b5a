package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaClient generates answers with a locally served Ollama model.
type OllamaClient struct {
	llm     *ollama.LLM
	timeout time.Duration
}

// NewOllamaClient builds a client against a local Ollama server.
func NewOllamaClient(serverURL, model string, timeout time.Duration) (*OllamaClient, error) {
	if model == "" {
		return nil, fmt.Errorf("model required")
	}
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	l, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	return &OllamaClient{llm: l, timeout: timeout}, nil
}

func (c *OllamaClient) Generate(ctx context.Context, question string, passages []Passage) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(question, passages)),
	}
	resp, err := c.llm.GenerateContent(reqCtx, messages, llms.WithTemperature(defaultChatTemperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: no choices returned", ErrGeneration)
	}
	return resp.Choices[0].Content, nil
}
