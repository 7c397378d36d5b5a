package llm

import (
	"context"
	"errors"
)

// ErrGeneration marks text-generation backend failures. Implementations
// wrap it so the orchestrator can convert any provider failure into a
// user-visible error turn instead of crashing the session.
var ErrGeneration = errors.New("generation failure")

// Passage is one retrieved chunk handed to the model as context.
type Passage struct {
	Text     string
	Filename string
	Page     int
}

// Client is a minimal LLM interface to allow pluggable providers.
// Generate answers the question grounded in the given passages; with no
// passages the model is instructed to say that nothing relevant was found.
type Client interface {
	Generate(ctx context.Context, question string, passages []Passage) (string, error)
}
