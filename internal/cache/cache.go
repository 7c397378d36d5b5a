package cache

import (
	"context"
	"time"

	"pdfchat/internal/conversation"
)

// Cache stores generated answers keyed by question so repeated questions
// skip the embed/search/generate pipeline. Entries are invalidated
// wholesale whenever the document set changes.
type Cache interface {
	// Get retrieves a cached answer by key. Returns nil on a miss.
	Get(ctx context.Context, key string) (*Answer, error)

	// Set stores an answer with TTL.
	Set(ctx context.Context, key string, answer *Answer, ttl time.Duration) error

	// Invalidate drops all cached answers. Called after ingestion or a
	// store clear, since any cached answer may now be stale.
	Invalidate(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

// Answer is a cached query outcome.
type Answer struct {
	Response string                `json:"response"`
	Sources  []conversation.Source `json:"sources"`
}
