// Package events publishes notifications about document-set changes for
// external consumers (audit trails, cache warmers, dashboards). The chat
// pipeline itself is synchronous and never depends on these events.
package events

import (
	"context"
	"time"
)

// Type enumerates published event categories.
type Type string

const (
	TypeDocumentIngested Type = "document_ingested"
	TypeStoreCleared     Type = "store_cleared"
)

// Event describes one change to the document store.
type Event struct {
	Type     Type      `json:"type"`
	Filename string    `json:"filename,omitempty"`
	Chunks   int       `json:"chunks,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher emits events best-effort; a publish failure is logged by the
// caller, never surfaced to the user.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoOpPublisher drops all events. Used when no event bus is configured.
type NoOpPublisher struct{}

func NewNoOpPublisher() *NoOpPublisher { return &NoOpPublisher{} }

func (p *NoOpPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (p *NoOpPublisher) Close() error { return nil }
