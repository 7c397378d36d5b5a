// Package store persists chunk records and answers nearest-neighbor
// similarity queries over their embedding vectors.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pdfchat/internal/embeddings"
)

// ErrStore marks store-layer failures.
var ErrStore = errors.New("store failure")

// ErrDimensionMismatch is returned when a vector's dimensionality does
// not match the store's pinned dimensionality. The store pins the
// dimension on first insert, so swapping embedding providers against a
// populated store fails fast instead of comparing incompatible vectors.
var ErrDimensionMismatch = fmt.Errorf("%w: embedding dimensionality mismatch", ErrStore)

// Chunk is one stored span of document text with its embedding.
// Immutable once stored.
type Chunk struct {
	ID         uuid.UUID
	Text       string
	SourceFile string
	Page       int
	Index      int
	Vector     embeddings.Vector
}

// SearchResult pairs a chunk with its similarity to the query vector.
// Score is raw cosine similarity in [-1, 1], higher is more similar.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// Stats is a live view of store contents, never cached.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
}

// Store defines the persistence contract for chunk records.
//
// Add inserts a batch atomically with respect to reads: a concurrent
// Stats or Search call never observes a partially inserted batch
// (readers block until the batch commits). Search returns up to k
// results ordered by descending score, ties broken by insertion order;
// an empty store yields an empty result, not an error.
type Store interface {
	Add(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, query embeddings.Vector, k int) ([]SearchResult, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
	Close() error
}
