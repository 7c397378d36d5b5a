package embeddings

import (
	"context"
	"errors"
	"math"
)

// Vector is a fixed-dimension embedding of a piece of text.
type Vector []float32

// ErrProvider marks embedding backend failures (network, auth, quota,
// model load). Implementations wrap it so callers can classify the
// failure without knowing the backend.
var ErrProvider = errors.New("embedding provider failure")

// Embedder converts a batch of texts into vectors, one per input, all of
// the provider's fixed dimensionality. Given identical input and model
// version the output is stable.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]Vector, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
