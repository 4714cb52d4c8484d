// Package vector provides a vector index and cosine similarity search over chunk embeddings.
package vector

import "context"

// VectorIndex defines vector storage and similarity search keyed by chunk ID.
type VectorIndex interface {
	// Add inserts vectors, replacing any existing vector with the same ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	// IDs returns the stored chunk IDs.
	IDs() []string
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}
