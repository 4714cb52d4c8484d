package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
)

// Vector ranks chunks by cosine similarity between the question and chunk embeddings.
type Vector struct {
	store    storage.Storage
	embedder embedding.Embedder
	index    vector.VectorIndex
}

// NewVector creates a vector strategy.
func NewVector(store storage.Storage, embedder embedding.Embedder, index vector.VectorIndex) *Vector {
	return &Vector{store: store, embedder: embedder, index: index}
}

func (v *Vector) Name() string { return "vector" }

// Rank embeds the question once and resolves hits to stored chunks. Hits whose chunk is
// gone are skipped.
func (v *Vector) Rank(ctx context.Context, question string, limit int) ([]*models.Result, error) {
	query, err := v.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := v.index.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return resolve(ctx, v.store, len(hits), func(i int) (string, float64) {
		return hits[i].ID, hits[i].Score
	})
}

func resolve(ctx context.Context, store storage.Storage, n int, hit func(int) (string, float64)) ([]*models.Result, error) {
	results := make([]*models.Result, 0, n)
	for i := 0; i < n; i++ {
		id, score := hit(i)
		chunk, err := store.GetChunk(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load chunk %s: %w", id, err)
		}
		results = append(results, &models.Result{Chunk: chunk, Score: score})
	}
	return results, nil
}
