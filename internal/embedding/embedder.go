// Package embedding turns chunk text into vectors. Providers: OpenAI-compatible HTTP,
// a local ONNX model, and a deterministic hashing embedder for tests.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/models"
	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the embedder selected by cfg.Provider, wrapped in an LRU cache.
// Provider "none" returns a nil Embedder and no error.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderMock:
		inner = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(OpenAIOptions{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey(),
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}, logger)
	case config.ProviderONNX:
		inner, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
