// Package retrieval ranks indexed chunks against a question.
//
// A Retriever delegates ranking to one configured Strategy (lexical, vector, keyword or hybrid)
// and applies the score floor, so callers never see zero-scoring chunks.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
)

// Strategy scores chunks for a question. Results are sorted by score descending and hold
// at most limit entries.
type Strategy interface {
	Name() string
	Rank(ctx context.Context, question string, limit int) ([]*models.Result, error)
}

// Dependencies are the stores a strategy may read. Only the ones the configured strategy
// needs must be set.
type Dependencies struct {
	Store    storage.Storage
	Embedder embedding.Embedder
	Vectors  vector.VectorIndex
	Keywords keyword.KeywordIndex
	Logger   *zap.Logger
}

// Retriever returns the top-ranked chunks for a question.
type Retriever struct {
	strategy Strategy
	minScore float64
	logger   *zap.Logger
}

// New builds the retriever for cfg.Strategy. A strategy whose dependencies are missing is a
// configuration error.
func New(cfg *config.RetrievalConfig, deps Dependencies) (*Retriever, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var strategy Strategy
	switch cfg.Strategy {
	case config.StrategyLexical, "":
		if deps.Store == nil {
			return nil, fmt.Errorf("%w: lexical retrieval requires storage", models.ErrConfiguration)
		}
		strategy = NewLexical(deps.Store, cfg.TitleBonus)
	case config.StrategyVector:
		if deps.Store == nil || deps.Embedder == nil || deps.Vectors == nil {
			return nil, fmt.Errorf("%w: vector retrieval requires an embedding provider", models.ErrConfiguration)
		}
		strategy = NewVector(deps.Store, deps.Embedder, deps.Vectors)
	case config.StrategyKeyword:
		if deps.Store == nil || deps.Keywords == nil {
			return nil, fmt.Errorf("%w: keyword retrieval requires a keyword index", models.ErrConfiguration)
		}
		strategy = NewKeyword(deps.Store, deps.Keywords)
	case config.StrategyHybrid:
		if deps.Store == nil || deps.Keywords == nil || deps.Embedder == nil || deps.Vectors == nil {
			return nil, fmt.Errorf("%w: hybrid retrieval requires a keyword index and an embedding provider", models.ErrConfiguration)
		}
		strategy = NewHybrid(NewKeyword(deps.Store, deps.Keywords), NewVector(deps.Store, deps.Embedder, deps.Vectors),
			cfg.KeywordWeight, cfg.VectorWeight)
	default:
		return nil, fmt.Errorf("%w: unknown retrieval strategy %q", models.ErrConfiguration, cfg.Strategy)
	}

	return NewRetriever(strategy, cfg.MinScore, logger), nil
}

// NewRetriever wraps an explicit strategy.
func NewRetriever(strategy Strategy, minScore float64, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{strategy: strategy, minScore: minScore, logger: logger}
}

// Name reports the active strategy.
func (r *Retriever) Name() string {
	return r.strategy.Name()
}

// Retrieve returns at most topK results with positive scores at or above the configured floor.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]*models.Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	results, err := r.strategy.Rank(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("%s retrieval failed: %w", r.strategy.Name(), err)
	}

	kept := results[:0]
	for _, res := range results {
		if res.Score <= 0 || res.Score < r.minScore {
			continue
		}
		kept = append(kept, res)
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	r.logger.Debug("Retrieved chunks",
		zap.String("strategy", r.strategy.Name()),
		zap.Int("candidates", len(results)),
		zap.Int("results", len(kept)))
	return kept, nil
}
