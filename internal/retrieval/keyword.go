package retrieval

import (
	"context"
	"fmt"

	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
)

const keywordTitleBoost = 2.0

// Keyword ranks chunks with the BM25 keyword index.
type Keyword struct {
	store storage.Storage
	index keyword.KeywordIndex
}

// NewKeyword creates a keyword strategy.
func NewKeyword(store storage.Storage, index keyword.KeywordIndex) *Keyword {
	return &Keyword{store: store, index: index}
}

func (k *Keyword) Name() string { return "keyword" }

func (k *Keyword) Rank(ctx context.Context, question string, limit int) ([]*models.Result, error) {
	hits, err := k.index.Search(ctx, question, limit, &keyword.SearchOptions{TitleBoost: keywordTitleBoost})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return resolve(ctx, k.store, len(hits), func(i int) (string, float64) {
		return hits[i].ID, hits[i].Score
	})
}
