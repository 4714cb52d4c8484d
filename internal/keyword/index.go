// Package keyword provides a BM25 keyword index over chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/yomu/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution of matches in the chunk title.
	// Values <= 1 search title and text as one field.
	TitleBoost float64
}

// KeywordIndex defines keyword search operations over chunks keyed by chunk ID.
type KeywordIndex interface {
	Index(ctx context.Context, chunks []*models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, ids []string) error
	// DocCount returns the total number of chunks in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
