package models

import (
	"fmt"
	"strings"
)

// AskRequest is a question submitted to the query path.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate trims the question, rejects empty input, and clamps TopK.
// A zero TopK is replaced by defaultTopK.
func (q *AskRequest) Validate(defaultTopK int) error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > 50 {
		q.TopK = 50
	}
	return nil
}

// IngestRequest overrides crawl settings for one ingestion run. Zero values use config.
type IngestRequest struct {
	SeedURL   string `json:"seed_url,omitempty"`
	MaxDepth  *int   `json:"max_depth,omitempty"`
	MaxPages  int    `json:"max_pages,omitempty"`
	FullReset bool   `json:"full_reset,omitempty"`
}
