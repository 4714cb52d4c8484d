package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
)

// MinTokenLength is the shortest query token that contributes to a score.
const MinTokenLength = 3

// QueryTokens returns the distinct lowercased word tokens of q that are at least
// MinTokenLength runes long, in first-seen order.
func QueryTokens(q string) []string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < MinTokenLength || seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

// Lexical scores chunks by token occurrence counts. It needs no model.
type Lexical struct {
	store      storage.Storage
	titleBonus float64
}

// NewLexical creates a lexical strategy adding titleBonus per query token found in a chunk title.
func NewLexical(store storage.Storage, titleBonus float64) *Lexical {
	return &Lexical{store: store, titleBonus: titleBonus}
}

func (l *Lexical) Name() string { return "lexical" }

// Rank scans every stored chunk. Ties keep storage order.
func (l *Lexical) Rank(ctx context.Context, question string, limit int) ([]*models.Result, error) {
	tokens := QueryTokens(question)
	if len(tokens) == 0 {
		return nil, nil
	}
	chunks, err := l.store.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	var results []*models.Result
	for _, chunk := range chunks {
		score := l.Score(tokens, chunk)
		if score > 0 {
			results = append(results, &models.Result{Chunk: chunk, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Score sums the occurrences of each token in the chunk text and adds the title bonus for
// each token the title contains. Occurrences are substring counts.
func (l *Lexical) Score(tokens []string, chunk *models.Chunk) float64 {
	text := strings.ToLower(chunk.Text)
	title := strings.ToLower(chunk.Title)
	var score float64
	for _, tok := range tokens {
		score += float64(strings.Count(text, tok))
		if title != "" && strings.Contains(title, tok) {
			score += l.titleBonus
		}
	}
	return score
}
