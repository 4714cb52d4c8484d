// Package answer turns retrieved chunks into an answer with source attribution.
package answer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/completion"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/retrieval"
)

const (
	// NoResultsMessage is returned when retrieval finds nothing.
	NoResultsMessage = "I couldn't find any relevant content for your question. " +
		"Try rephrasing your question or asking about a different topic."
	// EmptyIndexMessage is returned when nothing has been ingested yet.
	EmptyIndexMessage = "I don't have any content loaded yet. " +
		"Please run ingestion first to collect materials."

	extractiveHeader = "Based on the indexed materials, here's what I found:"

	systemPrompt = "You are a helpful assistant that answers questions using the provided context. " +
		"If the answer is not clearly in the context, say you do not know."
)

// Composer builds answers. With a completer it asks the model; without one it quotes the
// densest excerpt of each top result.
type Composer struct {
	completer completion.Completer
	cfg       config.AnswerConfig
	logger    *zap.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ComposerOption {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewComposer creates a composer. completer may be nil.
func NewComposer(completer completion.Completer, cfg *config.AnswerConfig, opts ...ComposerOption) *Composer {
	c := &Composer{completer: completer, logger: zap.NewNop()}
	if cfg != nil {
		c.cfg = *cfg
	}
	if c.cfg.MaxSources <= 0 {
		c.cfg.MaxSources = 3
	}
	if c.cfg.ExcerptWindow <= 0 {
		c.cfg.ExcerptWindow = 300
	}
	if c.cfg.ExcerptStep <= 0 {
		c.cfg.ExcerptStep = 50
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generative reports whether answers come from the completion model.
func (c *Composer) Generative() bool {
	return c.completer != nil
}

// Compose answers question from results, which must be ordered best first. A completion
// failure is returned as an error; no fallback text is substituted.
func (c *Composer) Compose(ctx context.Context, question string, results []*models.Result) (*models.Answer, error) {
	ans := &models.Answer{Question: question, Results: len(results)}
	if len(results) == 0 {
		ans.Text = NoResultsMessage
		return ans, nil
	}

	if c.completer != nil {
		text, err := c.completer.Complete(ctx, systemPrompt, UserPrompt(question, results))
		if err != nil {
			c.logger.Error("Completion failed", zap.String("question", question), zap.Error(err))
			return nil, fmt.Errorf("failed to generate answer: %w", err)
		}
		ans.Citations = citations(results)
		ans.Text = withSources(text, ans.Citations)
		ans.Generated = true
		return ans, nil
	}

	used := bestPerSource(results)
	if len(used) > c.cfg.MaxSources {
		used = used[:c.cfg.MaxSources]
	}
	ans.Citations = citations(used)
	ans.Text = c.extractive(question, used)
	return ans, nil
}

// UserPrompt formats the retrieved context and question for the completion model.
func UserPrompt(question string, results []*models.Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, "Source: "+r.Chunk.SourceURL+"\n"+r.Chunk.Text)
	}
	return "Context:\n" + strings.Join(blocks, "\n\n---\n\n") +
		"\n\nQuestion:\n" + question + "\n\nAnswer using only the context above."
}

func withSources(text string, cites []models.Citation) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nSources:")
	for _, c := range cites {
		b.WriteString("\n- ")
		b.WriteString(c.URL)
	}
	return b.String()
}

// bestPerSource keeps the first, best-ranked result of each source URL.
func bestPerSource(results []*models.Result) []*models.Result {
	seen := make(map[string]bool, len(results))
	out := make([]*models.Result, 0, len(results))
	for _, r := range results {
		if seen[r.Chunk.SourceURL] {
			continue
		}
		seen[r.Chunk.SourceURL] = true
		out = append(out, r)
	}
	return out
}

// citations lists source URLs once each, in first-seen order.
func citations(results []*models.Result) []models.Citation {
	seen := make(map[string]bool, len(results))
	var out []models.Citation
	for _, r := range results {
		if seen[r.Chunk.SourceURL] {
			continue
		}
		seen[r.Chunk.SourceURL] = true
		out = append(out, models.Citation{URL: r.Chunk.SourceURL, Title: r.Chunk.Title})
	}
	return out
}

func (c *Composer) extractive(question string, results []*models.Result) string {
	tokens := retrieval.QueryTokens(question)
	var b strings.Builder
	b.WriteString(extractiveHeader)
	b.WriteString("\n")
	for i, r := range results {
		title := r.Chunk.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "\n%d. From '%s':\n", i+1, title)
		if excerpt := Excerpt(r.Chunk.Text, tokens, c.cfg.ExcerptWindow, c.cfg.ExcerptStep); excerpt != "" {
			fmt.Fprintf(&b, "   %s\n", excerpt)
		}
		fmt.Fprintf(&b, "   Source: %s\n", r.Chunk.SourceURL)
	}
	return b.String()
}

// Excerpt returns the part of text around the window with the most token occurrences.
// Windows of window runes start every step runes; the earliest best window wins. The
// excerpt spans half a window before it to one and a half windows after its start, with
// "..." marking each truncated edge.
func Excerpt(text string, tokens []string, window, step int) string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return ""
	}
	if window <= 0 {
		window = 300
	}
	if step <= 0 {
		step = 50
	}

	// Rune-wise lowering keeps offsets aligned with runes.
	lower := make([]rune, n)
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	best, bestScore := 0, 0
	for i := 0; i < n; i += step {
		end := min(i+window, n)
		w := string(lower[i:end])
		score := 0
		for _, tok := range tokens {
			score += strings.Count(w, tok)
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	start := max(0, best-window/2)
	end := min(n, best+window*3/2)
	excerpt := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < n {
		excerpt += "..."
	}
	return excerpt
}
