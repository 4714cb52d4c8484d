// Package indexer provides text chunking and per-source index replacement.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/yomu/internal/models"
)

// Span is one chunk window: its text and word range [Start, End).
type Span struct {
	Text  string
	Start int
	End   int
}

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
// Callers validate 0 <= overlap < size; a non-positive step is clamped to 1.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Spans slides a window of chunkSize words over text, advancing by chunkSize-chunkOverlap,
// and stops after the window that reaches the last word. Empty text yields nil.
func (c *Chunker) Spans(text string) []Span {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	size := c.chunkSize
	if size <= 0 {
		size = len(words)
	}
	step := size - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	spans := make([]Span, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, Span{Text: strings.Join(words[i:end], " "), Start: i, End: end})
		if end >= len(words) {
			break
		}
	}
	return spans
}

// Chunk splits text for sourceURL into Chunks with stable IDs "{url}#chunk{i}".
func (c *Chunker) Chunk(sourceURL, title, text string) []*models.Chunk {
	spans := c.Spans(text)
	if len(spans) == 0 {
		return nil
	}
	chunks := make([]*models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = &models.Chunk{
			ID:            ChunkID(sourceURL, i),
			SourceURL:     sourceURL,
			SequenceIndex: i,
			Text:          sp.Text,
			Title:         title,
			WordStart:     sp.Start,
			WordEnd:       sp.End,
		}
	}
	return chunks
}

// Chunk returns the chunk texts of text for the given size and overlap.
func Chunk(text string, size, overlap int) []string {
	spans := NewChunker(size, overlap).Spans(text)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.Text
	}
	return out
}

// ChunkID is the stable identifier of the i-th chunk of a source.
func ChunkID(sourceURL string, i int) string {
	return fmt.Sprintf("%s#chunk%d", sourceURL, i)
}
