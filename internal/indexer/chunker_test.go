package indexer

import (
	"fmt"
	"strings"
	"testing"
)

func wordSeq(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunk_countFormula(t *testing.T) {
	tests := []struct {
		n, size, overlap int
	}{
		{7, 3, 1},
		{10, 3, 0},
		{10, 5, 4},
		{100, 10, 3},
		{801, 800, 200},
		{2000, 800, 200},
		{9, 3, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/size=%d/overlap=%d", tt.n, tt.size, tt.overlap), func(t *testing.T) {
			got := len(Chunk(wordSeq(tt.n), tt.size, tt.overlap))
			step := tt.size - tt.overlap
			want := (tt.n - tt.overlap + step - 1) / step
			if got != want {
				t.Errorf("got %d chunks want %d", got, want)
			}
		})
	}
}

func TestChunk_degenerate(t *testing.T) {
	if got := Chunk("   \n\t  ", 5, 1); len(got) != 0 {
		t.Errorf("empty text should yield no chunks, got %v", got)
	}
	got := Chunk("one two", 5, 1)
	if len(got) != 1 || got[0] != "one two" {
		t.Errorf("short text should yield one chunk, got %v", got)
	}
	got = Chunk("solo", 5, 4)
	if len(got) != 1 {
		t.Errorf("text within overlap should yield one chunk, got %v", got)
	}
}

func TestChunk_coversEveryTokenInOrder(t *testing.T) {
	text := wordSeq(23)
	size, overlap := 5, 2
	c := NewChunker(size, overlap)
	spans := c.Spans(text)
	next := 0
	for i, sp := range spans {
		if i > 0 && sp.Start != spans[i-1].End-overlap {
			t.Errorf("span %d starts at %d, want %d", i, sp.Start, spans[i-1].End-overlap)
		}
		if sp.End < next {
			t.Errorf("span %d goes backwards", i)
		}
		next = sp.End
		if got := len(strings.Fields(sp.Text)); got != sp.End-sp.Start {
			t.Errorf("span %d has %d words for range [%d,%d)", i, got, sp.Start, sp.End)
		}
	}
	if next != 23 {
		t.Errorf("last span ends at %d, want 23", next)
	}
}

func TestChunk_deterministic(t *testing.T) {
	text := "In the beginning   was the Word,\nand the Word was with God " + wordSeq(40)
	a := Chunk(text, 7, 3)
	b := Chunk(text, 7, 3)
	if len(a) != len(b) {
		t.Fatalf("counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs", i)
		}
	}
	if !strings.HasPrefix(a[0], "In the beginning was the Word, and") {
		t.Errorf("whitespace should collapse to single spaces: %q", a[0])
	}
}

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(3, 1)
	chunks := c.Chunk("https://example.org/s", "Study", "one two three four five six seven")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.SourceURL != "https://example.org/s" {
			t.Errorf("chunk %d SourceURL=%s", i, ch.SourceURL)
		}
		if ch.SequenceIndex != i {
			t.Errorf("chunk %d SequenceIndex=%d", i, ch.SequenceIndex)
		}
		if want := fmt.Sprintf("https://example.org/s#chunk%d", i); ch.ID != want {
			t.Errorf("chunk %d ID=%s want %s", i, ch.ID, want)
		}
		if ch.Title != "Study" {
			t.Errorf("chunk %d Title=%s", i, ch.Title)
		}
	}
	if chunks[1].Text != "three four five" || chunks[1].WordStart != 2 || chunks[1].WordEnd != 5 {
		t.Errorf("chunk 1: %+v", chunks[1])
	}
}

func TestPreprocess(t *testing.T) {
	if Preprocess("  a  b \u00a0 c\x01 ") != "a b c" {
		t.Error("expected trimmed and collapsed spaces")
	}
}
