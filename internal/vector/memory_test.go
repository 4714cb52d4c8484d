package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	// Unnormalized query: cosine ignores magnitude.
	results, err := idx.Search(ctx, []float32{5, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || math.Abs(results[0].Score-1) > 1e-9 {
		t.Errorf("top result should be a with score 1, got %s %f", results[0].ID, results[0].Score)
	}
	if results[1].ID != "b" {
		t.Errorf("second result should be b, got %s", results[1].ID)
	}
}

func TestMemoryIndex_AddReplacesSameID(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{0, 1}})
	if idx.Size() != 1 {
		t.Fatalf("expected size 1, got %d", idx.Size())
	}
	results, _ := idx.Search(ctx, []float32{0, 1}, 1)
	if results[0].Score < 0.99 {
		t.Errorf("expected replaced vector, score %f", results[0].Score)
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x", "y", "z"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err := idx.Remove(ctx, []string{"x", "missing"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("expected size 2, got %d", idx.Size())
	}
	results, _ := idx.Search(ctx, []float32{1, 0}, 5)
	for _, r := range results {
		if r.ID == "x" {
			t.Error("removed vector returned")
		}
	}
	// positions are rebuilt, so replacing z still works
	_ = idx.Add(ctx, []string{"z"}, [][]float32{{-1, 0}})
	if idx.Size() != 2 {
		t.Errorf("expected size 2 after replace, got %d", idx.Size())
	}
	if ids := idx.IDs(); len(ids) != 2 || ids[0] != "y" || ids[1] != "z" {
		t.Errorf("IDs = %v", ids)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"x"}, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected error for wrong dimension")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected error for wrong query dimension")
	}
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indices", "vectors.bin")
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"https://example.org/a#chunk0", "b#chunk1"}, [][]float32{{1, 2, 3}, {-1, 0.5, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size %d", loaded.Size())
	}
	results, _ := loaded.Search(ctx, []float32{1, 2, 3}, 1)
	if results[0].ID != "https://example.org/a#chunk0" {
		t.Errorf("got %s", results[0].ID)
	}

	wrong, _ := NewMemoryIndex(4)
	if err := wrong.Load(path); err == nil {
		t.Error("expected dimension mismatch error")
	}
	missing, _ := NewMemoryIndex(3)
	if err := missing.Load(filepath.Join(t.TempDir(), "nope.bin")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}
