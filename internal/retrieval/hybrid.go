package retrieval

import (
	"context"
	"sort"

	"github.com/hyperjump/yomu/internal/models"
)

// hybridCandidates is how many hits each side contributes per requested result.
const hybridCandidates = 4

// Hybrid fuses keyword and vector rankings. Each side's scores are divided by its best
// score, then combined with the configured weights.
type Hybrid struct {
	keyword       Strategy
	vector        Strategy
	keywordWeight float64
	vectorWeight  float64
}

// NewHybrid creates a hybrid strategy over a keyword and a vector strategy.
func NewHybrid(keyword, vector Strategy, keywordWeight, vectorWeight float64) *Hybrid {
	return &Hybrid{keyword: keyword, vector: vector, keywordWeight: keywordWeight, vectorWeight: vectorWeight}
}

func (h *Hybrid) Name() string { return "hybrid" }

func (h *Hybrid) Rank(ctx context.Context, question string, limit int) ([]*models.Result, error) {
	kw, err := h.keyword.Rank(ctx, question, limit*hybridCandidates)
	if err != nil {
		return nil, err
	}
	vec, err := h.vector.Rank(ctx, question, limit*hybridCandidates)
	if err != nil {
		return nil, err
	}
	fused := Fuse(kw, vec, h.keywordWeight, h.vectorWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// Normalize divides every score by the highest one, mapping chunk ID to [0,1]. Results
// with no positive best score normalize to zero.
func Normalize(results []*models.Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	var best float64
	for _, r := range results {
		if r.Score > best {
			best = r.Score
		}
	}
	for _, r := range results {
		if best > 0 {
			out[r.Chunk.ID] = r.Score / best
		} else {
			out[r.Chunk.ID] = 0
		}
	}
	return out
}

// Fuse merges two rankings by weighted normalized score. Ties keep keyword order first,
// then vector order.
func Fuse(keyword, vector []*models.Result, keywordWeight, vectorWeight float64) []*models.Result {
	kwScores := Normalize(keyword)
	vecScores := Normalize(vector)

	var fused []*models.Result
	seen := make(map[string]bool, len(keyword)+len(vector))
	for _, side := range [][]*models.Result{keyword, vector} {
		for _, r := range side {
			id := r.Chunk.ID
			if seen[id] {
				continue
			}
			seen[id] = true
			fused = append(fused, &models.Result{
				Chunk: r.Chunk,
				Score: keywordWeight*kwScores[id] + vectorWeight*vecScores[id],
			})
		}
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}
