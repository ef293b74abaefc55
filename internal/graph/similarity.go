package graph

import (
	"math"
	"sort"

	"github.com/katori-hub/Cortex/internal/db"
)

// SimilarItem is an item with its similarity score to a target embedding.
type SimilarItem struct {
	ItemID     int64
	Similarity float32
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	na := float32(math.Sqrt(float64(normA)))
	nb := float32(math.Sqrt(float64(normB)))

	if na == 0 || nb == 0 {
		return 0.0
	}

	return dot / (na * nb)
}

// Normalize returns a unit-L2-normalized copy of v. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float32
	for _, f := range v {
		sum += f * f
	}
	norm := float32(math.Sqrt(float64(sum)))
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}

// FindSimilar finds the top-N most similar items to a target embedding.
// Excludes the item with excludeID. Only returns items with similarity >= minSimilarity.
// Results are sorted by descending similarity.
func FindSimilar(target []float32, candidates []db.ItemEmbedding, excludeID int64, topN int, minSimilarity float32) []SimilarItem {
	var results []SimilarItem
	for _, c := range candidates {
		if c.ItemID == excludeID {
			continue
		}
		sim := CosineSimilarity(target, c.Embedding)
		if sim >= minSimilarity {
			results = append(results, SimilarItem{
				ItemID:     c.ItemID,
				Similarity: sim,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results
}
