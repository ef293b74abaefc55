package graph

import (
	"math"
	"testing"

	"github.com/katori-hub/Cortex/internal/db"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 2, 3}
	sim := CosineSimilarity(a, b)
	if math.Abs(float64(sim)-1.0) > 0.0001 {
		t.Errorf("expected ~1.0, got %f", sim)
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.3, 0.7, 0.1}
	b := []float32{0.9, 0.2, 0.5}
	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Error("cosine similarity is not symmetric")
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	sim := CosineSimilarity(a, b)
	if math.Abs(float64(sim)) > 0.0001 {
		t.Errorf("expected ~0.0, got %f", sim)
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 0, 0}
	if sim := CosineSimilarity(a, b); sim != 0.0 {
		t.Errorf("expected 0.0, got %f", sim)
	}
}

func TestCosineSimilarity_MismatchedLength(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0, 0}
	if sim := CosineSimilarity(a, b); sim != 0.0 {
		t.Errorf("expected 0.0 for mismatched lengths, got %f", sim)
	}
}

func TestCosineSimilarity_Empty(t *testing.T) {
	if sim := CosineSimilarity(nil, nil); sim != 0.0 {
		t.Errorf("expected 0.0, got %f", sim)
	}
}

func TestNormalize_UnitLength(t *testing.T) {
	v := Normalize([]float32{3, 4})
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 0.0001 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0})
	if v[0] != 0 || v[1] != 0 {
		t.Errorf("zero vector changed: %v", v)
	}
}

func TestFindSimilar_Basic(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []db.ItemEmbedding{
		{ItemID: 1, Embedding: []float32{1, 0, 0}},
		{ItemID: 2, Embedding: []float32{0.9, 0.1, 0}},
		{ItemID: 3, Embedding: []float32{0, 1, 0}},
		{ItemID: 4, Embedding: []float32{-1, 0, 0}},
	}
	results := FindSimilar(target, candidates, 0, 2, 0.0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ItemID != 1 {
		t.Errorf("expected item 1 first, got %d", results[0].ItemID)
	}
	if results[1].ItemID != 2 {
		t.Errorf("expected item 2 second, got %d", results[1].ItemID)
	}
}

func TestFindSimilar_ExcludesSelf(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []db.ItemEmbedding{
		{ItemID: 1, Embedding: []float32{1, 0, 0}},
		{ItemID: 2, Embedding: []float32{0.9, 0.1, 0}},
	}
	results := FindSimilar(target, candidates, 1, 10, 0.0)
	for _, r := range results {
		if r.ItemID == 1 {
			t.Error("excluded item returned")
		}
	}
}

func TestFindSimilar_Threshold(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []db.ItemEmbedding{
		{ItemID: 1, Embedding: []float32{0, 1, 0}},
	}
	results := FindSimilar(target, candidates, 0, 10, 0.5)
	if len(results) != 0 {
		t.Errorf("expected no results below threshold, got %d", len(results))
	}
}
