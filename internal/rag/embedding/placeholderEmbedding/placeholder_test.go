package placeholderEmbedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	e := New(64)
	ctx := context.Background()

	a, _ := e.GetEmbedding(ctx, "The quarterly report covers revenue")
	b, _ := e.GetEmbedding(ctx, "The quarterly report covers revenue")
	if len(a) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding is not deterministic at %d", i)
		}
	}
	if n := cosine(a, a); math.Abs(n-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", n)
	}
}

func TestEmbed_SharedWordsScoreHigher(t *testing.T) {
	e := New(256)
	ctx := context.Background()
	vecs, err := e.BatchEmbedding(ctx, []string{
		"revenue grew in the third quarter",
		"third quarter revenue",
		"photosynthesis in plant cells",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cosine(vecs[0], vecs[1]) <= cosine(vecs[0], vecs[2]) {
		t.Errorf("expected overlapping texts to be closer")
	}
}

func TestEmbed_EmptyTextIsUnitVector(t *testing.T) {
	v, _ := New(8).GetEmbedding(context.Background(), "  ")
	if v[0] != 1 {
		t.Errorf("expected fixed unit vector for empty text, got %v", v)
	}
}

func TestEmbed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(8).BatchEmbedding(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}
