package vectorDB

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocChat/internal/domain/ragErrors"
)

type countingEmbedder struct {
	calls   [][]string
	onBatch func(chunks []string) ([][]float32, error)
}

func (c *countingEmbedder) GetEmbedding(ctx context.Context, q string) ([]float32, error) {
	return []float32{1}, nil
}
func (c *countingEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	c.calls = append(c.calls, chunks)
	if c.onBatch != nil {
		return c.onBatch(chunks)
	}
	out := make([][]float32, len(chunks))
	for i, s := range chunks {
		out[i] = []float32{float32(len(s))}
	}
	return out, nil
}
func (c *countingEmbedder) Dimension() int { return 1 }

func TestEmbedInBatches(t *testing.T) {
	e := &countingEmbedder{}
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vectors, err := EmbedInBatches(context.Background(), e, texts, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(e.calls) != 3 {
		t.Errorf("expected 3 batches, got %d", len(e.calls))
	}
	for i, v := range vectors {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
}

func TestEmbedInBatches_Errors(t *testing.T) {
	cause := errors.New("quota")
	e := &countingEmbedder{onBatch: func([]string) ([][]float32, error) { return nil, cause }}
	_, err := EmbedInBatches(context.Background(), e, []string{"a"}, 10)
	var ie *ragErrors.IndexError
	if !errors.As(err, &ie) || !errors.Is(err, cause) {
		t.Errorf("expected IndexError wrapping cause, got %v", err)
	}

	short := &countingEmbedder{onBatch: func([]string) ([][]float32, error) { return [][]float32{{1}}, nil }}
	if _, err := EmbedInBatches(context.Background(), short, []string{"a", "b"}, 10); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestFilterMatches(t *testing.T) {
	md := map[string]string{"file_id": "4", "filename": "a.pdf"}
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"single key", Filter{"file_id": "4"}, true},
		{"all keys", Filter{"file_id": "4", "filename": "a.pdf"}, true},
		{"wrong value", Filter{"file_id": "40"}, false},
		{"missing key", Filter{"page_num": "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(md); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
