package vectorDB

import (
	"context"
	"fmt"

	"github.com/akolanti/DocChat/internal/domain/ragErrors"
)

// Entry is one stored chunk: its text and the flat metadata kept beside the vector.
type Entry struct {
	Id       string
	Text     string
	Metadata map[string]string
}

// Filter is an AND of exact metadata equalities.
type Filter map[string]string

func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f {
		if got, ok := metadata[k]; !ok || got != v {
			return false
		}
	}
	return true
}

type SearchHit struct {
	Entry
	Score float32
}

// Index stores chunk embeddings. Every error it returns is a *ragErrors.IndexError.
type Index interface {
	// Add stores entries. An empty Id gets a fresh one, so repeated adds
	// duplicate; an Id already stored is replaced.
	Add(ctx context.Context, entries []Entry) error
	QueryByMetadata(ctx context.Context, filter Filter) ([]Entry, error)
	// SimilaritySearch returns at most k hits, best first.
	SimilaritySearch(ctx context.Context, query string, k int) ([]SearchHit, error)
	// DeleteByMetadata removes every match. Nothing matching is not an error.
	DeleteByMetadata(ctx context.Context, filter Filter) error
	Close() error
}

// AnswerCache remembers answers to standalone questions, keyed by meaning.
// Each answer keeps the file ids it was built from so deleting a document can
// drop every answer that quoted it.
type AnswerCache interface {
	Lookup(ctx context.Context, model string, question string) (string, bool, error)
	Save(ctx context.Context, model string, question string, answer string, fileIds []string) error
	// Forget removes every cached answer grounded on fileId. Nothing cached is not an error.
	Forget(ctx context.Context, fileId string) error
}

// Embedder is the slice of the embedding backend an index needs.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
	Dimension() int
}

// EmbedInBatches embeds texts batchSize at a time and keeps input order.
func EmbedInBatches(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))

		batch, err := e.BatchEmbedding(ctx, texts[i:end])
		if err != nil {
			return nil, ragErrors.NewIndexError("embed", err)
		}
		if len(batch) != end-i {
			return nil, ragErrors.NewIndexError("embed", fmt.Errorf("mismatch: got %d vectors for %d texts", len(batch), end-i))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
