package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocChat/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocChat/internal/rag/embedding/placeholderEmbedding"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
	Dimension() int
}

// New builds the embedding backend picked by the resolved config.
func New(ctx context.Context, cfg *config.Config, httpClient *http.Client) (Embedder, error) {
	logger := logger_i.NewLogger("embedding")
	switch cfg.Embedding.Backend {
	case config.EmbeddingGoogle:
		logger.Info("using google embeddings", "model", cfg.Embedding.Model, "dimension", cfg.Embedding.Dimension)
		return googleEmbedding.NewClient(ctx, cfg.GoogleAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimension, httpClient)
	case config.EmbeddingOpenAI:
		logger.Info("using openai embeddings", "model", cfg.Embedding.Model, "dimension", cfg.Embedding.Dimension)
		return openaiEmbedding.NewClient(cfg.OpenAIAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimension, httpClient), nil
	case config.EmbeddingPlaceholder:
		logger.Warn("using placeholder embeddings, retrieval quality is not meaningful", "dimension", cfg.Embedding.Dimension)
		return placeholderEmbedding.New(int(cfg.Embedding.Dimension)), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embedding.Backend)
	}
}
