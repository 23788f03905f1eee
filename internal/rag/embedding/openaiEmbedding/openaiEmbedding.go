package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("openai_embedding")

type Client struct {
	api       openai.Client
	model     string
	dimension int32
}

func NewClient(apiKey string, modelName string, dimension int32, httpClient *http.Client, opts ...option.RequestOption) *Client {
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		options = append(options, option.WithHTTPClient(httpClient))
	}
	options = append(options, opts...)

	logger.Info("OpenAI Embedding client created", "model", modelName)
	return &Client{
		api:       openai.NewClient(options...),
		model:     modelName,
		dimension: dimension,
	}
}

func (c *Client) Dimension() int {
	return int(c.dimension)
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY)
	if len(chunks) == 0 {
		return nil, nil
	}

	res, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunks},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		log.Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, err
	}
	if len(res.Data) != len(chunks) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d chunks", len(res.Data), len(chunks))
	}

	// the API does not promise response order, Index does
	data := res.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		vectors[i] = v
	}
	log.Debug("openai embeddings received", "count", len(vectors))
	return vectors, nil
}
