package qdrantDB

import (
	"context"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// SemanticCache stores answers in a second collection of the same qdrant
// instance. A hit needs the same model and a near-identical question vector.
type SemanticCache struct {
	db         *ClientHolder
	collection string
	cutoff     float32
}

func NewSemanticCache(ctx context.Context, db *ClientHolder) (*SemanticCache, error) {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY)
	if err := db.createCollection(ctx, config.SemanticCacheDBName); err != nil {
		loggr.Error("Semantic cache collection creation failed", "error", err)
		return nil, ragErrors.NewIndexError("create cache collection", wrapGrpc(err))
	}
	return &SemanticCache{db: db, collection: config.SemanticCacheDBName, cutoff: config.CacheSimilarityCutoff}, nil
}

func (c *SemanticCache) Lookup(ctx context.Context, model string, question string) (string, bool, error) {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	loggr.Info("Searching for cached answer")
	queryVector, err := c.db.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return "", false, ragErrors.NewIndexError("cache embed", err)
	}
	searchResult, err := c.db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("model", model)}},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache Query failed", "error", err)
		return "", false, ragErrors.NewIndexError("cache lookup", wrapGrpc(err))
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	loggr.Debug("Closest cached answer", "semantic similarity score", searchResult[0].Score)
	if searchResult[0].Score < c.cutoff {
		return "", false, nil
	}

	loggr.Info("semantic cache hit")
	answer := searchResult[0].Payload["answer"].GetStringValue()
	return answer, answer != "", nil
}

func (c *SemanticCache) Save(ctx context.Context, model string, question string, answer string, fileIds []string) error {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	vector, err := c.db.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return ragErrors.NewIndexError("cache embed", err)
	}
	loggr.Debug("Saving answer to cache")
	_, err = c.db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"question":  question,
					"model":     model,
					"timestamp": time.Now().Unix(),
					// a keyword match on a list field hits any element
					commonModels.MetaFileId: fileIdList(fileIds),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
		return ragErrors.NewIndexError("cache save", wrapGrpc(err))
	}
	return nil
}

func (c *SemanticCache) Forget(ctx context.Context, fileId string) error {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("fileId", fileId)
	_, err := c.db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(cacheFilter(fileId)),
	})
	if err != nil {
		loggr.Error("Dropping cached answers failed", "error", err)
		return ragErrors.NewIndexError("cache forget", wrapGrpc(err))
	}
	loggr.Debug("Dropped cached answers for document")
	return nil
}

func cacheFilter(fileId string) *qdrant.Filter {
	return toQdrantFilter(vectorDB.Filter{commonModels.MetaFileId: fileId})
}

func fileIdList(fileIds []string) []any {
	list := make([]any, len(fileIds))
	for i, id := range fileIds {
		list[i] = id
	}
	return list
}
