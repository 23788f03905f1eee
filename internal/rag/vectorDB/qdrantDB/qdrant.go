package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logger = logger_i.NewLogger("Qdrant")

// payload key holding the chunk text, everything else is metadata
const contentKey = "content"

const scrollPageSize = 256

type ClientHolder struct {
	QObj       *qdrant.Client
	embedder   vectorDB.Embedder
	collection string
	dimension  uint64
}

// NewClientHolder connects to qdrant and makes sure the chunk collection exists.
func NewClientHolder(ctx context.Context, cfg config.VectorConfig, embedder vectorDB.Embedder) (*ClientHolder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.QdrantHost,
		Port:     cfg.QdrantPort,
		APIKey:   cfg.QdrantAPIKey,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil, ragErrors.NewIndexError("connect", err)
	}

	db := &ClientHolder{
		QObj:       client,
		embedder:   embedder,
		collection: cfg.Collection,
		dimension:  uint64(embedder.Dimension()),
	}
	if err := db.createCollection(ctx, db.collection); err != nil {
		logger.Error("could not create collection: ", "collectionName", db.collection, "error:", err)
		_ = client.Close()
		return nil, ragErrors.NewIndexError("create collection", wrapGrpc(err))
	}
	logger.Info("Qdrant ready", "host", cfg.QdrantHost, "port", cfg.QdrantPort, "collection", db.collection)
	return db, nil
}

func (db *ClientHolder) Close() error {
	logger.Info("Shutting down Qdrant")
	return db.QObj.Close()
}

func (db *ClientHolder) Add(ctx context.Context, entries []vectorDB.Entry) error {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY)
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	vectors, err := vectorDB.EmbedInBatches(ctx, db.embedder, texts, config.EmbeddingBatchSize)
	if err != nil {
		loggr.Error("embedding failed", "error", err)
		return err
	}

	for i := 0; i < len(entries); i += config.EmbeddingBatchSize {
		end := min(i+config.EmbeddingBatchSize, len(entries))
		if err := db.upsertBatch(ctx, entries[i:end], vectors[i:end]); err != nil {
			loggr.Error("upsert failed", "error", err, "batchStart", i)
			return ragErrors.NewIndexError("add", wrapGrpc(err))
		}
	}
	loggr.Debug("points upserted", "count", len(entries))
	return nil
}

func (db *ClientHolder) upsertBatch(ctx context.Context, entries []vectorDB.Entry, vectors [][]float32) error {
	qdrantPoints := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		id := e.Id
		if id == "" {
			id = uuid.NewString()
		}
		payload := make(map[string]any, len(e.Metadata)+1)
		for k, v := range e.Metadata {
			payload[k] = strings.ToValidUTF8(v, "\uFFFD")
		}
		// extracted PDF text is not always valid UTF-8, which qdrant rejects
		payload[contentKey] = strings.ToValidUTF8(e.Text, "\uFFFD")

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return fmt.Errorf("payload for point %s: %w", id, err)
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: values,
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

// QueryByMetadata returns every match, scrolling page by page until qdrant
// reports no further offset.
func (db *ClientHolder) QueryByMetadata(ctx context.Context, filter vectorDB.Filter) ([]vectorDB.Entry, error) {
	qFilter := toQdrantFilter(filter)
	entries, err := scrollAll(ctx, func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		return db.QObj.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: db.collection,
			Filter:         qFilter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
	})
	if err != nil {
		return nil, ragErrors.NewIndexError("query by metadata", wrapGrpc(err))
	}
	return entries, nil
}

type scrollPage func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)

func scrollAll(ctx context.Context, page scrollPage) ([]vectorDB.Entry, error) {
	var entries []vectorDB.Entry
	var offset *qdrant.PointId
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points, next, err := page(offset)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			entries = append(entries, toEntry(p.GetId(), p.GetPayload()))
		}
		if next == nil || len(points) == 0 {
			return entries, nil
		}
		offset = next
	}
}

func (db *ClientHolder) SimilaritySearch(ctx context.Context, query string, k int) ([]vectorDB.SearchHit, error) {
	loggr := logger.WithTrace(ctx, config.TRACE_ID_KEY)
	if k <= 0 {
		return nil, nil
	}
	vectorFloat, err := db.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, ragErrors.NewIndexError("embed query", err)
	}

	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, ragErrors.NewIndexError("similarity search", wrapGrpc(err))
	}

	hits := make([]vectorDB.SearchHit, 0, len(result))
	for _, hit := range result {
		hits = append(hits, vectorDB.SearchHit{
			Entry: toEntry(hit.GetId(), hit.GetPayload()),
			Score: hit.GetScore(),
		})
	}
	loggr.Debug("Found matches", "count", len(hits))
	return hits, nil
}

func (db *ClientHolder) DeleteByMetadata(ctx context.Context, filter vectorDB.Filter) error {
	if len(filter) == 0 {
		return ragErrors.NewIndexError("delete by metadata", errors.New("refusing to delete with an empty filter"))
	}
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(toQdrantFilter(filter)),
	})
	if err != nil {
		return ragErrors.NewIndexError("delete by metadata", wrapGrpc(err))
	}
	return nil
}

func (db *ClientHolder) createCollection(ctx context.Context, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     db.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	// deletes and listings filter on file_id
	_, err = db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		Wait:           qdrant.PtrOf(true),
		FieldName:      "file_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	return err
}

func toQdrantFilter(filter vectorDB.Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]*qdrant.Condition, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, qdrant.NewMatch(k, filter[k]))
	}
	return &qdrant.Filter{Must: conditions}
}

func toEntry(id *qdrant.PointId, payload map[string]*qdrant.Value) vectorDB.Entry {
	entry := vectorDB.Entry{
		Id:       pointIdString(id),
		Metadata: make(map[string]string, len(payload)),
	}
	for k, v := range payload {
		if k == contentKey {
			entry.Text = v.GetStringValue()
			continue
		}
		entry.Metadata[k] = valueString(v)
	}
	return entry
}

func pointIdString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

// points written before metadata became strings may hold numbers
func valueString(v *qdrant.Value) string {
	switch v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return fmt.Sprintf("%d", v.GetIntegerValue())
	case *qdrant.Value_DoubleValue:
		return fmt.Sprintf("%g", v.GetDoubleValue())
	case *qdrant.Value_BoolValue:
		return fmt.Sprintf("%t", v.GetBoolValue())
	default:
		return v.GetStringValue()
	}
}

// wrapGrpc lets a gRPC deadline be recognised as a timeout by errors.Is.
func wrapGrpc(err error) error {
	if s, ok := status.FromError(err); ok && s.Code() == codes.DeadlineExceeded {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
