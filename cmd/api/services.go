package main

import (
	"context"
	"fmt"
	"io"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/customHttpClient"
	"github.com/akolanti/DocChat/internal/data/redisStore"
	"github.com/akolanti/DocChat/internal/data/sqliteStore"
	"github.com/akolanti/DocChat/internal/data/store"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/deletion"
	"github.com/akolanti/DocChat/internal/rag/embedding"
	"github.com/akolanti/DocChat/internal/rag/ingest"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/llm/gemini"
	"github.com/akolanti/DocChat/internal/rag/llm/offlineLLM"
	"github.com/akolanti/DocChat/internal/rag/llm/openaiLLM"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/DocChat/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

type conversationLog interface {
	rag.ConversationLog
	io.Closer
}

type services struct {
	rag     rag.Service
	closers []io.Closer
	logger  *logger_i.Logger
}

// close tears the stores down in reverse construction order.
func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Error("closing service failed", "error", err)
		}
	}
	customHttpClient.CloseIdle()
}

// buildServices constructs every store and backend once, from the resolved config.
func buildServices(ctx context.Context, cfg *config.Config) (_ *services, err error) {
	s := &services{logger: logger_i.NewLogger("Services")}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	db, err := sqliteStore.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db)

	convLog, err := newConversationLog(ctx, cfg, db, s.logger)
	if err != nil {
		return nil, err
	}
	// the sqlite store tolerates a second Close when it doubles as the log
	s.closers = append(s.closers, convLog)

	embedder, err := embedding.New(ctx, cfg, customHttpClient.NewClient(cfg.Embedding.Timeout))
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}

	var index vectorDB.Index
	var cache vectorDB.AnswerCache
	switch cfg.Vector.Backend {
	case config.VectorQdrant:
		qdrant, err := qdrantDB.NewClientHolder(ctx, cfg.Vector, embedder)
		if err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		index = qdrant
		if cfg.Vector.SemanticCache {
			semanticCache, err := qdrantDB.NewSemanticCache(ctx, qdrant)
			if err != nil {
				s.logger.Warn("semantic cache unavailable, continuing without it", "error", err)
			} else {
				cache = semanticCache
			}
		}
	default:
		s.logger.Warn("using the in-memory vector index, documents are lost on restart")
		index = memoryDB.New(embedder)
	}
	s.closers = append(s.closers, index)

	models, err := newModelRegistry(ctx, cfg, s.logger)
	if err != nil {
		return nil, err
	}

	s.rag = rag.NewService(rag.Dependencies{
		Index:            index,
		Log:              convLog,
		Models:           models,
		Ingestion:        ingest.NewPipeline(db, index, cfg.Chunking),
		Deletion:         deletion.NewCoordinator(db, index, deletion.WithAnswerCache(cache)),
		Documents:        db,
		Cache:            cache,
		Retrieval:        cfg.Retrieval,
		EmbeddingTimeout: cfg.Embedding.Timeout,
		LLMTimeout:       cfg.LLM.Timeout,
	})
	return s, nil
}

// newConversationLog falls back to memory when redis is configured but offline.
func newConversationLog(ctx context.Context, cfg *config.Config, db *sqliteStore.Store, log *logger_i.Logger) (conversationLog, error) {
	switch cfg.Conversation.Backend {
	case config.ConversationRedis:
		redis, err := redisStore.NewStore(ctx, cfg.Conversation, config.RedisMessageStore)
		if err != nil {
			log.Error("Redis stores are offline, keeping conversations in memory", "error", err)
			return store.NewInMemoryConversationLog(), nil
		}
		return store.NewRedisConversationLog(redis, cfg.Conversation.TTL), nil
	case config.ConversationMemory:
		return store.NewInMemoryConversationLog(), nil
	default:
		return db, nil
	}
}

// newModelRegistry registers a provider for every model. Models whose
// provider has no credential answer offline.
func newModelRegistry(ctx context.Context, cfg *config.Config, log *logger_i.Logger) (*llm.Registry, error) {
	defaultModel, err := llm.ParseModel(cfg.LLM.DefaultModel)
	if err != nil {
		return nil, err
	}
	registry := llm.NewRegistry(defaultModel)
	httpClient := customHttpClient.NewClient(cfg.LLM.Timeout)
	offline := offlineLLM.New()

	for _, model := range []llm.ModelType{llm.GeminiFlashLite, llm.GeminiFlash} {
		if cfg.GoogleAPIKey == "" {
			registry.Register(model, offline)
			continue
		}
		client, err := gemini.NewClient(ctx, cfg.GoogleAPIKey, string(model), httpClient)
		if err != nil {
			return nil, fmt.Errorf("gemini %s: %w", model, err)
		}
		registry.Register(model, client)
	}

	if cfg.OpenAIAPIKey == "" {
		registry.Register(llm.GPT4oMini, offline)
	} else {
		registry.Register(llm.GPT4oMini, openaiLLM.NewClient(cfg.OpenAIAPIKey, string(llm.GPT4oMini), httpClient))
	}

	if cfg.GoogleAPIKey == "" || cfg.OpenAIAPIKey == "" {
		log.Warn("some models have no credential and answer offline", "google", cfg.GoogleAPIKey != "", "openai", cfg.OpenAIAPIKey != "")
	}
	return registry, nil
}
