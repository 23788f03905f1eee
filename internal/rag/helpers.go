package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

func (s *service) answerError(log *logger_i.Logger, sessionId string, stage string, err error) error {
	log.Error("answering failed", "stage", stage, "error", err)
	return &ragErrors.AnsweringError{SessionId: sessionId, Stage: stage, Err: ragErrors.ClassifyTimeout(err)}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *service) executeHistoryStep(ctx context.Context, log *logger_i.Logger, sessionId string) ([]commonModels.ConversationTurn, error) {
	log.Debug("Answer", "Current Step", StageHistory)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("history_lookup", time.Since(start)) }()

	history, err := s.deps.Log.GetChatHistory(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if window := s.deps.Retrieval.HistoryWindow; len(history) > window {
		history = history[len(history)-window:]
	}
	return history, nil
}

// executeReformulateStep turns a follow-up into a standalone question. With
// no history the question is used as is.
func (s *service) executeReformulateStep(ctx context.Context, log *logger_i.Logger, provider llm.Provider, question string, history []commonModels.ConversationTurn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}
	log.Debug("Answer", "Current Step", StageReformulate, "turns", len(history))

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("reformulate", time.Since(start)) }()

	callCtx, cancel := withTimeout(ctx, s.deps.LLMTimeout)
	defer cancel()

	standalone, err := provider.Generate(callCtx, llm.Prompt{
		Task:              llm.TaskReformulate,
		SystemInstruction: config.ContextualizeInstruction,
		History:           history,
		Question:          question,
	})
	if err != nil {
		return "", err
	}
	if standalone = strings.TrimSpace(standalone); standalone == "" {
		return question, nil
	}
	log.Debug("Answer", "standalone question", standalone)
	return standalone, nil
}

// cache lookups only apply to the first question of a session, a follow-up
// depends on its history
func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, model llm.ModelType, question string, history []commonModels.ConversationTurn) (string, bool) {
	if s.deps.Cache == nil || len(history) > 0 {
		return "", false
	}
	log.Debug("Answer", "Current Step", "cache")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	callCtx, cancel := withTimeout(ctx, s.deps.EmbeddingTimeout)
	defer cancel()

	answer, found, err := s.deps.Cache.Lookup(callCtx, string(model), question)
	if err != nil {
		log.Warn("cache lookup failed, continuing without it", "error", err)
		return "", false
	}
	return answer, found
}

func (s *service) saveToCache(ctx context.Context, log *logger_i.Logger, model llm.ModelType, question string, answer string, sources []commonModels.SourceRef) {
	if s.deps.Cache == nil {
		return
	}
	callCtx, cancel := withTimeout(ctx, s.deps.EmbeddingTimeout)
	defer cancel()
	if err := s.deps.Cache.Save(callCtx, string(model), question, answer, sourceFileIds(sources)); err != nil {
		log.Warn("failed to save answer to cache", "error", err)
	}
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, query string, k int) ([]vectorDB.SearchHit, error) {
	log.Debug("Answer", "Current Step", StageRetrieve, "k", k)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	callCtx, cancel := withTimeout(ctx, s.deps.EmbeddingTimeout)
	defer cancel()

	hits, err := s.deps.Index.SimilaritySearch(callCtx, query, k)
	if err != nil {
		return nil, err
	}
	log.Debug("Answer", "retrieved chunks", len(hits))
	return hits, nil
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, provider llm.Provider, prompt llm.Prompt) (string, error) {
	log.Debug("Answer", "Current Step", StageGenerate, "context chunks", len(prompt.Context))

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	callCtx, cancel := withTimeout(ctx, s.deps.LLMTimeout)
	defer cancel()

	return provider.Generate(callCtx, prompt)
}

func (s *service) executeLogTurnStep(ctx context.Context, log *logger_i.Logger, turn commonModels.ConversationTurn) error {
	log.Debug("Answer", "Current Step", StageLog)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("conversation_log", time.Since(start)) }()

	return s.deps.Log.AppendTurn(ctx, turn)
}

// buildAnswerPrompt keeps the retrieved chunks in ranking order.
func buildAnswerPrompt(question string, hits []vectorDB.SearchHit, history []commonModels.ConversationTurn) llm.Prompt {
	contexts := make([]string, 0, len(hits))
	for _, hit := range hits {
		contexts = append(contexts, hit.Text)
	}
	return llm.Prompt{
		Task:              llm.TaskAnswer,
		SystemInstruction: config.ModelContext,
		Context:           contexts,
		History:           history,
		Question:          question,
	}
}

func toSource(hit vectorDB.SearchHit) commonModels.SourceRef {
	return commonModels.SourceRef{
		FileId:     hit.Metadata[commonModels.MetaFileId],
		Filename:   hit.Metadata[commonModels.MetaFilename],
		ChunkOrder: hit.Metadata[commonModels.MetaChunkOrder],
		Score:      hit.Score,
	}
}

// sourceFileIds lists each distinct file id once, in rank order.
func sourceFileIds(sources []commonModels.SourceRef) []string {
	seen := make(map[string]bool, len(sources))
	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.FileId == "" || seen[src.FileId] {
			continue
		}
		seen[src.FileId] = true
		ids = append(ids, src.FileId)
	}
	return ids
}

func toSources(hits []vectorDB.SearchHit) []commonModels.SourceRef {
	sources := make([]commonModels.SourceRef, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, toSource(hit))
	}
	return sources
}
