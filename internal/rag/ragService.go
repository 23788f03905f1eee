package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

/*
The worker pool, the HTTP handlers and the MCP tools only see Service.
The private service struct holds the stores and backends, all handed in
through Dependencies at startup, so tests swap any of them for mocks.
*/

// answering stages reported in AnsweringError
const (
	StageHistory     = "history"
	StageReformulate = "reformulate"
	StageRetrieve    = "retrieve"
	StageGenerate    = "generate"
	StageLog         = "log"
)

type Service interface {
	Answer(ctx context.Context, req AnswerRequest) (AnswerResult, error)
	Search(ctx context.Context, query string, k int) ([]RetrievedChunk, error)
	IngestDocument(ctx context.Context, filePath string, filename string) (int64, error)
	DeleteDocument(ctx context.Context, fileId int64) error
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
}

type AnswerRequest struct {
	SessionId string
	Question  string
	// Model is one of llm.Models(); empty selects the default
	Model string
}

type AnswerResult struct {
	Answer    string
	SessionId string
	Model     llm.ModelType
	Sources   []commonModels.SourceRef
	Cached    bool
}

type RetrievedChunk struct {
	Text   string
	Source commonModels.SourceRef
}

type ConversationLog interface {
	AppendTurn(ctx context.Context, turn commonModels.ConversationTurn) error
	GetChatHistory(ctx context.Context, sessionId string) ([]commonModels.ConversationTurn, error)
}

type Ingester interface {
	Ingest(ctx context.Context, filePath string, filename string) (int64, error)
}

type Deleter interface {
	Delete(ctx context.Context, fileId int64) error
}

type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
}

type Dependencies struct {
	Index     vectorDB.Index
	Log       ConversationLog
	Models    *llm.Registry
	Ingestion Ingester
	Deletion  Deleter
	Documents DocumentLister
	// Cache is optional
	Cache     vectorDB.AnswerCache
	Retrieval config.RetrievalConfig
	// per backend call; zero means no extra deadline
	EmbeddingTimeout time.Duration
	LLMTimeout       time.Duration
}

type service struct {
	deps   Dependencies
	logger *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	if deps.Retrieval.K <= 0 {
		deps.Retrieval.K = config.DefaultRetrieverK
	}
	if deps.Retrieval.HistoryWindow <= 0 {
		deps.Retrieval.HistoryWindow = config.DefaultHistoryWindow
	}
	return &service{
		deps:   deps,
		logger: logger_i.NewLogger("RAG Service"),
	}
}

// Answer runs one history-aware retrieval pass for req and appends the turn to
// the session's log once an answer has been generated.
func (s *service) Answer(ctx context.Context, req AnswerRequest) (AnswerResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AnswerResult{}, ragErrors.NewValidationError("question", "must not be empty", nil)
	}
	model, provider, err := s.deps.Models.Resolve(req.Model)
	if err != nil {
		return AnswerResult{}, err
	}

	sessionId := strings.TrimSpace(req.SessionId)
	if sessionId == "" {
		sessionId = utils.GetNewUUID()
	}
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("sessionId", sessionId, "model", model)
	result := AnswerResult{SessionId: sessionId, Model: model}

	history, err := s.executeHistoryStep(ctx, log, sessionId)
	if err != nil {
		return result, s.answerError(log, sessionId, StageHistory, err)
	}

	standalone, err := s.executeReformulateStep(ctx, log, provider, question, history)
	if err != nil {
		return result, s.answerError(log, sessionId, StageReformulate, err)
	}

	answer, found := s.executeCacheCheckStep(ctx, log, model, standalone, history)
	if found {
		result.Cached = true
	} else {
		hits, err := s.executeVectorSearchStep(ctx, log, standalone, s.deps.Retrieval.K)
		if err != nil {
			return result, s.answerError(log, sessionId, StageRetrieve, err)
		}
		result.Sources = toSources(hits)

		answer, err = s.executeLLMStep(ctx, log, provider, buildAnswerPrompt(question, hits, history))
		if err != nil {
			return result, s.answerError(log, sessionId, StageGenerate, err)
		}
		if len(history) == 0 {
			s.saveToCache(ctx, log, model, standalone, answer, result.Sources)
		}
	}

	turn := commonModels.ConversationTurn{
		SessionId: sessionId,
		Question:  question,
		Answer:    answer,
		Model:     string(model),
		Timestamp: time.Now().UTC(),
	}
	if err := s.executeLogTurnStep(ctx, log, turn); err != nil {
		return result, s.answerError(log, sessionId, StageLog, err)
	}

	metrics.CaptureAnsweredTurn(string(model), result.Cached)
	result.Answer = answer
	log.Info("question answered", "sources", len(result.Sources), "cached", result.Cached)
	return result, nil
}

// Search is a plain similarity search with no session or generation involved.
func (s *service) Search(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ragErrors.NewValidationError("query", "must not be empty", nil)
	}
	if k <= 0 {
		k = s.deps.Retrieval.K
	}
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY)
	hits, err := s.executeVectorSearchStep(ctx, log, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, RetrievedChunk{Text: hit.Text, Source: toSource(hit)})
	}
	return chunks, nil
}

func (s *service) IngestDocument(ctx context.Context, filePath string, filename string) (int64, error) {
	return s.deps.Ingestion.Ingest(ctx, filePath, filename)
}

func (s *service) DeleteDocument(ctx context.Context, fileId int64) error {
	return s.deps.Deletion.Delete(ctx, fileId)
}

func (s *service) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return s.deps.Documents.ListDocuments(ctx)
}
