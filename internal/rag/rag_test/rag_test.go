package rag_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/data/sqliteStore"
	"github.com/akolanti/DocChat/internal/data/store"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/deletion"
	"github.com/akolanti/DocChat/internal/rag/embedding/placeholderEmbedding"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/internal/rag/vectorDB/memoryDB"
)

func newRegistry(p llm.Provider) *llm.Registry {
	r := llm.NewRegistry(llm.GeminiFlashLite)
	r.Register(llm.GeminiFlashLite, p)
	r.Register(llm.GeminiFlash, p)
	return r
}

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestAnswer_Scenarios(t *testing.T) {
	history := []commonModels.ConversationTurn{{SessionId: "s1", Question: "What is Go?", Answer: "A language."}}

	tests := []struct {
		name        string
		req         rag.AnswerRequest
		setupMocks  func(idx *MockIndex, l *MockLLM, log *MockLog)
		wantStage   string
		wantAnswer  string
		wantLogged  int
		wantTimeout bool
	}{
		{
			name:       "Success_New_Session",
			req:        rag.AnswerRequest{Question: "What is X?"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {},
			wantAnswer: "mocked llm response",
			wantLogged: 1,
		},
		{
			name: "Failure_History",
			req:  rag.AnswerRequest{SessionId: "s1", Question: "q"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {
				log.OnGetChatHistory = func(ctx context.Context, id string) ([]commonModels.ConversationTurn, error) {
					return nil, ragErrors.NewStoreError("get_chat_history", id, errors.New("disk I/O error"))
				}
			},
			wantStage: rag.StageHistory,
		},
		{
			name: "Failure_Reformulate",
			req:  rag.AnswerRequest{SessionId: "s1", Question: "and its creator?"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {
				log.OnGetChatHistory = func(ctx context.Context, id string) ([]commonModels.ConversationTurn, error) { return history, nil }
				l.OnGenerate = func(ctx context.Context, p llm.Prompt) (string, error) {
					return "", errors.New("quota exhausted")
				}
			},
			wantStage: rag.StageReformulate,
		},
		{
			name: "Failure_Vector_Search",
			req:  rag.AnswerRequest{Question: "q"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {
				idx.OnSimilaritySearch = func(ctx context.Context, q string, k int) ([]vectorDB.SearchHit, error) {
					return nil, ragErrors.NewIndexError("search", errors.New("connection refused"))
				}
			},
			wantStage: rag.StageRetrieve,
		},
		{
			name: "Failure_LLM_Generation",
			req:  rag.AnswerRequest{Question: "q"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {
				l.OnGenerate = func(ctx context.Context, p llm.Prompt) (string, error) {
					return "", errors.New("provider down")
				}
			},
			wantStage: rag.StageGenerate,
		},
		{
			name: "Failure_LLM_Timeout",
			req:  rag.AnswerRequest{Question: "q"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {
				l.OnGenerate = func(ctx context.Context, p llm.Prompt) (string, error) {
					<-ctx.Done()
					return "", ctx.Err()
				}
			},
			wantStage:   rag.StageGenerate,
			wantTimeout: true,
		},
		{
			name: "Failure_Log_Append",
			req:  rag.AnswerRequest{Question: "q"},
			setupMocks: func(idx *MockIndex, l *MockLLM, log *MockLog) {
				log.OnAppendTurn = func(ctx context.Context, turn commonModels.ConversationTurn) error {
					return ragErrors.NewStoreError("append_turn", turn.SessionId, errors.New("database is locked"))
				}
			},
			wantStage: rag.StageLog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mIdx := &MockIndex{}
			mLLM := &MockLLM{}
			mLog := &MockLog{}
			tt.setupMocks(mIdx, mLLM, mLog)

			s := rag.NewService(rag.Dependencies{
				Index:      mIdx,
				Log:        mLog,
				Models:     newRegistry(mLLM),
				LLMTimeout: 50 * time.Millisecond,
			})

			result, err := s.Answer(testCtx(), tt.req)

			if len(mLog.Appended) != tt.wantLogged {
				t.Errorf("logged turns got %d, want %d", len(mLog.Appended), tt.wantLogged)
			}
			if tt.wantStage == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if result.Answer != tt.wantAnswer {
					t.Errorf("Answer got %q, want %q", result.Answer, tt.wantAnswer)
				}
				if result.SessionId == "" {
					t.Error("expected a session id")
				}
				return
			}

			var answerErr *ragErrors.AnsweringError
			if !errors.As(err, &answerErr) {
				t.Fatalf("expected AnsweringError, got %v", err)
			}
			if answerErr.Stage != tt.wantStage {
				t.Errorf("Stage got %s, want %s", answerErr.Stage, tt.wantStage)
			}
			if ragErrors.IsTimeout(err) != tt.wantTimeout {
				t.Errorf("timeout classification got %v, want %v (%v)", ragErrors.IsTimeout(err), tt.wantTimeout, err)
			}
		})
	}
}

func TestAnswer_Validation(t *testing.T) {
	mLLM := &MockLLM{}
	mLog := &MockLog{}
	s := rag.NewService(rag.Dependencies{Index: &MockIndex{}, Log: mLog, Models: newRegistry(mLLM)})

	tests := []struct {
		name string
		req  rag.AnswerRequest
	}{
		{"Empty question", rag.AnswerRequest{Question: "   "}},
		{"Unknown model", rag.AnswerRequest{Question: "q", Model: "gpt-2"}},
		{"Known but unconfigured model", rag.AnswerRequest{Question: "q", Model: string(llm.GPT4oMini)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Answer(testCtx(), tt.req)
			if !ragErrors.IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
	if len(mLLM.Prompts) != 0 || len(mLog.Appended) != 0 {
		t.Error("validation failures must not reach the backends")
	}
}

func TestAnswer_FollowUpUsesReformulatedQuery(t *testing.T) {
	mIdx := &MockIndex{}
	mLLM := &MockLLM{}
	convLog := store.NewInMemoryConversationLog()
	s := rag.NewService(rag.Dependencies{Index: mIdx, Log: convLog, Models: newRegistry(mLLM)})

	first, err := s.Answer(testCtx(), rag.AnswerRequest{Question: "Who wrote Go?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mLLM.PromptsFor(llm.TaskReformulate)) != 0 {
		t.Error("a new session should not be reformulated")
	}
	if mIdx.Queries[0] != "Who wrote Go?" {
		t.Errorf("first query should be verbatim, got %q", mIdx.Queries[0])
	}

	second, err := s.Answer(testCtx(), rag.AnswerRequest{SessionId: first.SessionId, Question: "When?"})
	if err != nil {
		t.Fatal(err)
	}
	if second.SessionId != first.SessionId {
		t.Errorf("session changed: %s -> %s", first.SessionId, second.SessionId)
	}

	reformulations := mLLM.PromptsFor(llm.TaskReformulate)
	if len(reformulations) != 1 || len(reformulations[0].History) != 1 {
		t.Fatalf("expected one reformulation with one turn of history, got %+v", reformulations)
	}
	if mIdx.Queries[1] != "standalone: When?" {
		t.Errorf("retrieval should use the standalone question, got %q", mIdx.Queries[1])
	}

	answers := mLLM.PromptsFor(llm.TaskAnswer)
	last := answers[len(answers)-1]
	if last.Question != "When?" {
		t.Errorf("the answer prompt keeps the original question, got %q", last.Question)
	}
	if len(last.History) != 1 || last.History[0].Question != "Who wrote Go?" {
		t.Errorf("answer prompt history wrong: %+v", last.History)
	}

	turns, _ := convLog.GetChatHistory(testCtx(), first.SessionId)
	if len(turns) != 2 || turns[1].Question != "When?" || turns[1].Model != string(llm.GeminiFlashLite) {
		t.Errorf("unexpected log: %+v", turns)
	}
}

func TestAnswer_HistoryWindow(t *testing.T) {
	var turns []commonModels.ConversationTurn
	for i := 0; i < 15; i++ {
		turns = append(turns, commonModels.ConversationTurn{SessionId: "s", Question: fmt.Sprintf("q%d", i)})
	}
	mLLM := &MockLLM{}
	mLog := &MockLog{OnGetChatHistory: func(ctx context.Context, id string) ([]commonModels.ConversationTurn, error) { return turns, nil }}
	s := rag.NewService(rag.Dependencies{
		Index:     &MockIndex{},
		Log:       mLog,
		Models:    newRegistry(mLLM),
		Retrieval: config.RetrievalConfig{K: 2, HistoryWindow: 4},
	})

	if _, err := s.Answer(testCtx(), rag.AnswerRequest{SessionId: "s", Question: "next"}); err != nil {
		t.Fatal(err)
	}
	answers := mLLM.PromptsFor(llm.TaskAnswer)
	h := answers[0].History
	if len(h) != 4 || h[0].Question != "q11" || h[3].Question != "q14" {
		t.Errorf("expected the last four turns, got %+v", h)
	}
}

func TestAnswer_ContextKeepsRankingOrder(t *testing.T) {
	mIdx := &MockIndex{OnSimilaritySearch: func(ctx context.Context, q string, k int) ([]vectorDB.SearchHit, error) {
		if k != 3 {
			t.Errorf("expected default k of 3, got %d", k)
		}
		return []vectorDB.SearchHit{
			{Entry: vectorDB.Entry{Text: "best", Metadata: map[string]string{commonModels.MetaFileId: "2"}}, Score: 0.9},
			{Entry: vectorDB.Entry{Text: "second", Metadata: map[string]string{commonModels.MetaFileId: "5"}}, Score: 0.5},
		}, nil
	}}
	mLLM := &MockLLM{}
	s := rag.NewService(rag.Dependencies{Index: mIdx, Log: &MockLog{}, Models: newRegistry(mLLM)})

	result, err := s.Answer(testCtx(), rag.AnswerRequest{Question: "q", Model: string(llm.GeminiFlash)})
	if err != nil {
		t.Fatal(err)
	}
	prompt := mLLM.PromptsFor(llm.TaskAnswer)[0]
	if len(prompt.Context) != 2 || prompt.Context[0] != "best" || prompt.Context[1] != "second" {
		t.Errorf("context order wrong: %v", prompt.Context)
	}
	if prompt.SystemInstruction != config.ModelContext {
		t.Error("answer prompt should carry the system instruction")
	}
	if result.Model != llm.GeminiFlash {
		t.Errorf("model got %s", result.Model)
	}
	if len(result.Sources) != 2 || result.Sources[1].FileId != "5" {
		t.Errorf("sources wrong: %+v", result.Sources)
	}
}

func TestAnswer_SemanticCache(t *testing.T) {
	mIdx := &MockIndex{}
	mLLM := &MockLLM{}
	mLog := &MockLog{}
	cache := &MockCache{OnLookup: func(ctx context.Context, model string, q string) (string, bool, error) {
		if q == "cached question" {
			return "cached answer", true, nil
		}
		return "", false, errors.New("cache offline")
	}}
	s := rag.NewService(rag.Dependencies{Index: mIdx, Log: mLog, Models: newRegistry(mLLM), Cache: cache})

	hit, err := s.Answer(testCtx(), rag.AnswerRequest{Question: "cached question"})
	if err != nil {
		t.Fatal(err)
	}
	if !hit.Cached || hit.Answer != "cached answer" {
		t.Errorf("expected cache hit, got %+v", hit)
	}
	if len(mIdx.Queries) != 0 || len(mLLM.Prompts) != 0 {
		t.Error("a cache hit should skip retrieval and generation")
	}
	if len(mLog.Appended) != 1 {
		t.Errorf("a cache hit is still a logged turn, got %d", len(mLog.Appended))
	}

	// lookup errors fall through to the normal path
	miss, err := s.Answer(testCtx(), rag.AnswerRequest{Question: "fresh question"})
	if err != nil {
		t.Fatal(err)
	}
	if miss.Cached || miss.Answer != "mocked llm response" {
		t.Errorf("expected a generated answer, got %+v", miss)
	}
	if len(cache.Saved) != 1 || cache.Saved[0] != "fresh question" {
		t.Errorf("expected the fresh answer to be cached, got %v", cache.Saved)
	}
	if len(cache.Entries) != 1 || !slices.Equal(cache.Entries[0].FileIds, []string{"1"}) {
		t.Errorf("cached answer should remember its source files, got %+v", cache.Entries)
	}
}

func TestAnswer_DeletedDocumentLeavesTheCache(t *testing.T) {
	ctx := testCtx()
	db, err := sqliteStore.Open(ctx, filepath.Join(t.TempDir(), "rag.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	idx := memoryDB.New(placeholderEmbedding.New(256))
	dropped, _ := db.InsertDocument(ctx, "pricing.pdf")
	kept, _ := db.InsertDocument(ctx, "other.pdf")
	err = idx.Add(ctx, []vectorDB.Entry{
		{Id: "p", Text: "The enterprise plan costs forty dollars", Metadata: map[string]string{commonModels.MetaFileId: dropped.FileIdString()}},
		{Id: "o", Text: "Unrelated notes about gardening", Metadata: map[string]string{commonModels.MetaFileId: kept.FileIdString()}},
	})
	if err != nil {
		t.Fatal(err)
	}

	cache := &MockCache{}
	s := rag.NewService(rag.Dependencies{
		Index:     idx,
		Log:       store.NewInMemoryConversationLog(),
		Models:    newRegistry(&MockLLM{}),
		Cache:     cache,
		Deletion:  deletion.NewCoordinator(db, idx, deletion.WithAnswerCache(cache)),
		Documents: db,
	})

	first, err := s.Answer(ctx, rag.AnswerRequest{Question: "What does the enterprise plan cost?"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || len(cache.Entries) != 1 {
		t.Fatalf("expected a generated and cached answer, got %+v", first)
	}
	if !slices.Contains(cache.Entries[0].FileIds, dropped.FileIdString()) {
		t.Fatalf("cached answer should name file %s, got %v", dropped.FileIdString(), cache.Entries[0].FileIds)
	}

	if err := s.DeleteDocument(ctx, dropped.FileId); err != nil {
		t.Fatal(err)
	}
	if len(cache.Entries) != 0 {
		t.Errorf("answers grounded on a deleted document must leave the cache, got %+v", cache.Entries)
	}

	again, err := s.Answer(ctx, rag.AnswerRequest{Question: "What does the enterprise plan cost?"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Cached {
		t.Error("a new session must not get the answer built from the deleted document")
	}
	for _, src := range again.Sources {
		if src.FileId == dropped.FileIdString() {
			t.Errorf("deleted file %s still retrieved", src.FileId)
		}
	}
}

func TestSearchAndDocuments_EndToEnd(t *testing.T) {
	idx := memoryDB.New(placeholderEmbedding.New(256))
	ctx := testCtx()
	err := idx.Add(ctx, []vectorDB.Entry{
		{Id: "a", Text: "Alpha Beta. Gamma Delta.", Metadata: map[string]string{commonModels.MetaFileId: "1", commonModels.MetaFilename: "doc.pdf"}},
		{Id: "b", Text: "completely unrelated words", Metadata: map[string]string{commonModels.MetaFileId: "2"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := rag.NewService(rag.Dependencies{Index: idx, Log: &MockLog{}, Models: newRegistry(&MockLLM{})})

	chunks, err := s.Search(ctx, "Alpha", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Source.FileId != "1" || chunks[0].Source.Filename != "doc.pdf" {
		t.Errorf("expected the Alpha chunk first, got %+v", chunks)
	}

	if _, err := s.Search(ctx, "", 1); !ragErrors.IsValidation(err) {
		t.Errorf("expected ValidationError for empty query, got %v", err)
	}
}
