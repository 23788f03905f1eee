package rag_test

import (
	"context"
	"slices"
	"sync"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

// MockIndex implements vectorDB.Index
type MockIndex struct {
	OnSimilaritySearch func(ctx context.Context, query string, k int) ([]vectorDB.SearchHit, error)
	Queries            []string
}

func (m *MockIndex) Add(ctx context.Context, entries []vectorDB.Entry) error { return nil }

func (m *MockIndex) QueryByMetadata(ctx context.Context, filter vectorDB.Filter) ([]vectorDB.Entry, error) {
	return nil, nil
}

func (m *MockIndex) SimilaritySearch(ctx context.Context, query string, k int) ([]vectorDB.SearchHit, error) {
	m.Queries = append(m.Queries, query)
	if m.OnSimilaritySearch != nil {
		return m.OnSimilaritySearch(ctx, query, k)
	}
	return []vectorDB.SearchHit{{
		Entry: vectorDB.Entry{Id: "c1", Text: "default context", Metadata: map[string]string{
			commonModels.MetaFileId:     "1",
			commonModels.MetaFilename:   "doc.pdf",
			commonModels.MetaChunkOrder: "0",
		}},
		Score: 0.9,
	}}, nil
}

func (m *MockIndex) DeleteByMetadata(ctx context.Context, filter vectorDB.Filter) error { return nil }

func (m *MockIndex) Close() error { return nil }

// MockLLM implements llm.Provider and records every prompt it was given
type MockLLM struct {
	OnGenerate func(ctx context.Context, p llm.Prompt) (string, error)

	mu      sync.Mutex
	Prompts []llm.Prompt
}

func (m *MockLLM) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, p)
	m.mu.Unlock()
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, p)
	}
	if p.Task == llm.TaskReformulate {
		return "standalone: " + p.Question, nil
	}
	return "mocked llm response", nil
}

func (m *MockLLM) PromptsFor(task llm.Task) []llm.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []llm.Prompt
	for _, p := range m.Prompts {
		if p.Task == task {
			out = append(out, p)
		}
	}
	return out
}

// MockLog implements rag.ConversationLog
type MockLog struct {
	OnGetChatHistory func(ctx context.Context, sessionId string) ([]commonModels.ConversationTurn, error)
	OnAppendTurn     func(ctx context.Context, turn commonModels.ConversationTurn) error
	Appended         []commonModels.ConversationTurn
}

func (m *MockLog) GetChatHistory(ctx context.Context, sessionId string) ([]commonModels.ConversationTurn, error) {
	if m.OnGetChatHistory != nil {
		return m.OnGetChatHistory(ctx, sessionId)
	}
	return nil, nil
}

func (m *MockLog) AppendTurn(ctx context.Context, turn commonModels.ConversationTurn) error {
	if m.OnAppendTurn != nil {
		if err := m.OnAppendTurn(ctx, turn); err != nil {
			return err
		}
	}
	m.Appended = append(m.Appended, turn)
	return nil
}

// MockCache implements vectorDB.AnswerCache with exact question matching
type MockCache struct {
	OnLookup func(ctx context.Context, model string, question string) (string, bool, error)
	Saved    []string
	Entries  []CachedAnswer
	Forgot   []string
}

type CachedAnswer struct {
	Model    string
	Question string
	Answer   string
	FileIds  []string
}

func (m *MockCache) Lookup(ctx context.Context, model string, question string) (string, bool, error) {
	if m.OnLookup != nil {
		return m.OnLookup(ctx, model, question)
	}
	for _, e := range m.Entries {
		if e.Model == model && e.Question == question {
			return e.Answer, true, nil
		}
	}
	return "", false, nil
}

func (m *MockCache) Save(ctx context.Context, model string, question string, answer string, fileIds []string) error {
	m.Saved = append(m.Saved, question)
	m.Entries = append(m.Entries, CachedAnswer{Model: model, Question: question, Answer: answer, FileIds: fileIds})
	return nil
}

func (m *MockCache) Forget(ctx context.Context, fileId string) error {
	m.Forgot = append(m.Forgot, fileId)
	kept := m.Entries[:0]
	for _, e := range m.Entries {
		if !slices.Contains(e.FileIds, fileId) {
			kept = append(kept, e)
		}
	}
	m.Entries = kept
	return nil
}
