package mcpServer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRagService struct {
	chunks  []rag.RetrievedChunk
	docs    []commonModels.Document
	err     error
	lastK   int
	lastReq rag.AnswerRequest
}

func (m *mockRagService) Answer(ctx context.Context, req rag.AnswerRequest) (rag.AnswerResult, error) {
	m.lastReq = req
	if m.err != nil {
		return rag.AnswerResult{}, m.err
	}
	return rag.AnswerResult{Answer: "42", SessionId: "s-9", Model: llm.GeminiFlash}, nil
}

func (m *mockRagService) Search(ctx context.Context, query string, k int) ([]rag.RetrievedChunk, error) {
	m.lastK = k
	return m.chunks, m.err
}

func (m *mockRagService) IngestDocument(ctx context.Context, path string, name string) (int64, error) {
	return 0, nil
}

func (m *mockRagService) DeleteDocument(ctx context.Context, fileId int64) error { return nil }

func (m *mockRagService) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return m.docs, m.err
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns chunks with their source", func(t *testing.T) {
		svc := &mockRagService{chunks: []rag.RetrievedChunk{{
			Text:   "Alpha Beta",
			Source: commonModels.SourceRef{FileId: "1", Filename: "doc.pdf", ChunkOrder: "0", Score: 0.8},
		}}}
		_, out, err := NewServer(svc).handleSearch(ctx, nil, SearchInput{Query: "Alpha", K: 2})

		require.NoError(t, err)
		assert.Equal(t, 2, svc.lastK)
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, "doc.pdf", out.Results[0].Filename)
		assert.Equal(t, "Alpha Beta", out.Results[0].Content)
	})

	t.Run("passes errors through", func(t *testing.T) {
		svc := &mockRagService{err: errors.New("index down")}
		_, _, err := NewServer(svc).handleSearch(ctx, nil, SearchInput{Query: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index down")
	})
}

func TestServer_handleAsk(t *testing.T) {
	svc := &mockRagService{}
	_, out, err := NewServer(svc).handleAsk(context.Background(), nil, AskInput{Question: "why?", SessionId: "s-9"})

	require.NoError(t, err)
	assert.Equal(t, "42", out.Answer)
	assert.Equal(t, "s-9", out.SessionId)
	assert.Equal(t, string(llm.GeminiFlash), out.Model)
	assert.Equal(t, "why?", svc.lastReq.Question)
}

func TestServer_handleList(t *testing.T) {
	svc := &mockRagService{docs: []commonModels.Document{{FileId: 3, Filename: "a.html", UploadTimestamp: time.Unix(0, 0)}}}
	_, out, err := NewServer(svc).handleList(context.Background(), nil, ListInput{})

	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "3", out.Documents[0].FileId)
}
