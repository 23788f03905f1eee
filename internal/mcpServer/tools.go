package mcpServer

import (
	"context"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/api"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SearchInput struct {
	Query string `json:"query" jsonschema:"text to look for in the indexed documents"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 3)"`
}

type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

type SearchResultOutput struct {
	FileId     string  `json:"file_id"`
	Filename   string  `json:"filename"`
	ChunkOrder string  `json:"chunk_order"`
	Score      float32 `json:"score"`
	Content    string  `json:"content"`
}

type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the documents"`
	SessionId string `json:"session_id,omitempty" jsonschema:"continue an earlier conversation"`
	Model     string `json:"model,omitempty" jsonschema:"one of gemini-2.5-flash-lite, gemini-2.5-flash, gpt-4o-mini"`
}

type ListInput struct{}

type ListOutput struct {
	Documents []api.DocumentInfo `json:"documents"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Similarity search over the indexed document chunks",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents, optionally within a conversation",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents in the registry",
	}, s.handleList)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	chunks, err := s.ragService.Search(ctx, input.Query, input.K)
	if err != nil {
		logger.Error("search_documents failed", "error", err)
		return nil, SearchOutput{}, err
	}
	output := SearchOutput{Results: make([]SearchResultOutput, len(chunks)), Count: len(chunks)}
	for i, c := range chunks {
		output.Results[i] = SearchResultOutput{
			FileId:     c.Source.FileId,
			Filename:   c.Source.Filename,
			ChunkOrder: c.Source.ChunkOrder,
			Score:      c.Source.Score,
			Content:    c.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, api.ChatResponse, error) {
	result, err := s.ragService.Answer(ctx, rag.AnswerRequest{
		SessionId: input.SessionId,
		Question:  input.Question,
		Model:     input.Model,
	})
	if err != nil {
		logger.Error("ask failed", "error", err)
		return nil, api.ChatResponse{}, err
	}
	return nil, api.ChatResponse{
		Answer:    result.Answer,
		SessionId: result.SessionId,
		Model:     string(result.Model),
		Sources:   result.Sources,
	}, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ragService.ListDocuments(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, ListOutput{Documents: adapter.ToDocumentList(docs)}, nil
}
