package api

import "github.com/akolanti/DocChat/internal/domain/commonModels"

// responses---------------------

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"unsupported file type"`
	TraceId string `json:"trace_id,omitempty" example:"7d3c1a52-..."`
}

type ChatResponse struct {
	Answer    string                   `json:"answer" example:"The report was published in 2021."`
	SessionId string                   `json:"session_id" example:"5f0e2c7a-91d4-4f4b-a6f3-0c0d2b1e9a11"`
	Model     string                   `json:"model" example:"gemini-2.5-flash-lite"`
	Sources   []commonModels.SourceRef `json:"sources,omitempty"`
}

type UploadResponse struct {
	Message string `json:"message" example:"File report.pdf has been successfully uploaded and indexed."`
	FileId  int64  `json:"file_id" example:"1"`
}

type DocumentInfo struct {
	FileId          string `json:"file_id" example:"1"`
	Filename        string `json:"filename" example:"report.pdf"`
	UploadTimestamp string `json:"upload_timestamp" example:"2024-03-01T09:00:00Z"`
}

type DeleteResponse struct {
	Message string `json:"message" example:"Document with file_id 1 has been successfully deleted."`
}

type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message" example:"RAG API is running"`
}

// requests---------------------

type ChatRequest struct {
	Question  string `json:"question" validate:"required" example:"What does the report conclude?"`
	SessionId string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty" enums:"gemini-2.5-flash-lite,gemini-2.5-flash,gpt-4o-mini"`
}
