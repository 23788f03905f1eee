package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/api"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/jobModel"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/job"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/ingest"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

// Handler turns HTTP requests into jobs for the worker pool. Listing goes to
// the registry directly since it never writes.
type Handler struct {
	jobs          *job.Service
	ragService    rag.Service
	uploadDir     string
	maxUploadSize int64
}

func NewHandler(jobs *job.Service, ragService rag.Service, uploadDir string) *Handler {
	return &Handler{
		jobs:          jobs,
		ragService:    ragService,
		uploadDir:     uploadDir,
		maxUploadSize: config.MaxUploadSize,
	}
}

// GetHealth godoc
// @Summary      Liveness check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "healthy", Message: "RAG API is running"})
}

// Chat godoc
// @Summary      Ask a question
// @Description  Answers a question from the indexed documents, using the session history when a session id is given.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest    true  "Question, optional session id and model"
// @Success      200      {object}  api.ChatResponse
// @Failure      400      {object}  api.ErrorResponse  "Empty question or unknown model"
// @Failure      500      {object}  api.ErrorResponse  "Retrieval or generation failed"
// @Router       /chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the chat request body", "error", err)
		}
	}(r.Body)

	var requestData api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logRH.WithTrace(r.Context(), config.TRACE_ID_KEY).Warn("Bad chat request", "error", err)
		WriteErrorResponse(w, r, http.StatusBadRequest, "Request body must be JSON with a question")
		return
	}
	logRH.WithTrace(r.Context(), config.TRACE_ID_KEY).Debug("Chat request", "sessionId", requestData.SessionId, "model", requestData.Model)

	newJob := job.NewJob(r.Context(), jobModel.JobTypeQuery, jobModel.JobPayload{
		SessionId: requestData.SessionId,
		Question:  requestData.Question,
		Model:     requestData.Model,
	})
	done, err := h.submit(w, r, newJob)
	if err != nil {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(done))
}

// UploadDocs godoc
// @Summary      Upload a document
// @Description  Registers and indexes a .pdf, .docx or .html file. The upload is removed from disk afterwards.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "The document"
// @Success      200  {object}  api.UploadResponse
// @Failure      400  {object}  api.ErrorResponse  "Unsupported file type or bad form"
// @Failure      500  {object}  api.ErrorResponse  "Indexing failed, nothing was registered"
// @Router       /upload-docs [post]
func (h *Handler) UploadDocs(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	log := logRH.WithTrace(r.Context(), config.TRACE_ID_KEY)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "File too large or bad request")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	filename := filepath.Base(fileMetadata.Filename)
	if ingest.GetDocType(filename) == commonModels.Unsupported {
		err := ragErrors.NewValidationError("file", "unsupported file type, allowed types are "+strings.Join(ingest.SupportedExtensions(), ", "), ragErrors.ErrUnsupportedFormat)
		writeError(w, r, err)
		return
	}

	tempFilePath, err := h.saveUpload(fileReader, filename)
	if err != nil {
		log.Error("could not store upload", "error", err)
		WriteErrorResponse(w, r, http.StatusInternalServerError, "Storage error")
		return
	}

	// once queued, the worker removes the file
	newJob := job.NewJob(r.Context(), jobModel.JobTypeIngest, jobModel.JobPayload{
		IngestFileName: filename,
		IngestPath:     tempFilePath,
	})
	done, err := h.submit(w, r, newJob)
	if errors.Is(err, job.ErrNotQueued) {
		if err := os.Remove(tempFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("could not remove temporary upload", "path", tempFilePath, "error", err)
		}
	}
	if err != nil {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToUploadResponse(done))
}

// ListDocs godoc
// @Summary      List indexed documents
// @Tags         Documents
// @Produce      json
// @Success      200  {array}   api.DocumentInfo
// @Failure      500  {object}  api.ErrorResponse  "Registry unavailable"
// @Router       /list-docs [get]
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	docs, err := h.ragService.ListDocuments(r.Context())
	if err != nil {
		logRH.WithTrace(r.Context(), config.TRACE_ID_KEY).Error("listing documents failed", "error", err)
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}

// DeleteDoc godoc
// @Summary      Delete a document
// @Description  Removes the document chunks from the vector index, then the registry row.
// @Tags         Documents
// @Produce      json
// @Param        file_id  path      int  true  "File id"
// @Success      200      {object}  api.DeleteResponse
// @Failure      400      {object}  api.ErrorResponse  "File id is not an integer"
// @Failure      500      {object}  api.ErrorResponse  "Full or partial delete failure"
// @Router       /delete-docs/{file_id} [delete]
func (h *Handler) DeleteDoc(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	fileId, err := commonModels.ParseFileId(utils.GetChiURLParam(r, "file_id"))
	if err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "file_id must be an integer")
		return
	}

	newJob := job.NewJob(r.Context(), jobModel.JobTypeDelete, jobModel.JobPayload{FileId: fileId})
	if _, err := h.submit(w, r, newJob); err != nil {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDeleteResponse(fileId))
}
