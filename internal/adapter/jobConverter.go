package adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/api"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/jobModel"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
)

func ToChatResponse(job jobModel.Job) api.ChatResponse {
	return api.ChatResponse{
		Answer:    job.JobPayload.Answer,
		SessionId: job.JobPayload.SessionId,
		Model:     job.JobPayload.Model,
		Sources:   job.JobPayload.Sources,
	}
}

func ToUploadResponse(job jobModel.Job) api.UploadResponse {
	return api.UploadResponse{
		Message: fmt.Sprintf("File %s has been successfully uploaded and indexed.", job.JobPayload.IngestFileName),
		FileId:  job.JobPayload.FileId,
	}
}

func ToDeleteResponse(fileId int64) api.DeleteResponse {
	return api.DeleteResponse{
		Message: fmt.Sprintf("Document with file_id %d has been successfully deleted.", fileId),
	}
}

// ToDocumentList never returns nil so an empty registry encodes as [].
func ToDocumentList(docs []commonModels.Document) []api.DocumentInfo {
	out := make([]api.DocumentInfo, 0, len(docs))
	for _, d := range docs {
		out = append(out, api.DocumentInfo{
			FileId:          d.FileIdString(),
			Filename:        d.Filename,
			UploadTimestamp: d.UploadTimestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// ToErrorResponse maps a pipeline error onto a status code and a message that
// is safe to show. Backend details stay in the logs.
func ToErrorResponse(err error, traceId string) api.ErrorResponse {
	code := ragErrors.HTTPStatus(err)
	res := api.ErrorResponse{Code: code, TraceId: traceId}

	var (
		validationErr *ragErrors.ValidationError
		ingestionErr  *ragErrors.IngestionError
		deletionErr   *ragErrors.DeletionError
		answeringErr  *ragErrors.AnsweringError
	)
	switch {
	case errors.As(err, &validationErr):
		res.Message = validationErr.Error()
	// deletion outcomes come before the timeout case, a partial delete must stay recognisable
	case errors.As(err, &deletionErr) && deletionErr.Partial:
		res.Message = fmt.Sprintf("Deleted from the vector index but failed to remove file_id %d from the registry", deletionErr.FileId) + timeoutHint(err)
	case errors.As(err, &deletionErr):
		res.Message = fmt.Sprintf("Failed to delete document with file_id %d from the vector index", deletionErr.FileId) + timeoutHint(err)
	case ragErrors.IsTimeout(err):
		res.Message = "A backend did not respond in time, please retry"
	case errors.As(err, &ingestionErr):
		res.Message = fmt.Sprintf("Failed to upload and index %s", ingestionErr.Filename)
	case errors.As(err, &answeringErr):
		res.Message = fmt.Sprintf("Failed to answer the question at the %s step", answeringErr.Stage)
	default:
		res.Message = "Internal Server Error"
	}
	return res
}

func timeoutHint(err error) string {
	if ragErrors.IsTimeout(err) {
		return " (the backend did not respond in time, please retry)"
	}
	return ""
}

func BadRequest(message string, code int, traceId string) api.ErrorResponse {
	return api.ErrorResponse{Code: code, Message: message, TraceId: traceId}
}
