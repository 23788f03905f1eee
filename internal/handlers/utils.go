package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func traceId(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func WriteErrorResponse(w http.ResponseWriter, r *http.Request, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(message, httpCode, traceId(r.Context())))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := adapter.ToErrorResponse(err, traceId(r.Context()))
	writeJsonResponse(w, res.Code, res)
}

func validateContext(r *http.Request) bool {
	if err := r.Context().Err(); err != nil {
		logRH.WithTrace(r.Context(), config.TRACE_ID_KEY).Warn("context error", "error", err, "remote", r.RemoteAddr)
		return false
	}
	return true
}

// submit runs j on the worker pool. When it returns an error the response
// has already been written.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, j jobModel.Job) (jobModel.Job, error) {
	done, err := h.jobs.Submit(r.Context(), j)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			WriteErrorResponse(w, r, http.StatusGatewayTimeout, "Request timed out")
		}
		// a cancelled request has nobody left to answer
		return done, err
	}
	if done.Err != nil {
		writeError(w, r, done.Err)
		return done, done.Err
	}
	return done, nil
}

func (h *Handler) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0750); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	dst, err := os.CreateTemp(h.uploadDir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("closing upload: %w", err)
	}
	return dst.Name(), nil
}
