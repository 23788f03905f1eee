// Package ragErrors holds the failure taxonomy shared by the pipelines.
//
// Every store or backend fault is wrapped with the operation and the id it
// concerned, then returned. Callers branch with errors.As on the concrete
// types below, or errors.Is on the sentinels.
package ragErrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBackendTimeout    = errors.New("backend call timed out")
	ErrEmptyDocument     = errors.New("document produced no text chunks")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnknownModel      = errors.New("unknown model")
)

// ValidationError is bad caller input. Nothing was written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(field, reason string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}

// IndexError is an embedding backend or vector store fault.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

func NewIndexError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *IndexError
	if errors.As(err, &existing) {
		return err
	}
	return &IndexError{Op: op, Err: ClassifyTimeout(err)}
}

// StoreError is a relational store fault on the registry or the conversation log.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Key: key, Err: ClassifyTimeout(err)}
}

// IngestionError means the file is not registered. RollbackErr is set when the
// compensating registry delete failed as well and a stale row may remain.
type IngestionError struct {
	Filename    string
	FileId      int64
	Stage       string
	Err         error
	RollbackErr error
}

func (e *IngestionError) Error() string {
	msg := fmt.Sprintf("ingesting %q failed at %s: %v", e.Filename, e.Stage, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback of file_id %d failed: %v)", e.FileId, e.RollbackErr)
	}
	return msg
}

func (e *IngestionError) Unwrap() []error {
	if e.RollbackErr == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.RollbackErr}
}

// DeletionError reports how far a delete got. Partial is true when the chunks
// are gone from the vector index but the registry row is still present, so
// only the registry step needs a retry.
type DeletionError struct {
	FileId  int64
	Partial bool
	Err     error
}

func (e *DeletionError) Error() string {
	if e.Partial {
		return fmt.Sprintf("file_id %d: vector data removed but registry delete failed: %v", e.FileId, e.Err)
	}
	return fmt.Sprintf("file_id %d: vector index delete failed, registry untouched: %v", e.FileId, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// AnsweringError is a retrieval, generation or logging fault while answering.
type AnsweringError struct {
	SessionId string
	Stage     string
	Err       error
}

func (e *AnsweringError) Error() string {
	return fmt.Sprintf("answering for session %s failed at %s: %v", e.SessionId, e.Stage, e.Err)
}

func (e *AnsweringError) Unwrap() error { return e.Err }

// ClassifyTimeout tags deadline errors with ErrBackendTimeout.
func ClassifyTimeout(err error) error {
	if err == nil || errors.Is(err, ErrBackendTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrBackendTimeout, err)
	}
	return err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrBackendTimeout)
}

// HTTPStatus maps the taxonomy onto a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
