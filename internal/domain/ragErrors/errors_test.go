package ragErrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("file", "bad ext", ErrUnsupportedFormat), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("handler: %w", NewValidationError("model", "unknown", ErrUnknownModel)), http.StatusBadRequest},
		{"index timeout", NewIndexError("add", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"store", NewStoreError("insert", "doc.pdf", errors.New("disk full")), http.StatusInternalServerError},
		{"deletion", &DeletionError{FileId: 1, Err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewIndexError_KeepsExisting(t *testing.T) {
	inner := NewIndexError("search", errors.New("conn refused"))
	outer := NewIndexError("add", inner)

	var ie *IndexError
	if !errors.As(outer, &ie) || ie.Op != "search" {
		t.Fatalf("expected the original IndexError to be preserved, got %v", outer)
	}
	if NewIndexError("noop", nil) != nil {
		t.Error("nil cause should produce nil error")
	}
}

func TestIngestionError_UnwrapsBothCauses(t *testing.T) {
	cause := NewIndexError("add", errors.New("embedding failed"))
	rollback := NewStoreError("delete", "7", errors.New("locked"))
	err := &IngestionError{Filename: "a.pdf", FileId: 7, Stage: "index", Err: cause, RollbackErr: rollback}

	var ie *IndexError
	if !errors.As(err, &ie) {
		t.Error("expected IndexError in chain")
	}
	var se *StoreError
	if !errors.As(err, &se) {
		t.Error("expected StoreError in chain")
	}
}

func TestClassifyTimeout(t *testing.T) {
	err := ClassifyTimeout(fmt.Errorf("genai: %w", context.DeadlineExceeded))
	if !IsTimeout(err) {
		t.Fatal("deadline exceeded should be classified as timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("original cause must stay in the chain")
	}
	if IsTimeout(ClassifyTimeout(errors.New("other"))) {
		t.Error("plain error must not be a timeout")
	}
}
