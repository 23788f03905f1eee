package deletion

import (
	"context"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

const (
	OutcomeOK           = "ok"
	OutcomeVectorFailed = "vector_failed"
	OutcomeCacheFailed  = "cache_failed"
	OutcomePartial      = "partial"
)

// DocumentRegistry is the part of the registry deletion needs.
type DocumentRegistry interface {
	DeleteDocument(ctx context.Context, fileId int64) (bool, error)
}

// AnswerCache is the part of the semantic answer cache deletion needs.
type AnswerCache interface {
	Forget(ctx context.Context, fileId string) error
}

// Coordinator removes a document from the vector index and then from the registry.
// The index goes first: a row without chunks is harmless to answering, chunks
// without a row would keep answering from a document nobody can see. Cached
// answers quoting the document count as part of the index.
type Coordinator struct {
	registry DocumentRegistry
	index    vectorDB.Index
	cache    AnswerCache
	logger   *logger_i.Logger
}

type Option func(*Coordinator)

// WithAnswerCache drops cached answers grounded on a deleted document. A nil cache is ignored.
func WithAnswerCache(cache AnswerCache) Option {
	return func(c *Coordinator) { c.cache = cache }
}

func NewCoordinator(registry DocumentRegistry, index vectorDB.Index, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: registry,
		index:    index,
		logger:   logger_i.NewLogger("Document Deletion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Delete removes every chunk tagged with fileId, then its registry row.
// Unknown ids succeed, so repeating a delete is safe and is how a partial
// delete gets finished.
func (c *Coordinator) Delete(ctx context.Context, fileId int64) error {
	log := c.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("fileId", fileId)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_deletion", time.Since(start)) }()

	fileIdString := commonModels.FormatFileId(fileId)
	filter := vectorDB.Filter{commonModels.MetaFileId: fileIdString}
	if err := c.index.DeleteByMetadata(ctx, filter); err != nil {
		log.Error("vector delete failed, registry left untouched", "error", err)
		metrics.CaptureDeletion(OutcomeVectorFailed)
		return &ragErrors.DeletionError{FileId: fileId, Err: err}
	}
	log.Debug("vector chunks removed")

	if c.cache != nil {
		if err := c.cache.Forget(ctx, fileIdString); err != nil {
			log.Error("cached answers still quote the document, registry left untouched", "error", err)
			metrics.CaptureDeletion(OutcomeCacheFailed)
			return &ragErrors.DeletionError{FileId: fileId, Err: err}
		}
		log.Debug("cached answers dropped")
	}

	deleted, err := c.registry.DeleteDocument(ctx, fileId)
	if err != nil {
		log.Error("registry delete failed after vector delete", "error", err)
		metrics.CaptureDeletion(OutcomePartial)
		return &ragErrors.DeletionError{FileId: fileId, Partial: true, Err: err}
	}

	metrics.CaptureDeletion(OutcomeOK)
	log.Info("document deleted", "registryRow", deleted)
	return nil
}
