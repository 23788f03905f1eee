package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// DocumentRegistry is the part of the registry ingestion writes to.
type DocumentRegistry interface {
	InsertDocument(ctx context.Context, filename string) (commonModels.Document, error)
	DeleteDocument(ctx context.Context, fileId int64) (bool, error)
}

const (
	StageRegister = "register"
	StageLoad     = "load"
	StageChunk    = "chunk"
	StageIndex    = "index"
)

const defaultRollbackTimeout = 10 * time.Second

type Pipeline struct {
	registry        DocumentRegistry
	index           vectorDB.Index
	chunking        config.ChunkingConfig
	loaders         map[commonModels.DocType]Loader
	rollbackTimeout time.Duration
	logger          *logger_i.Logger
}

type Option func(*Pipeline)

// WithLoader replaces the loader used for one document type.
func WithLoader(docType commonModels.DocType, loader Loader) Option {
	return func(p *Pipeline) {
		p.loaders[docType] = loader
	}
}

func WithRollbackTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.rollbackTimeout = d
	}
}

func NewPipeline(registry DocumentRegistry, index vectorDB.Index, chunking config.ChunkingConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:        registry,
		index:           index,
		chunking:        chunking,
		loaders:         defaultLoaders(),
		rollbackTimeout: defaultRollbackTimeout,
		logger:          logger_i.NewLogger("Document Ingestion"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest registers filename, indexes the file at filePath under the new
// file_id and returns that id. On any failure after registration the row is
// deleted again, so a document is either fully searchable or not listed.
func (p *Pipeline) Ingest(ctx context.Context, filePath string, filename string) (int64, error) {
	log := p.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("filename", filename)

	if strings.TrimSpace(filename) == "" {
		return 0, ragErrors.NewValidationError("file", "missing file name", nil)
	}
	docType := GetDocType(filename)
	loader, ok := p.loaders[docType]
	if docType == commonModels.Unsupported || !ok {
		log.Debug("rejecting upload", "type", docType)
		return 0, ragErrors.NewValidationError("file",
			"unsupported file type, allowed types are "+strings.Join(SupportedExtensions(), ", "),
			ragErrors.ErrUnsupportedFormat)
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	doc, err := p.registry.InsertDocument(ctx, filename)
	if err != nil {
		log.Error("registering document failed", "error", err)
		return 0, &ragErrors.IngestionError{Filename: filename, Stage: StageRegister, Err: err}
	}
	log = log.With("fileId", doc.FileId)
	log.Debug("Processing document", "type", docType, "path", filePath)

	pages, err := loader(ctx, filePath, log)
	if err != nil {
		return 0, p.fail(ctx, log, doc, StageLoad, err)
	}
	log.Debug("Processing document", "Number of raw pages", len(pages))

	chunks := PrepareChunks(pages, doc, docType, p.chunking.ChunkSize, p.chunking.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, p.fail(ctx, log, doc, StageChunk, ragErrors.ErrEmptyDocument)
	}
	log.Debug("Processing document", "Number of chunks", len(chunks))

	if err := p.index.Add(ctx, toEntries(chunks)); err != nil {
		return 0, p.fail(ctx, log, doc, StageIndex, err)
	}

	log.Info("document ingested", "chunks", len(chunks))
	return doc.FileId, nil
}

// fail removes the registry row written for doc and builds the IngestionError.
// The rollback runs even if ctx is already cancelled.
func (p *Pipeline) fail(ctx context.Context, log *logger_i.Logger, doc commonModels.Document, stage string, cause error) error {
	log.Error("ingestion failed, rolling back registry row", "stage", stage, "error", cause)

	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.rollbackTimeout)
	defer cancel()

	ingestErr := &ragErrors.IngestionError{Filename: doc.Filename, FileId: doc.FileId, Stage: stage, Err: cause}
	if stage == StageIndex {
		// earlier batches may have been written before the failing one
		filter := vectorDB.Filter{commonModels.MetaFileId: doc.FileIdString()}
		if err := p.index.DeleteByMetadata(rollbackCtx, filter); err != nil {
			log.Warn("could not remove partially indexed chunks", "error", err)
		}
	}
	if _, err := p.registry.DeleteDocument(rollbackCtx, doc.FileId); err != nil {
		log.Error("rollback failed, registry row is stale", "error", err)
		ingestErr.RollbackErr = err
	}
	metrics.CaptureIngestionRollback(stage, ingestErr.RollbackErr != nil)
	return ingestErr
}
