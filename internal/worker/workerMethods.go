package worker

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	jobmodel "github.com/akolanti/DocChat/internal/domain/jobModel"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var errUnknownJobType = errors.New("unknown job type")

func (p *Pool) executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType), string(job.Status), time.Since(start))
	}()

	// jobs outlive the request that queued them, so only the trace id carries over
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, p.jobTimeout)
	defer cancel()

	log := p.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")
	job.Status = jobmodel.JobStatusRunning

	switch job.JobType {
	case jobmodel.JobTypeQuery:
		job = processQuery(ctx, job, p.ragService, log)
	case jobmodel.JobTypeIngest:
		job = ingestDocument(ctx, job, p.ragService, log)
	case jobmodel.JobTypeDelete:
		job = deleteDocument(ctx, job, p.ragService, log)
	default:
		job.Err = errUnknownJobType
	}

	job.EndTime = time.Now()
	if job.Err != nil {
		job.Status = jobmodel.JobStatusError
		job.CurrentStep = jobmodel.Error
	} else {
		job.Status = jobmodel.JobStatusComplete
		job.CurrentStep = jobmodel.Complete
	}

	if job.Done != nil {
		select {
		case job.Done <- job:
		default:
			log.Warn("nobody is waiting for the job result")
		}
	}
}

// removeWorker expects the worker count to be already decremented.
func (p *Pool) removeWorker(reason string) {
	p.workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
}

func processQuery(ctx context.Context, job jobmodel.Job, s rag.Service, log *logger_i.Logger) jobmodel.Job {
	job.CurrentStep = jobmodel.RAGCall
	result, err := s.Answer(ctx, rag.AnswerRequest{
		SessionId: job.JobPayload.SessionId,
		Question:  job.JobPayload.Question,
		Model:     job.JobPayload.Model,
	})
	job.JobPayload.SessionId = result.SessionId
	job.JobPayload.Model = string(result.Model)
	if err != nil {
		log.Error("query job failed", "error", err)
		job.Err = err
		return job
	}
	job.JobPayload.Answer = result.Answer
	job.JobPayload.Sources = result.Sources
	job.JobPayload.Cached = result.Cached
	return job
}

// ingestDocument owns the uploaded file once the job is queued and removes it
// whatever the outcome.
func ingestDocument(ctx context.Context, job jobmodel.Job, s rag.Service, log *logger_i.Logger) jobmodel.Job {
	defer removeUpload(job.JobPayload.IngestPath, log)
	job.CurrentStep = jobmodel.IngestProcessing
	fileId, err := s.IngestDocument(ctx, job.JobPayload.IngestPath, job.JobPayload.IngestFileName)
	if err != nil {
		log.Error("ingest job failed", "error", err)
		job.Err = err
		return job
	}
	job.JobPayload.FileId = fileId
	return job
}

func deleteDocument(ctx context.Context, job jobmodel.Job, s rag.Service, log *logger_i.Logger) jobmodel.Job {
	job.CurrentStep = jobmodel.DeleteProcessing
	if err := s.DeleteDocument(ctx, job.JobPayload.FileId); err != nil {
		log.Error("delete job failed", "error", err)
		job.Err = err
	}
	return job
}

func removeUpload(path string, log *logger_i.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not remove uploaded file", "path", path, "error", err)
	}
}
