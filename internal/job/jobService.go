package job

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/jobModel"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var logger = logger_i.NewLogger("JobService")

// ErrNotQueued means the caller's context ended before any worker could see
// the job, so the caller still owns everything the job refers to.
var ErrNotQueued = errors.New("job was not queued")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
	}
}

// NewJob builds a queued job carrying the trace id found in ctx.
func NewJob(ctx context.Context, jobType jobModel.JobType, payload jobModel.JobPayload) jobModel.Job {
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	step := jobModel.UserQueryInit
	switch jobType {
	case jobModel.JobTypeIngest:
		step = jobModel.IngestInit
	case jobModel.JobTypeDelete:
		step = jobModel.DeleteInit
	}
	return jobModel.Job{
		Id:          utils.GetNewUUID(),
		TraceId:     traceId,
		JobType:     jobType,
		JobPayload:  payload,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: step,
		Done:        make(chan jobModel.Job, 1),
	}
}

// Submit queues j and waits for a worker to finish it. If ctx ends first the
// job may still run to completion in the background, unless the error wraps
// ErrNotQueued.
func (s *Service) Submit(ctx context.Context, j jobModel.Job) (jobModel.Job, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("jobId", j.Id, "jobType", j.JobType)
	if j.Done == nil {
		j.Done = make(chan jobModel.Job, 1)
	}

	metrics.IncrementJobsInQueue()
	select {
	case s.JobChannel <- j: //blocking send so a full queue pushes back on callers
	case <-ctx.Done():
		metrics.DecrementJobsInQueue()
		log.Warn("request ended before the job was queued", "error", ctx.Err())
		return j, fmt.Errorf("%w: %w", ErrNotQueued, ctx.Err())
	}
	log.Debug("Created new job")

	//a new worker every RequestsPerNewWorkerCount requests, and one per ingestion
	//since embedding a whole document holds a worker for a while
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount()
		select {
		case s.DispatcherChannel <- true:
		default:
			// a scale-up signal is already pending
		}
	}

	select {
	case done := <-j.Done:
		return done, nil
	case <-ctx.Done():
		log.Warn("request ended before the job finished", "error", ctx.Err())
		return j, ctx.Err()
	}
}
