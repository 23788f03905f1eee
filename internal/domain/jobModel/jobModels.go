package jobModel

import (
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit    InternalStatus = "Init"
	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	DeleteInit       InternalStatus = "DeleteInit"
	DeleteProcessing InternalStatus = "DeleteProcessing"
	RAGCall          InternalStatus = "RAG"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
	JobTypeDelete JobType = "Delete"
)

// Job is one unit of work for the worker pool. The worker sends the finished
// job back on Done, which must have room for one value.
type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`

	Err  error    `json:"-"`
	Done chan Job `json:"-"`
}

type JobPayload struct {
	SessionId string `json:"session_id,omitempty"`
	Question  string `json:"question,omitempty"`
	Model     string `json:"model,omitempty"`

	Answer  string                   `json:"answer,omitempty"`
	Sources []commonModels.SourceRef `json:"sources,omitempty"`
	Cached  bool                     `json:"cached,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestPath     string `json:"ingest_path,omitempty"`

	FileId int64 `json:"file_id,omitempty"`
}
