package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var ingestionRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingestion_rollbacks_total",
	Help: "Registry rows removed after a failed ingestion, labelled by failed stage and rollback outcome",
}, []string{"stage", "outcome"})

var deletionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "document_deletions_total",
	Help: "Document deletions labelled by outcome (ok, vector_failed, partial)",
}, []string{"outcome"})

var answeredTurns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "answered_turns_total",
	Help: "Answered questions labelled by model and whether the semantic cache served them",
}, []string{"model", "cached"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (the MCP endpoint) working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureIngestionRollback(stage string, rollbackFailed bool) {
	outcome := "ok"
	if rollbackFailed {
		outcome = "failed"
	}
	ingestionRollbacks.WithLabelValues(stage, outcome).Inc()
}

func CaptureDeletion(outcome string) {
	deletionOutcomes.WithLabelValues(outcome).Inc()
}

func CaptureAnsweredTurn(model string, cached bool) {
	label := "false"
	if cached {
		label = "true"
	}
	answeredTurns.WithLabelValues(model, label).Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent running one job, by job type and status.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"type", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(jobType string, status string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(jobType, status).Observe(timeElapsed.Seconds())
}
