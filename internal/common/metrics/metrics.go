// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_completed_total",
			Help: "Total number of successful stage executions",
		},
		[]string{"stage"},
	)

	StageFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failed_total",
			Help: "Total number of failed stage executions",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of stage execution in seconds",
		},
		[]string{"stage"},
	)

	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_records_processed_total",
			Help: "Number of batch records flowing through each stage",
		},
		[]string{"stage"},
	)

	UploadObjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_upload_objects_total",
			Help: "Objects uploaded to storage, by outcome",
		},
		[]string{"status"},
	)

	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_submitted_total",
			Help: "Invocation jobs submitted, by model",
		},
		[]string{"model_id"},
	)
)
