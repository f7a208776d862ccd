// internal/pipeline/jobs/stop-job/handler.go
package stopjob

import (
	"context"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"
	"bedrock-batch-pipeline/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
)

const (
	TaskType = "stop-job"
)

// Define interfaces for mocking
type BedrockService interface {
	StopModelInvocationJob(ctx context.Context, params *bedrock.StopModelInvocationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.StopModelInvocationJobOutput, error)
}

type Handler struct {
	config *Config
	client BedrockService
	logger logger.Logger
}

func NewHandler(config *Config, client BedrockService, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute requests a stop. The service transitions the job through Stopping
// asynchronously; callers confirm via check-status.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	if input.JobArn == "" {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError("jobArn is required")
	}

	_, err := h.client.StopModelInvocationJob(ctx, &bedrock.StopModelInvocationJobInput{
		JobIdentifier: aws.String(input.JobArn),
	})
	if err != nil {
		h.logger.WithError(err).Error("job stop failed", map[string]interface{}{
			"jobArn": input.JobArn,
		})
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeJobStopFailed)).Inc()
		return nil, errors.NewJobStopFailedError(input.JobArn, err)
	}

	h.markStopping(input.JobArn)

	h.logger.Info("job stop requested", map[string]interface{}{
		"jobArn": input.JobArn,
	})

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		JobArn:    input.JobArn,
		Stopped:   true,
		StoppedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// markStopping updates an existing registry entry. Registry problems never
// fail a stop the service already accepted.
func (h *Handler) markStopping(jobArn string) {
	if !h.config.RegistryEnabled || h.config.RegistryPath == "" {
		return
	}

	reg, err := registry.LoadRegistry(h.config.RegistryPath)
	if err != nil {
		h.logger.WithError(err).Warn("registry load failed", map[string]interface{}{
			"path": h.config.RegistryPath,
		})
		return
	}

	record, ok := reg.Find(jobArn)
	if !ok {
		return
	}

	record.Status = string(types.ModelInvocationJobStatusStopping)
	reg.Upsert(*record)

	if err := registry.SaveRegistry(h.config.RegistryPath, reg); err != nil {
		h.logger.WithError(err).Warn("registry update failed", map[string]interface{}{
			"path": h.config.RegistryPath,
		})
	}
}
