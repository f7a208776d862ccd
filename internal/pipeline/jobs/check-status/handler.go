// internal/pipeline/jobs/check-status/handler.go
package checkstatus

import (
	"context"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"
	"bedrock-batch-pipeline/internal/models"
	"bedrock-batch-pipeline/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
)

const (
	TaskType = "check-status"
)

// Define interfaces for mocking
type BedrockService interface {
	GetModelInvocationJob(ctx context.Context, params *bedrock.GetModelInvocationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.GetModelInvocationJobOutput, error)
	ListModelInvocationJobs(ctx context.Context, params *bedrock.ListModelInvocationJobsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListModelInvocationJobsOutput, error)
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

// Execute reads the job state once. It never polls; callers decide when to
// check again.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	if input.JobArn == "" {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError("jobArn is required")
	}

	resp, err := h.client.GetModelInvocationJob(ctx, &bedrock.GetModelInvocationJobInput{
		JobIdentifier: aws.String(input.JobArn),
	})
	if err != nil {
		h.logger.WithError(err).Error("status read failed", map[string]interface{}{
			"jobArn": input.JobArn,
		})
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeJobStatusFailed)).Inc()
		return nil, errors.NewJobStatusFailedError(input.JobArn, err)
	}

	job := models.JobInfo{
		JobArn:      aws.ToString(resp.JobArn),
		JobName:     aws.ToString(resp.JobName),
		ModelID:     aws.ToString(resp.ModelId),
		Status:      string(resp.Status),
		Message:     aws.ToString(resp.Message),
		InputURI:    s3URIFromInputConfig(resp.InputDataConfig),
		OutputURI:   s3URIFromOutputConfig(resp.OutputDataConfig),
		SubmittedAt: formatTime(resp.SubmitTime),
		EndedAt:     formatTime(resp.EndTime),
	}

	h.updateRegistry(job)

	h.logger.Info("job status", map[string]interface{}{
		"jobArn": job.JobArn,
		"status": job.Status,
	})

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		Job:  job,
		Done: models.IsTerminalJobStatus(job.Status),
	}, nil
}

// ExecuteList returns recent jobs, newest first.
func (h *Handler) ExecuteList(ctx context.Context, input *ListInput) (*ListOutput, error) {
	startTime := time.Now()

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = h.config.MaxResults
	}

	params := &bedrock.ListModelInvocationJobsInput{
		MaxResults: aws.Int32(maxResults),
		SortBy:     types.SortJobsByCreationTime,
		SortOrder:  types.SortOrderDescending,
	}
	if input.StatusFilter != "" {
		params.StatusEquals = types.ModelInvocationJobStatus(input.StatusFilter)
	}
	if input.NameContains != "" {
		params.NameContains = aws.String(input.NameContains)
	}

	resp, err := h.client.ListModelInvocationJobs(ctx, params)
	if err != nil {
		h.logger.WithError(err).Error("job listing failed", map[string]interface{}{
			"statusFilter": input.StatusFilter,
		})
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeJobStatusFailed)).Inc()
		return nil, errors.NewJobStatusFailedError("", err)
	}

	jobs := make([]models.JobInfo, 0, len(resp.InvocationJobSummaries))
	for _, summary := range resp.InvocationJobSummaries {
		jobs = append(jobs, models.JobInfo{
			JobArn:      aws.ToString(summary.JobArn),
			JobName:     aws.ToString(summary.JobName),
			ModelID:     aws.ToString(summary.ModelId),
			Status:      string(summary.Status),
			Message:     aws.ToString(summary.Message),
			InputURI:    s3URIFromInputConfig(summary.InputDataConfig),
			OutputURI:   s3URIFromOutputConfig(summary.OutputDataConfig),
			SubmittedAt: formatTime(summary.SubmitTime),
			EndedAt:     formatTime(summary.EndTime),
		})
	}

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &ListOutput{Jobs: jobs}, nil
}

// updateRegistry refreshes an existing registry entry with the latest state.
// Jobs submitted elsewhere are not added, and registry problems never fail a
// status read.
func (h *Handler) updateRegistry(job models.JobInfo) {
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

	record, ok := reg.Find(job.JobArn)
	if !ok {
		return
	}

	record.Status = job.Status
	record.Message = job.Message
	reg.Upsert(*record)

	if err := registry.SaveRegistry(h.config.RegistryPath, reg); err != nil {
		h.logger.WithError(err).Warn("registry update failed", map[string]interface{}{
			"path": h.config.RegistryPath,
		})
	}
}

func s3URIFromInputConfig(cfg types.ModelInvocationJobInputDataConfig) string {
	if member, ok := cfg.(*types.ModelInvocationJobInputDataConfigMemberS3InputDataConfig); ok {
		return aws.ToString(member.Value.S3Uri)
	}
	return ""
}

func s3URIFromOutputConfig(cfg types.ModelInvocationJobOutputDataConfig) string {
	if member, ok := cfg.(*types.ModelInvocationJobOutputDataConfigMemberS3OutputDataConfig); ok {
		return aws.ToString(member.Value.S3Uri)
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
