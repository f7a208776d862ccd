// internal/pipeline/jobs/submit-job/handler.go
package submitjob

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
	"github.com/google/uuid"
)

const (
	TaskType = "submit-job"

	jobNameTimestampLayout = "20060102-150405"
)

// Define interfaces for mocking
type BedrockService interface {
	CreateModelInvocationJob(ctx context.Context, params *bedrock.CreateModelInvocationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.CreateModelInvocationJobOutput, error)
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	params := h.resolveParams(input)
	if err := validateParams(params); err != nil {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, err
	}

	h.logger.Info("submitting model invocation job", map[string]interface{}{
		"jobName":  params.jobName,
		"modelId":  params.modelID,
		"inputUri": params.inputURI,
	})

	resp, err := h.client.CreateModelInvocationJob(ctx, &bedrock.CreateModelInvocationJobInput{
		ClientRequestToken: aws.String(uuid.New().String()),
		JobName:            aws.String(params.jobName),
		ModelId:            aws.String(params.modelID),
		RoleArn:            aws.String(params.roleArn),
		InputDataConfig: &types.ModelInvocationJobInputDataConfigMemberS3InputDataConfig{
			Value: types.ModelInvocationJobS3InputDataConfig{
				S3Uri:         aws.String(params.inputURI),
				S3InputFormat: types.S3InputFormatJsonl,
			},
		},
		OutputDataConfig: &types.ModelInvocationJobOutputDataConfigMemberS3OutputDataConfig{
			Value: types.ModelInvocationJobS3OutputDataConfig{
				S3Uri: aws.String(params.outputURI),
			},
		},
		TimeoutDurationInHours: aws.Int32(params.timeoutHours),
	})
	if err != nil {
		h.logger.WithError(err).Error("job submission failed", map[string]interface{}{
			"jobName": params.jobName,
		})
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeJobSubmitFailed)).Inc()
		return nil, errors.NewJobSubmitFailedError(params.jobName, err)
	}

	jobArn := aws.ToString(resp.JobArn)
	submittedAt := time.Now().UTC().Format(time.RFC3339)

	h.recordSubmission(params, jobArn, submittedAt, input.RecordCount)

	h.logger.Info("job submitted", map[string]interface{}{
		"jobArn":  jobArn,
		"jobName": params.jobName,
	})

	metrics.JobsSubmitted.WithLabelValues(params.modelID).Inc()
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		JobArn:      jobArn,
		JobName:     params.jobName,
		Status:      string(types.ModelInvocationJobStatusSubmitted),
		SubmittedAt: submittedAt,
	}, nil
}

type jobParams struct {
	jobName      string
	modelID      string
	roleArn      string
	inputURI     string
	outputURI    string
	timeoutHours int32
}

func (h *Handler) resolveParams(input *Input) *jobParams {
	p := &jobParams{
		jobName:      input.JobName,
		modelID:      input.ModelID,
		roleArn:      input.RoleArn,
		inputURI:     input.InputS3URI,
		outputURI:    input.OutputS3URI,
		timeoutHours: input.TimeoutHours,
	}
	if p.jobName == "" {
		p.jobName = h.config.JobNamePrefix + "-" + time.Now().UTC().Format(jobNameTimestampLayout)
	}
	if p.modelID == "" {
		p.modelID = h.config.ModelID
	}
	if p.roleArn == "" {
		p.roleArn = h.config.RoleArn
	}
	if p.inputURI == "" {
		p.inputURI = h.config.InputS3URI
	}
	if p.outputURI == "" {
		p.outputURI = h.config.OutputS3URI
	}
	if p.timeoutHours <= 0 {
		p.timeoutHours = h.config.TimeoutHours
	}
	return p
}

func validateParams(p *jobParams) error {
	switch {
	case p.modelID == "":
		return errors.NewInvalidInputError("modelId is required")
	case p.roleArn == "":
		return errors.NewInvalidInputError("roleArn is required")
	case p.inputURI == "":
		return errors.NewInvalidInputError("inputS3Uri is required")
	case p.outputURI == "":
		return errors.NewInvalidInputError("outputS3Uri is required")
	}
	return nil
}

// recordSubmission upserts the job into the local registry. Registry problems
// never fail a submission the service already accepted.
func (h *Handler) recordSubmission(p *jobParams, jobArn, submittedAt string, recordCount int) {
	if !h.config.RegistryEnabled || h.config.RegistryPath == "" {
		return
	}
	err := registry.UpdateJob(h.config.RegistryPath, registry.JobRecord{
		JobArn:      jobArn,
		JobName:     p.jobName,
		ModelID:     p.modelID,
		Status:      string(types.ModelInvocationJobStatusSubmitted),
		InputURI:    p.inputURI,
		OutputURI:   p.outputURI,
		RoleArn:     p.roleArn,
		RecordCount: recordCount,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		h.logger.WithError(err).Warn("registry update failed", map[string]interface{}{
			"path": h.config.RegistryPath,
		})
	}
}
