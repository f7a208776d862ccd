// internal/pipeline/jobs/notify-status/handler.go
package notifystatus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"
	"bedrock-batch-pipeline/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-status"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// Execute notifies the configured channels about a finished job. Jobs still
// running are skipped, never queued.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	if !models.IsTerminalJobStatus(input.Job.Status) {
		h.logger.Info("job not terminal, skipping notification", map[string]interface{}{
			"jobArn": input.Job.JobArn,
			"status": input.Job.Status,
		})
		return &Output{NotificationID: notificationID, Status: StatusSkipped, SentAt: sentAt}, nil
	}

	toEmails := input.ToEmails
	if len(toEmails) == 0 {
		toEmails = h.config.ToEmails
	}

	emailEnabled := h.config.EmailEnabled && len(toEmails) > 0
	smsEnabled := h.config.SMSEnabled && h.config.TopicArn != ""

	if !emailEnabled && !smsEnabled {
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	subject := buildSubject(input.Job)
	body := buildBody(input.Job)

	var delivered []string
	var failed []string
	var lastErr error

	if emailEnabled {
		if err := h.sendEmail(ctx, toEmails, subject, body); err != nil {
			h.logger.WithError(err).Error("email send failed", map[string]interface{}{
				"jobArn": input.Job.JobArn,
			})
			failed = append(failed, "email")
			lastErr = err
		} else {
			delivered = append(delivered, "email")
		}
	}

	if smsEnabled {
		if err := h.publishTopic(ctx, subject, body); err != nil {
			h.logger.WithError(err).Error("SNS publish failed", map[string]interface{}{
				"jobArn":   input.Job.JobArn,
				"topicArn": h.config.TopicArn,
			})
			failed = append(failed, "sms")
			lastErr = err
		} else {
			delivered = append(delivered, "sms")
		}
	}

	if len(delivered) == 0 {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeNotificationSendFailed)).Inc()
		return nil, errors.NewNotificationSendFailedError(strings.Join(failed, ","), lastErr)
	}

	h.logger.Info("notification sent", map[string]interface{}{
		"jobArn":   input.Job.JobArn,
		"status":   input.Job.Status,
		"channels": strings.Join(delivered, ","),
	})

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		NotificationID: notificationID,
		Status:         StatusSent,
		Channels:       delivered,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) sendEmail(ctx context.Context, to []string, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) publishTopic(ctx context.Context, subject, body string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	return err
}

func buildSubject(job models.JobInfo) string {
	return fmt.Sprintf("Batch inference job %s: %s", job.Status, job.JobName)
}

func buildBody(job models.JobInfo) string {
	lines := []string{
		fmt.Sprintf("Job:       %s", job.JobName),
		fmt.Sprintf("ARN:       %s", job.JobArn),
		fmt.Sprintf("Model:     %s", job.ModelID),
		fmt.Sprintf("Status:    %s", job.Status),
	}
	if job.Message != "" {
		lines = append(lines, fmt.Sprintf("Message:   %s", job.Message))
	}
	if job.OutputURI != "" {
		lines = append(lines, fmt.Sprintf("Output:    %s", job.OutputURI))
	}
	if job.SubmittedAt != "" {
		lines = append(lines, fmt.Sprintf("Submitted: %s", job.SubmittedAt))
	}
	if job.EndedAt != "" {
		lines = append(lines, fmt.Sprintf("Ended:     %s", job.EndedAt))
	}
	return strings.Join(lines, "\n")
}
