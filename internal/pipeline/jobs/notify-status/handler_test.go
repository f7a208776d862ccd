// internal/pipeline/jobs/notify-status/handler_test.go
package notifystatus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         int
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls++
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       int
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls++
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		FromEmail:    "batch@example.com",
		ToEmails:     []string{"ops@example.com"},
		SMSEnabled:   true,
		TopicArn:     "arn:aws:sns:us-east-1:123456789012:batch-alerts",
		AWSRegion:    "us-east-1",
	}
}

func createTestJob(status string) models.JobInfo {
	return models.JobInfo{
		JobArn:      "arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/abc123def456",
		JobName:     "batch-inference-20260101-000000",
		ModelID:     "anthropic.claude-3-haiku-20240307-v1:0",
		Status:      status,
		OutputURI:   "s3://test-bucket/batch-output/",
		SubmittedAt: "2026-01-01T00:00:00Z",
		EndedAt:     "2026-01-01T02:00:00Z",
	}
}

func acceptingSES() *MockSESService {
	return &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}
}

func acceptingSNS() *MockSNSService {
	return &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}
}

func createHandler(t *testing.T, config *Config, sesClient SESService, snsClient SNSService) *Handler {
	t.Helper()
	return &Handler{
		config:    config,
		logger:    logger.NewTestLogger(t),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_SendsBothChannels(t *testing.T) {
	var gotEmail *ses.SendEmailInput
	var gotPublish *sns.PublishInput

	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			gotEmail = params
			return &ses.SendEmailOutput{}, nil
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			gotPublish = params
			return &sns.PublishOutput{}, nil
		},
	}

	handler := createHandler(t, createTestConfig(), mockSES, mockSNS)
	output, err := handler.Execute(context.Background(), &Input{Job: createTestJob("Completed")})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"email", "sms"}, output.Channels)

	_, err = uuid.Parse(output.NotificationID)
	assert.NoError(t, err)
	_, err = time.Parse(time.RFC3339, output.SentAt)
	assert.NoError(t, err)

	require.NotNil(t, gotEmail)
	assert.Equal(t, []string{"ops@example.com"}, gotEmail.Destination.ToAddresses)
	assert.Equal(t, "batch@example.com", aws.ToString(gotEmail.Source))
	subject := aws.ToString(gotEmail.Message.Subject.Data)
	assert.Contains(t, subject, "Completed")
	assert.Contains(t, subject, "batch-inference-20260101-000000")
	body := aws.ToString(gotEmail.Message.Body.Text.Data)
	assert.Contains(t, body, "arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/abc123def456")
	assert.Contains(t, body, "s3://test-bucket/batch-output/")

	require.NotNil(t, gotPublish)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:batch-alerts", aws.ToString(gotPublish.TopicArn))
	assert.Contains(t, aws.ToString(gotPublish.Message), "Status:    Completed")
}

func TestHandler_Execute_SkipsNonTerminal(t *testing.T) {
	tests := []string{"Submitted", "Validating", "Scheduled", "InProgress", "Stopping"}

	for _, status := range tests {
		t.Run(status, func(t *testing.T) {
			mockSES := acceptingSES()
			mockSNS := acceptingSNS()

			handler := createHandler(t, createTestConfig(), mockSES, mockSNS)
			output, err := handler.Execute(context.Background(), &Input{Job: createTestJob(status)})

			require.NoError(t, err)
			assert.Equal(t, StatusSkipped, output.Status)
			assert.Zero(t, mockSES.calls)
			assert.Zero(t, mockSNS.calls)
		})
	}
}

func TestHandler_Execute_AllChannelsDisabled(t *testing.T) {
	config := createTestConfig()
	config.EmailEnabled = false
	config.SMSEnabled = false

	mockSES := acceptingSES()
	mockSNS := acceptingSNS()

	handler := createHandler(t, config, mockSES, mockSNS)
	output, err := handler.Execute(context.Background(), &Input{Job: createTestJob("Failed")})

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, output.Channels)
	assert.Zero(t, mockSES.calls)
	assert.Zero(t, mockSNS.calls)
}

func TestHandler_Execute_PartialFailureStillSends(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, fmt.Errorf("MessageRejected")
		},
	}
	mockSNS := acceptingSNS()

	handler := createHandler(t, createTestConfig(), mockSES, mockSNS)
	output, err := handler.Execute(context.Background(), &Input{Job: createTestJob("Completed")})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"sms"}, output.Channels)
}

func TestHandler_Execute_AllChannelsFail(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, fmt.Errorf("MessageRejected")
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, fmt.Errorf("AuthorizationError")
		},
	}

	handler := createHandler(t, createTestConfig(), mockSES, mockSNS)
	output, err := handler.Execute(context.Background(), &Input{Job: createTestJob("Completed")})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorContains(t, err, "NOTIFICATION_SEND_FAILED")
}

func TestHandler_Execute_RecipientOverride(t *testing.T) {
	var gotTo []string
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			gotTo = params.Destination.ToAddresses
			return &ses.SendEmailOutput{}, nil
		},
	}

	config := createTestConfig()
	config.SMSEnabled = false

	handler := createHandler(t, config, mockSES, acceptingSNS())
	output, err := handler.Execute(context.Background(), &Input{
		Job:      createTestJob("PartiallyCompleted"),
		ToEmails: []string{"oncall@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"oncall@example.com"}, gotTo)
}

func TestHandler_Execute_EmailWithoutRecipientsIsDisabled(t *testing.T) {
	config := createTestConfig()
	config.ToEmails = nil
	config.SMSEnabled = false

	mockSES := acceptingSES()

	handler := createHandler(t, config, mockSES, acceptingSNS())
	output, err := handler.Execute(context.Background(), &Input{Job: createTestJob("Completed")})

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.Zero(t, mockSES.calls)
}
