// test/e2e/pipeline_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsclients "bedrock-batch-pipeline/internal/common/aws"
	"bedrock-batch-pipeline/internal/common/config"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/models"
	formatrequests "bedrock-batch-pipeline/internal/pipeline/batch/format-requests"
	uploadinput "bedrock-batch-pipeline/internal/pipeline/batch/upload-input"
	writerecords "bedrock-batch-pipeline/internal/pipeline/batch/write-records"
	generatedataset "bedrock-batch-pipeline/internal/pipeline/dataset/generate-dataset"
	checkstatus "bedrock-batch-pipeline/internal/pipeline/jobs/check-status"
	stopjob "bedrock-batch-pipeline/internal/pipeline/jobs/stop-job"
	submitjob "bedrock-batch-pipeline/internal/pipeline/jobs/submit-job"
	"bedrock-batch-pipeline/pkg/registry"
)

const (
	testJobArn  = "arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/abc123def456"
	testModelID = "anthropic.claude-3-haiku-20240307-v1:0"
)

// ==========================
// Mocks
// ==========================

// mockUploader implements uploadinput.S3Uploader and records every key it
// accepted. Keys ending in failKey are rejected.
type mockUploader struct {
	keys    []string
	failKey string
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	key := aws.ToString(input.Key)
	if m.failKey != "" && strings.HasSuffix(key, m.failKey) {
		return nil, fmt.Errorf("simulated upload failure for %s", key)
	}
	m.keys = append(m.keys, key)
	return &manager.UploadOutput{}, nil
}

// mockBedrock satisfies the bedrock interfaces of submit-job and
// check-status. The reported status is whatever the test sets.
type mockBedrock struct {
	submitted  []bedrock.CreateModelInvocationJobInput
	status     types.ModelInvocationJobStatus
	submitTime time.Time
}

func (m *mockBedrock) CreateModelInvocationJob(ctx context.Context, params *bedrock.CreateModelInvocationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.CreateModelInvocationJobOutput, error) {
	m.submitted = append(m.submitted, *params)
	return &bedrock.CreateModelInvocationJobOutput{JobArn: aws.String(testJobArn)}, nil
}

func (m *mockBedrock) GetModelInvocationJob(ctx context.Context, params *bedrock.GetModelInvocationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.GetModelInvocationJobOutput, error) {
	resp := &bedrock.GetModelInvocationJobOutput{
		JobArn:     params.JobIdentifier,
		JobName:    aws.String("pipeline-e2e"),
		ModelId:    aws.String(testModelID),
		Status:     m.status,
		SubmitTime: aws.Time(m.submitTime),
		OutputDataConfig: &types.ModelInvocationJobOutputDataConfigMemberS3OutputDataConfig{
			Value: types.ModelInvocationJobS3OutputDataConfig{
				S3Uri: aws.String("s3://test-bucket/batch-output/"),
			},
		},
	}
	if len(m.submitted) > 0 {
		last := m.submitted[len(m.submitted)-1]
		resp.JobName = last.JobName
		resp.ModelId = last.ModelId
	}
	return resp, nil
}

func (m *mockBedrock) ListModelInvocationJobs(ctx context.Context, params *bedrock.ListModelInvocationJobsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListModelInvocationJobsOutput, error) {
	return &bedrock.ListModelInvocationJobsOutput{}, nil
}

// ==========================
// 1. Hermetic pipeline test
// ==========================

// TestPipelineEndToEnd drives the full submission path with mocked AWS
// clients: generate, format, write, upload, submit, then status reads until
// the mocked job completes.
func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	t.Log("🚀 Starting full pipeline test with mocked AWS clients...")

	// --- Generate ---
	genHandler := generatedataset.NewHandler(generatedataset.LoadConfig(), log)
	dataset, err := genHandler.Execute(ctx, &generatedataset.Input{
		CustomerCount:       3,
		RecommendationCount: 2,
	})
	require.NoError(t, err)
	require.Len(t, dataset.Customers, 3)
	require.Len(t, dataset.Recommendations, 2)

	// --- Format ---
	fmtHandler := formatrequests.NewHandler(formatrequests.LoadConfig(), log)
	formatted, err := fmtHandler.Execute(ctx, &formatrequests.Input{
		Customers:       dataset.Customers,
		Recommendations: dataset.Recommendations,
	})
	require.NoError(t, err)
	require.Equal(t, 3, formatted.RecordCount)

	// --- Write ---
	outPath := filepath.Join(t.TempDir(), "batch-input.jsonl")
	writeHandler, err := writerecords.NewHandler(writerecords.LoadConfig(), log)
	require.NoError(t, err)
	written, err := writeHandler.Execute(ctx, &writerecords.Input{
		Records: formatted.Records,
		Path:    outPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, written.RecordCount)

	// Line i of the file belongs to customer i, and with 2 recommendations
	// the records cycle through products 0, 1, 0.
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		var record models.BatchRecord
		require.NoError(t, json.Unmarshal([]byte(line), &record), "line %d is not valid JSON", i+1)
		assert.Regexp(t, `^[A-Z0-9]{11}$`, record.RecordID)

		require.Len(t, record.ModelInput.Messages, 1)
		require.Len(t, record.ModelInput.Messages[0].Content, 1)
		text := record.ModelInput.Messages[0].Content[0].Text
		assert.Contains(t, text, dataset.Customers[i].Name)
		assert.Contains(t, text, dataset.Recommendations[i%2].Product)
	}
	t.Log("✅ batch file written and verified")

	// --- Upload, single file ---
	uploader := &mockUploader{}
	uploadHandler := uploadinput.NewHandler(&uploadinput.Config{
		Bucket: "test-bucket",
		Prefix: "batch-input/",
	}, uploader, log)
	uploaded, err := uploadHandler.Execute(ctx, &uploadinput.Input{Path: outPath})
	require.NoError(t, err)
	assert.True(t, uploaded.Uploaded)
	assert.Equal(t, 1, uploaded.ObjectsUploaded)
	assert.Equal(t, "s3://test-bucket/batch-input/batch-input.jsonl", uploaded.Location)
	require.Len(t, uploader.keys, 1)

	// --- Upload, directory with one bad object ---
	dir := t.TempDir()
	for _, name := range []string{"a.jsonl", "b.jsonl", "c.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644))
	}
	flakyUploader := &mockUploader{failKey: "b.jsonl"}
	flakyHandler := uploadinput.NewHandler(&uploadinput.Config{
		Bucket: "test-bucket",
		Prefix: "batch-input/",
	}, flakyUploader, log)
	partial, err := flakyHandler.Execute(ctx, &uploadinput.Input{Path: dir})
	require.NoError(t, err)
	assert.True(t, partial.Uploaded, "object failures must not fail a directory upload")
	assert.Equal(t, 2, partial.ObjectsUploaded)
	assert.Equal(t, 1, partial.ObjectsFailed)
	require.Len(t, partial.FailedKeys, 1)
	assert.True(t, strings.HasSuffix(partial.FailedKeys[0], "b.jsonl"))
	t.Log("✅ uploads verified")

	// --- Submit ---
	regPath := filepath.Join(t.TempDir(), "job-registry.json")
	bedrockMock := &mockBedrock{
		status:     types.ModelInvocationJobStatusInProgress,
		submitTime: time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC),
	}
	submitHandler := submitjob.NewHandler(&submitjob.Config{
		ModelID:         testModelID,
		RoleArn:         "arn:aws:iam::123456789012:role/bedrock-batch",
		JobNamePrefix:   "pipeline-e2e",
		OutputS3URI:     "s3://test-bucket/batch-output/",
		TimeoutHours:    24,
		RegistryPath:    regPath,
		RegistryEnabled: true,
	}, bedrockMock, log)

	submitted, err := submitHandler.Execute(ctx, &submitjob.Input{
		InputS3URI:  uploaded.Location,
		RecordCount: written.RecordCount,
	})
	require.NoError(t, err)
	assert.Equal(t, testJobArn, submitted.JobArn)
	assert.Equal(t, "Submitted", submitted.Status)

	require.Len(t, bedrockMock.submitted, 1)
	inputConfig, ok := bedrockMock.submitted[0].InputDataConfig.(*types.ModelInvocationJobInputDataConfigMemberS3InputDataConfig)
	require.True(t, ok)
	assert.Equal(t, uploaded.Location, aws.ToString(inputConfig.Value.S3Uri))

	reg, err := registry.LoadRegistry(regPath)
	require.NoError(t, err)
	require.Len(t, reg.Jobs, 1)
	assert.Equal(t, testJobArn, reg.Jobs[0].JobArn)
	assert.Equal(t, "Submitted", reg.Jobs[0].Status)
	assert.Equal(t, 3, reg.Jobs[0].RecordCount)
	t.Log("✅ job submitted and recorded")

	// --- Status reads until the mocked job completes ---
	statusHandler := checkstatus.NewHandler(&checkstatus.Config{
		RegistryPath:    regPath,
		RegistryEnabled: true,
		MaxResults:      20,
	}, bedrockMock, log)

	inProgress, err := statusHandler.Execute(ctx, &checkstatus.Input{JobArn: submitted.JobArn})
	require.NoError(t, err)
	assert.Equal(t, "InProgress", inProgress.Job.Status)
	assert.False(t, inProgress.Done)

	bedrockMock.status = types.ModelInvocationJobStatusCompleted
	completed, err := statusHandler.Execute(ctx, &checkstatus.Input{JobArn: submitted.JobArn})
	require.NoError(t, err)
	assert.Equal(t, "Completed", completed.Job.Status)
	assert.True(t, completed.Done)
	assert.Equal(t, "s3://test-bucket/batch-output/", completed.Job.OutputURI)

	reg, err = registry.LoadRegistry(regPath)
	require.NoError(t, err)
	require.Len(t, reg.Jobs, 1)
	assert.Equal(t, "Completed", reg.Jobs[0].Status)
	assert.Equal(t, 3, reg.Jobs[0].RecordCount, "status refresh must not drop submission fields")

	t.Log("✅ ALL TESTS PASSED — pipeline flows end to end")
}

// ==========================
// 2. Real AWS smoke test
// ==========================

// TestPipelineAgainstAWS submits a real batch job and immediately requests a
// stop. It needs credentials plus a configured bucket, model id and role ARN.
func TestPipelineAgainstAWS(t *testing.T) {
	if os.Getenv("E2E_AWS") == "" {
		t.Skip("set E2E_AWS=1 to run the pipeline against real AWS")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.AWS.S3.Bucket, "aws.s3.bucket must be configured")
	require.NotEmpty(t, cfg.Inference.ModelID, "inference.model_id must be configured")
	require.NotEmpty(t, cfg.AWS.Bedrock.RoleArn, "aws.bedrock.role_arn must be configured")

	log := logger.NewTestLogger(t)

	t.Log("🚀 Starting pipeline smoke test against real AWS...")

	// The service enforces a minimum batch size, so generate well above it.
	genHandler := generatedataset.NewHandler(generatedataset.LoadConfig(), log)
	dataset, err := genHandler.Execute(ctx, &generatedataset.Input{
		CustomerCount:       120,
		RecommendationCount: 3,
	})
	require.NoError(t, err)

	fmtHandler := formatrequests.NewHandler(formatrequests.LoadConfig(), log)
	formatted, err := fmtHandler.Execute(ctx, &formatrequests.Input{
		Customers:       dataset.Customers,
		Recommendations: dataset.Recommendations,
	})
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "batch-input.jsonl")
	writeHandler, err := writerecords.NewHandler(writerecords.LoadConfig(), log)
	require.NoError(t, err)
	written, err := writeHandler.Execute(ctx, &writerecords.Input{
		Records: formatted.Records,
		Path:    outPath,
	})
	require.NoError(t, err)

	s3Client, err := awsclients.NewS3Client(ctx, cfg.AWS.Region)
	require.NoError(t, err, "❌ S3 client creation failed")
	uploadHandler := uploadinput.NewHandler(&uploadinput.Config{
		Bucket: cfg.AWS.S3.Bucket,
		Prefix: cfg.AWS.S3.InputPrefix,
	}, s3Client.Uploader, log)
	uploaded, err := uploadHandler.Execute(ctx, &uploadinput.Input{Path: outPath})
	require.NoError(t, err, "❌ upload failed")
	t.Logf("✅ uploaded batch input to %s", uploaded.Location)

	bedrockClient, err := awsclients.NewBedrockClient(ctx, cfg.AWS.Region)
	require.NoError(t, err, "❌ Bedrock client creation failed")

	regPath := filepath.Join(t.TempDir(), "job-registry.json")
	submitHandler := submitjob.NewHandler(&submitjob.Config{
		ModelID:         cfg.Inference.ModelID,
		RoleArn:         cfg.AWS.Bedrock.RoleArn,
		JobNamePrefix:   "e2e",
		OutputS3URI:     cfg.AWS.OutputS3URI(),
		TimeoutHours:    int32(cfg.AWS.Bedrock.TimeoutHours),
		RegistryPath:    regPath,
		RegistryEnabled: true,
	}, bedrockClient.Client, log)

	submitted, err := submitHandler.Execute(ctx, &submitjob.Input{
		InputS3URI:  uploaded.Location,
		RecordCount: written.RecordCount,
	})
	require.NoError(t, err, "❌ submit failed")
	t.Logf("✅ submitted job %s", submitted.JobArn)

	statusHandler := checkstatus.NewHandler(&checkstatus.Config{
		RegistryPath:    regPath,
		RegistryEnabled: true,
		MaxResults:      20,
	}, bedrockClient.Client, log)
	status, err := statusHandler.Execute(ctx, &checkstatus.Input{JobArn: submitted.JobArn})
	require.NoError(t, err, "❌ status read failed")
	t.Logf("job status: %s", status.Job.Status)

	// Stop the job; test runs must not leave batches running.
	stopHandler := stopjob.NewHandler(&stopjob.Config{
		RegistryPath:    regPath,
		RegistryEnabled: true,
	}, bedrockClient.Client, log)
	if _, err := stopHandler.Execute(ctx, &stopjob.Input{JobArn: submitted.JobArn}); err != nil {
		t.Logf("stop request failed, the job may already be terminal: %v", err)
	} else {
		t.Logf("✅ stop requested for %s", submitted.JobArn)
	}
}
