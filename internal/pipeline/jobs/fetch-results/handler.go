// internal/pipeline/jobs/fetch-results/handler.go
package fetchresults

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"
	"bedrock-batch-pipeline/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	TaskType = "fetch-results"

	resultObjectSuffix = ".jsonl.out"

	// Model outputs can run long; a single result line stays well under this.
	maxResultLineBytes = 10 * 1024 * 1024
)

// Define interfaces for mocking
type S3Service interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Handler struct {
	config *Config
	client S3Service
	logger logger.Logger
}

func NewHandler(config *Config, client S3Service, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	if input.JobArn == "" {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError("jobArn is required")
	}

	bucket := input.Bucket
	if bucket == "" {
		bucket = h.config.Bucket
	}
	if bucket == "" {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError("bucket is required")
	}

	prefix := input.Prefix
	if prefix == "" {
		prefix = h.config.Prefix
	}

	jobID := jobIDFromArn(input.JobArn)
	resultsPrefix := resultsPrefix(prefix, jobID)

	keys, err := h.listResultKeys(ctx, bucket, resultsPrefix)
	if err != nil {
		h.logger.WithError(err).Error("result listing failed", map[string]interface{}{
			"bucket": bucket,
			"prefix": resultsPrefix,
		})
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeResultsFetchFailed)).Inc()
		return nil, errors.NewResultsFetchFailedError(err.Error())
	}
	if len(keys) == 0 {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeResultsFetchFailed)).Inc()
		return nil, errors.NewResultsFetchFailedError(
			fmt.Sprintf("no output found under s3://%s/%s", bucket, resultsPrefix))
	}

	var results []models.RecordResult
	errorCount := 0
	savedTo := ""

	for _, key := range keys {
		data, err := h.fetchObject(ctx, bucket, key)
		if err != nil {
			h.logger.WithError(err).Error("result fetch failed", map[string]interface{}{
				"bucket": bucket,
				"key":    key,
			})
			metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeResultsFetchFailed)).Inc()
			return nil, errors.NewResultsFetchFailedError(
				fmt.Sprintf("get s3://%s/%s: %v", bucket, key, err))
		}

		if input.OutputDir != "" {
			if err := saveLocal(input.OutputDir, key, data); err != nil {
				h.logger.WithError(err).Error("local save failed", map[string]interface{}{
					"outputDir": input.OutputDir,
					"key":       key,
				})
				metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeResultsFetchFailed)).Inc()
				return nil, errors.NewResultsFetchFailedError(
					fmt.Sprintf("save %s: %v", key, err))
			}
			savedTo = input.OutputDir
		}

		parsed, parseErr := parseResults(key, data)
		if parseErr != nil {
			metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeResultsParseFailed)).Inc()
			return nil, parseErr
		}
		for _, result := range parsed {
			if result.Error != nil {
				errorCount++
			}
		}
		results = append(results, parsed...)
	}

	h.logger.Info("results fetched", map[string]interface{}{
		"jobArn":      input.JobArn,
		"objects":     len(keys),
		"resultCount": len(results),
		"errorCount":  errorCount,
	})

	metrics.RecordsProcessed.WithLabelValues(TaskType).Add(float64(len(results)))
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		Results:     results,
		ResultCount: len(results),
		ErrorCount:  errorCount,
		SavedTo:     savedTo,
	}, nil
}

// listResultKeys walks the listing pages and keeps the .jsonl.out objects,
// sorted for a deterministic result order.
func (h *Handler) listResultKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	var continuation *string

	for {
		resp, err := h.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range resp.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, resultObjectSuffix) {
				keys = append(keys, key)
			}
		}
		if !resp.IsTruncated || resp.NextContinuationToken == nil {
			break
		}
		continuation = resp.NextContinuationToken
	}

	sort.Strings(keys)
	return keys, nil
}

func (h *Handler) fetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func parseResults(key string, data []byte) ([]models.RecordResult, error) {
	var results []models.RecordResult

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxResultLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var result models.RecordResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			return nil, errors.NewResultsParseFailedError(key, lineNum, err)
		}
		results = append(results, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewResultsParseFailedError(key, lineNum, err)
	}

	return results, nil
}

func saveLocal(outputDir, key string, data []byte) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, path.Base(key)), data, 0o644)
}

// jobIDFromArn extracts the trailing segment, e.g.
// arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/abc123 -> abc123.
func jobIDFromArn(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

func resultsPrefix(prefix, jobID string) string {
	trimmed := strings.TrimSuffix(prefix, "/")
	if trimmed == "" {
		return jobID + "/"
	}
	return trimmed + "/" + jobID + "/"
}
