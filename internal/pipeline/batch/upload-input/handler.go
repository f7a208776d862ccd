// internal/pipeline/batch/upload-input/handler.go
package uploadinput

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	TaskType = "upload-input"
)

// S3Uploader is the slice of the managed uploader this stage needs; it is
// satisfied by *manager.Uploader.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Handler struct {
	config   *Config
	uploader S3Uploader
	logger   logger.Logger
}

func NewHandler(config *Config, uploader S3Uploader, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		uploader: uploader,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	bucket := input.Bucket
	if bucket == "" {
		bucket = h.config.Bucket
	}
	prefix := input.Prefix
	if prefix == "" {
		prefix = h.config.Prefix
	}

	if bucket == "" {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError("bucket is required")
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError(fmt.Sprintf("path %q not accessible: %v", input.Path, err))
	}

	var output *Output
	if info.IsDir() {
		output = h.uploadDirectory(ctx, input.Path, bucket, prefix)
	} else {
		output, err = h.uploadSingleFile(ctx, input.Path, bucket, prefix)
		if err != nil {
			metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeUploadFailed)).Inc()
			return nil, err
		}
	}

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return output, nil
}

func (h *Handler) uploadSingleFile(ctx context.Context, path, bucket, prefix string) (*Output, error) {
	key := joinKey(prefix, filepath.Base(path))

	if err := h.putObject(ctx, path, bucket, key); err != nil {
		metrics.UploadObjects.WithLabelValues("failed").Inc()
		return nil, errors.NewUploadFailedError(bucket, key, err)
	}

	metrics.UploadObjects.WithLabelValues("ok").Inc()
	h.logger.Info("file uploaded", map[string]interface{}{
		"bucket": bucket,
		"key":    key,
	})

	return &Output{
		Uploaded:        true,
		ObjectsUploaded: 1,
		Location:        fmt.Sprintf("s3://%s/%s", bucket, key),
	}, nil
}

// uploadDirectory walks the tree and uploads every regular file. Object
// failures are logged and counted but never abort the walk, and the result
// still reports Uploaded true so callers continue with whatever made it up.
func (h *Handler) uploadDirectory(ctx context.Context, root, bucket, prefix string) *Output {
	output := &Output{Uploaded: true}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			h.logger.WithError(err).Warn("skipping unreadable path", map[string]interface{}{
				"path": path,
			})
			output.ObjectsFailed++
			metrics.UploadObjects.WithLabelValues("failed").Inc()
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		key := joinKey(prefix, filepath.ToSlash(rel))

		if err := h.putObject(ctx, path, bucket, key); err != nil {
			h.logger.WithError(err).Error("object upload failed", map[string]interface{}{
				"bucket": bucket,
				"key":    key,
			})
			output.ObjectsFailed++
			output.FailedKeys = append(output.FailedKeys, key)
			metrics.UploadObjects.WithLabelValues("failed").Inc()
			return nil
		}

		output.ObjectsUploaded++
		metrics.UploadObjects.WithLabelValues("ok").Inc()
		return nil
	})

	h.logger.Info("directory upload finished", map[string]interface{}{
		"root":     root,
		"bucket":   bucket,
		"uploaded": output.ObjectsUploaded,
		"failed":   output.ObjectsFailed,
	})

	return output
}

func (h *Handler) putObject(ctx context.Context, path, bucket, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeForKey(key)),
	})
	return err
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
