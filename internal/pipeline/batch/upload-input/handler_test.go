// internal/pipeline/batch/upload-input/handler_test.go
package uploadinput

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"bedrock-batch-pipeline/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockS3Uploader struct {
	mu         sync.Mutex
	UploadFunc func(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
	calls      []string
}

func (m *MockS3Uploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	m.mu.Lock()
	m.calls = append(m.calls, *input.Key)
	m.mu.Unlock()
	return m.UploadFunc(ctx, input, opts...)
}

func (m *MockS3Uploader) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := append([]string(nil), m.calls...)
	sort.Strings(keys)
	return keys
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Bucket: "test-bucket",
		Prefix: "batch-input/",
	}
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func acceptAll() *MockS3Uploader {
	return &MockS3Uploader{
		UploadFunc: func(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
			return &manager.UploadOutput{}, nil
		},
	}
}

// ==========================
// Single File Tests
// ==========================

func TestHandler_Execute_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "batch-input.jsonl", `{"recordId":"A"}`+"\n")

	var gotBucket, gotKey, gotContentType, gotBody string
	mock := &MockS3Uploader{
		UploadFunc: func(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
			gotBucket = *input.Bucket
			gotKey = *input.Key
			gotContentType = *input.ContentType
			body, err := io.ReadAll(input.Body)
			require.NoError(t, err)
			gotBody = string(body)
			return &manager.UploadOutput{}, nil
		},
	}

	handler := NewHandler(createTestConfig(), mock, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{Path: path})

	require.NoError(t, err)
	assert.True(t, output.Uploaded)
	assert.Equal(t, 1, output.ObjectsUploaded)
	assert.Equal(t, 0, output.ObjectsFailed)
	assert.Equal(t, "test-bucket", gotBucket)
	assert.Equal(t, "batch-input/batch-input.jsonl", gotKey)
	assert.Equal(t, "application/x-ndjson", gotContentType)
	assert.Equal(t, `{"recordId":"A"}`+"\n", gotBody)
	assert.Equal(t, "s3://test-bucket/batch-input/batch-input.jsonl", output.Location)
}

func TestHandler_Execute_SingleFileFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "batch-input.jsonl", "{}")

	mock := &MockS3Uploader{
		UploadFunc: func(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
			return nil, fmt.Errorf("access denied")
		},
	}

	handler := NewHandler(createTestConfig(), mock, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{Path: path})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Contains(t, err.Error(), "UPLOAD_FAILED")
}

// ==========================
// Directory Tests
// ==========================

func TestHandler_Execute_DirectoryTree(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "batch-input.jsonl", "{}")
	writeTempFile(t, dir, filepath.Join("nested", "extra.json"), "{}")
	writeTempFile(t, dir, "notes.txt", "hello")

	mock := acceptAll()
	handler := NewHandler(createTestConfig(), mock, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Path: dir, Prefix: "runs/42/"})

	require.NoError(t, err)
	assert.True(t, output.Uploaded)
	assert.Equal(t, 3, output.ObjectsUploaded)
	assert.Equal(t, 0, output.ObjectsFailed)
	assert.Equal(t, []string{
		"runs/42/batch-input.jsonl",
		"runs/42/nested/extra.json",
		"runs/42/notes.txt",
	}, mock.Keys())
}

func TestHandler_Execute_DirectoryContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.jsonl", "{}")
	writeTempFile(t, dir, "b.jsonl", "{}")
	writeTempFile(t, dir, "c.jsonl", "{}")

	mock := &MockS3Uploader{}
	mock.UploadFunc = func(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
		if filepath.Base(*input.Key) == "b.jsonl" {
			return nil, fmt.Errorf("simulated throttle")
		}
		return &manager.UploadOutput{}, nil
	}

	handler := NewHandler(createTestConfig(), mock, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{Path: dir})

	// A failed object never fails the directory upload.
	require.NoError(t, err)
	assert.True(t, output.Uploaded)
	assert.Equal(t, 2, output.ObjectsUploaded)
	assert.Equal(t, 1, output.ObjectsFailed)
	assert.Equal(t, []string{"batch-input/b.jsonl"}, output.FailedKeys)
	assert.Len(t, mock.Keys(), 3, "every object should be attempted")
}

func TestHandler_Execute_EmptyDirectory(t *testing.T) {
	handler := NewHandler(createTestConfig(), acceptAll(), logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Path: t.TempDir()})

	require.NoError(t, err)
	assert.True(t, output.Uploaded)
	assert.Equal(t, 0, output.ObjectsUploaded)
	assert.Equal(t, 0, output.ObjectsFailed)
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_MissingPath(t *testing.T) {
	handler := NewHandler(createTestConfig(), acceptAll(), logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Path: "/does/not/exist"})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestHandler_Execute_MissingBucket(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.jsonl", "{}")

	handler := NewHandler(&Config{}, acceptAll(), logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{Path: path})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "name.jsonl", joinKey("", "name.jsonl"))
	assert.Equal(t, "prefix/name.jsonl", joinKey("prefix", "name.jsonl"))
	assert.Equal(t, "prefix/name.jsonl", joinKey("prefix/", "name.jsonl"))
	assert.Equal(t, "a/b/name.jsonl", joinKey("/a/b/", "name.jsonl"))
}
