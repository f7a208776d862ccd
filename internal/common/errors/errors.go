// Package errors provides standardized error handling for the batch
// inference pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeDatasetGenerationFailed ErrorCode = "DATASET_GENERATION_FAILED"

	ErrCodeRecordFormatFailed     ErrorCode = "RECORD_FORMAT_FAILED"
	ErrCodeRecordValidationFailed ErrorCode = "RECORD_VALIDATION_FAILED"
	ErrCodeRecordWriteFailed      ErrorCode = "RECORD_WRITE_FAILED"

	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"

	ErrCodeJobSubmitFailed ErrorCode = "JOB_SUBMIT_FAILED"
	ErrCodeJobStatusFailed ErrorCode = "JOB_STATUS_FAILED"
	ErrCodeJobStopFailed   ErrorCode = "JOB_STOP_FAILED"

	ErrCodeResultsFetchFailed ErrorCode = "RESULTS_FETCH_FAILED"
	ErrCodeResultsParseFailed ErrorCode = "RESULTS_PARSE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeRegistryAccessFailed ErrorCode = "REGISTRY_ACCESS_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid stage input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatasetGenerationFailedError creates a non-retryable generator error.
func NewDatasetGenerationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatasetGenerationFailed,
		Message:   "Synthetic dataset generation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordFormatFailedError creates a non-retryable formatting error.
func NewRecordFormatFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordFormatFailed,
		Message:   "Batch record formatting failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordValidationFailedError creates a non-retryable schema error for a
// single record, identified by its position and recordId.
func NewRecordValidationFailedError(index int, recordID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordValidationFailed,
		Message:   "Batch record failed schema validation",
		Details:   details,
		Retryable: false,
		Metadata: map[string]interface{}{
			"recordIndex": index,
			"recordId":    recordID,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordWriteFailedError creates a non-retryable file write error.
func NewRecordWriteFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordWriteFailed,
		Message:   fmt.Sprintf("Failed to write batch records to '%s'", path),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadFailedError creates a retryable object storage error.
func NewUploadFailedError(bucket, key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   fmt.Sprintf("Failed to upload 's3://%s/%s'", bucket, key),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobSubmitFailedError creates a retryable job submission error.
func NewJobSubmitFailedError(jobName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobSubmitFailed,
		Message:   fmt.Sprintf("Failed to submit invocation job '%s'", jobName),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobStatusFailedError creates a retryable status lookup error.
func NewJobStatusFailedError(jobArn string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobStatusFailed,
		Message:   "Failed to read invocation job status",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"jobArn": jobArn},
		Timestamp: time.Now().UTC(),
	}
}

// NewJobStopFailedError creates a retryable stop request error.
func NewJobStopFailedError(jobArn string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobStopFailed,
		Message:   "Failed to stop invocation job",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"jobArn": jobArn},
		Timestamp: time.Now().UTC(),
	}
}

// NewResultsFetchFailedError creates a retryable results download error.
func NewResultsFetchFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultsFetchFailed,
		Message:   "Failed to fetch invocation job output",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultsParseFailedError creates a non-retryable output parsing error,
// identified by the object key and line number.
func NewResultsParseFailedError(key string, line int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultsParseFailed,
		Message:   "Failed to parse invocation job output line",
		Details:   err.Error(),
		Retryable: false,
		Metadata: map[string]interface{}{
			"key":  key,
			"line": line,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   fmt.Sprintf("Failed to send notification via %s", channel),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryAccessFailedError creates a non-retryable registry file error.
func NewRegistryAccessFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryAccessFailed,
		Message:   fmt.Sprintf("Failed to access job registry '%s'", path),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUploadFailed,
		ErrCodeJobSubmitFailed,
		ErrCodeJobStatusFailed,
		ErrCodeJobStopFailed,
		ErrCodeResultsFetchFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	default:
		return 0 // Validation and local I/O errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATASET"):
		return "DATASET"
	case strings.Contains(codeStr, "RECORD"):
		return "RECORDS"
	case strings.Contains(codeStr, "UPLOAD") || strings.Contains(codeStr, "RESULTS"):
		return "STORAGE"
	case strings.Contains(codeStr, "JOB"):
		return "JOBS"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "REGISTRY"):
		return "REGISTRY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "INTERNAL"
	}
}
