// internal/common/errors/handler.go
package errors

import (
	"errors"
	"time"
)

// ErrorHandler normalizes stage failures into StandardError and logs them
// with a consistent shape before the caller decides what to do.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleStageError normalizes and logs any error raised by a pipeline stage.
// It returns the normalized error so callers can inspect code and
// retryability.
func (h *ErrorHandler) HandleStageError(stage string, err error) *StandardError {
	stdErr := h.normalizeError(err)
	h.logError(stage, stdErr)
	return stdErr
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(stage string, stdErr *StandardError) {
	fields := map[string]interface{}{
		"stage":         stage,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}
	h.logger.Error("Stage failed", fields)
}
