// internal/models/record.go
package models

import "encoding/json"

// BatchRecord is one line of the batch input file. The field names are the
// wire format expected by the model invocation service.
type BatchRecord struct {
	RecordID   string     `json:"recordId"`
	ModelInput ModelInput `json:"modelInput"`
}

// ModelInput is the Anthropic messages payload, snake_case on the wire.
type ModelInput struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	TopK             int       `json:"top_k"`
}

type Message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

// RecordResult is one line of the job output file. Exactly one of
// ModelOutput and Error is set per line.
type RecordResult struct {
	RecordID    string          `json:"recordId"`
	ModelInput  *ModelInput     `json:"modelInput,omitempty"`
	ModelOutput json.RawMessage `json:"modelOutput,omitempty"`
	Error       *RecordError    `json:"error,omitempty"`
}

type RecordError struct {
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
