// internal/pipeline/batch/format-requests/handler.go
package formatrequests

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"
	"bedrock-batch-pipeline/internal/models"
)

const (
	TaskType = "format-requests"

	recordIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	recordIDLength   = 11
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	if len(input.Customers) > 0 && len(input.Recommendations) == 0 {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError("recommendations must not be empty when customers are present")
	}

	params := h.resolveParams(input)

	records := make([]models.BatchRecord, 0, len(input.Customers))
	for i, customer := range input.Customers {
		// Recommendations are assigned cyclically so every customer gets one
		// even when there are fewer recommendations than customers.
		rec := input.Recommendations[i%len(input.Recommendations)]

		records = append(records, models.BatchRecord{
			RecordID: newRecordID(),
			ModelInput: models.ModelInput{
				AnthropicVersion: h.config.AnthropicVersion,
				MaxTokens:        params.MaxTokens,
				Messages: []models.Message{
					{
						Role: "user",
						Content: []models.ContentBlock{
							{Type: "text", Text: buildPrompt(customer, rec)},
						},
					},
				},
				Temperature: params.Temperature,
				TopP:        params.TopP,
				TopK:        params.TopK,
			},
		})
	}

	h.logger.Info("batch records formatted", map[string]interface{}{
		"records":         len(records),
		"recommendations": len(input.Recommendations),
		"maxTokens":       params.MaxTokens,
	})

	metrics.RecordsProcessed.WithLabelValues(TaskType).Add(float64(len(records)))
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		Records:     records,
		RecordCount: len(records),
	}, nil
}

type generationParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
}

func (h *Handler) resolveParams(input *Input) generationParams {
	params := generationParams{
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
		TopP:        h.config.TopP,
		TopK:        h.config.TopK,
	}
	if input.MaxTokens > 0 {
		params.MaxTokens = input.MaxTokens
	}
	if input.Temperature > 0 {
		params.Temperature = input.Temperature
	}
	if input.TopP > 0 {
		params.TopP = input.TopP
	}
	if input.TopK > 0 {
		params.TopK = input.TopK
	}
	return params
}

// newRecordID returns a random 11-character uppercase alphanumeric id. Ids
// only need to be unique within one batch file.
func newRecordID() string {
	var b strings.Builder
	b.Grow(recordIDLength)
	for i := 0; i < recordIDLength; i++ {
		b.WriteByte(recordIDAlphabet[rand.IntN(len(recordIDAlphabet))])
	}
	return b.String()
}

func buildPrompt(customer models.Customer, rec models.ProductRecommendation) string {
	var parts []string
	parts = append(parts, "You are a marketing copywriter for an online retailer.")
	parts = append(parts, fmt.Sprintf("Write a short, friendly product recommendation email for %s.", customer.Name))
	parts = append(parts, fmt.Sprintf("Recommended product: %s.", rec.Product))
	parts = append(parts, fmt.Sprintf("Product description: %s", rec.Description))
	parts = append(parts, "Keep it under 150 words, mention the customer by name once, and end with a call to action.")
	return strings.Join(parts, "\n")
}
