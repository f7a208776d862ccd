// internal/pipeline/batch/format-requests/models.go
package formatrequests

import "bedrock-batch-pipeline/internal/models"

type Input struct {
	Customers       []models.Customer              `json:"customers"`
	Recommendations []models.ProductRecommendation `json:"recommendations"`

	// Optional overrides; zero values fall back to config.
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
	TopK        int     `json:"topK,omitempty"`
}

type Output struct {
	Records     []models.BatchRecord `json:"records"`
	RecordCount int                  `json:"recordCount"`
}
