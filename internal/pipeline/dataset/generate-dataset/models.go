// internal/pipeline/dataset/generate-dataset/models.go
package generatedataset

import "bedrock-batch-pipeline/internal/models"

type Input struct {
	CustomerCount       int `json:"customerCount"`       // 0 means config default
	RecommendationCount int `json:"recommendationCount"` // 0 means config default
}

type Output struct {
	Customers           []models.Customer              `json:"customers"`
	Recommendations     []models.ProductRecommendation `json:"recommendations"`
	CustomerCount       int                            `json:"customerCount"`
	RecommendationCount int                            `json:"recommendationCount"`
}
