// internal/pipeline/jobs/fetch-results/models.go
package fetchresults

import "bedrock-batch-pipeline/internal/models"

type Input struct {
	JobArn    string `json:"jobArn"`
	Bucket    string `json:"bucket,omitempty"`    // empty means config default
	Prefix    string `json:"prefix,omitempty"`    // empty means config default
	OutputDir string `json:"outputDir,omitempty"` // empty means no local copy
}

type Output struct {
	Results     []models.RecordResult `json:"results"`
	ResultCount int                   `json:"resultCount"`
	ErrorCount  int                   `json:"errorCount"` // results whose error field is set
	SavedTo     string                `json:"savedTo,omitempty"`
}
