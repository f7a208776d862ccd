// internal/pipeline/jobs/check-status/models.go
package checkstatus

import "bedrock-batch-pipeline/internal/models"

type Input struct {
	JobArn string `json:"jobArn"`
}

type Output struct {
	Job  models.JobInfo `json:"job"`
	Done bool           `json:"done"` // status is terminal
}

type ListInput struct {
	StatusFilter string `json:"statusFilter,omitempty"`
	NameContains string `json:"nameContains,omitempty"`
	MaxResults   int32  `json:"maxResults,omitempty"` // 0 means config default
}

type ListOutput struct {
	Jobs []models.JobInfo `json:"jobs"`
}
