// internal/pipeline/batch/write-records/models.go
package writerecords

import "bedrock-batch-pipeline/internal/models"

type Input struct {
	Records []models.BatchRecord `json:"records"`
	Path    string               `json:"path"` // empty means config default
}

type Output struct {
	Path         string `json:"path"`
	RecordCount  int    `json:"recordCount"`
	BytesWritten int64  `json:"bytesWritten"`
}
