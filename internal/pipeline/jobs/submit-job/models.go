// internal/pipeline/jobs/submit-job/models.go
package submitjob

type Input struct {
	JobName      string `json:"jobName,omitempty"` // empty means prefix + UTC timestamp
	ModelID      string `json:"modelId,omitempty"` // empty means config default
	RoleArn      string `json:"roleArn,omitempty"`
	InputS3URI   string `json:"inputS3Uri,omitempty"`
	OutputS3URI  string `json:"outputS3Uri,omitempty"`
	TimeoutHours int32  `json:"timeoutHours,omitempty"`
	RecordCount  int    `json:"recordCount,omitempty"` // carried into the registry entry
}

type Output struct {
	JobArn      string `json:"jobArn"`
	JobName     string `json:"jobName"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submittedAt"` // ISO 8601
}
