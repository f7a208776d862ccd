// pkg/registry/schema.go
package registry

// JobRegistry is the on-disk record of every invocation job this pipeline
// has submitted.
type JobRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Jobs        []JobRecord `json:"jobs"`
}

type JobRecord struct {
	JobArn      string `json:"jobArn"`
	JobName     string `json:"jobName"`
	ModelID     string `json:"modelId"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	InputURI    string `json:"inputUri,omitempty"`
	OutputURI   string `json:"outputUri,omitempty"`
	RoleArn     string `json:"roleArn,omitempty"`
	RecordCount int    `json:"recordCount,omitempty"`
	SubmittedAt string `json:"submittedAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}
