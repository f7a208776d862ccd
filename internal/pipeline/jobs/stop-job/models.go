// internal/pipeline/jobs/stop-job/models.go
package stopjob

type Input struct {
	JobArn string `json:"jobArn"`
}

type Output struct {
	JobArn    string `json:"jobArn"`
	Stopped   bool   `json:"stopped"`
	StoppedAt string `json:"stoppedAt"` // ISO 8601, when the stop was requested
}
