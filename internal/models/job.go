// internal/models/job.go
package models

// Invocation job statuses as reported by the service. Values pass through
// unmapped.
const (
	JobStatusSubmitted          = "Submitted"
	JobStatusValidating         = "Validating"
	JobStatusScheduled          = "Scheduled"
	JobStatusInProgress         = "InProgress"
	JobStatusCompleted          = "Completed"
	JobStatusPartiallyCompleted = "PartiallyCompleted"
	JobStatusFailed             = "Failed"
	JobStatusStopping           = "Stopping"
	JobStatusStopped            = "Stopped"
	JobStatusExpired            = "Expired"
)

// IsTerminalJobStatus reports whether the service will never change the
// status again.
func IsTerminalJobStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusPartiallyCompleted, JobStatusFailed,
		JobStatusStopped, JobStatusExpired:
		return true
	}
	return false
}

// JobInfo is the pipeline's view of an invocation job.
type JobInfo struct {
	JobArn      string `json:"jobArn"`
	JobName     string `json:"jobName"`
	ModelID     string `json:"modelId"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	InputURI    string `json:"inputUri,omitempty"`
	OutputURI   string `json:"outputUri,omitempty"`
	SubmittedAt string `json:"submittedAt,omitempty"`
	EndedAt     string `json:"endedAt,omitempty"`
}
