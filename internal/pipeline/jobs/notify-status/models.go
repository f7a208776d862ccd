// internal/pipeline/jobs/notify-status/models.go
package notifystatus

import "bedrock-batch-pipeline/internal/models"

type Input struct {
	Job      models.JobInfo `json:"job"`
	ToEmails []string       `json:"toEmails,omitempty"` // empty means config recipients
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`             // "sent", "failed", "disabled", "skipped"
	Channels       []string `json:"channels,omitempty"` // channels that delivered
	SentAt         string   `json:"sentAt"`             // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)
