package domain

import "time"

// QueueStatus enumerates the lifecycle of a single email in the send queue.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueSent       QueueStatus = "sent"
	QueueFailed     QueueStatus = "failed"
)

// Priority tiers. Lower numbers are sent first.
const (
	PriorityTransactional = 1
	PriorityMarketing     = 5
)

// QueueEntry is one recipient-specific unit of pending work, materialized
// from a campaign or enqueued directly by a transactional caller.
type QueueEntry struct {
	ID             string         `json:"id" db:"id"`
	CampaignID     *string        `json:"campaign_id,omitempty" db:"campaign_id"`
	EmailType      string         `json:"email_type" db:"email_type"`
	RecipientEmail string         `json:"recipient_email" db:"recipient_email"`
	UserID         *string        `json:"user_id,omitempty" db:"user_id"`
	Subject        string         `json:"subject" db:"subject"`
	TemplateID     string         `json:"template_id" db:"template_id"`
	TemplateData   map[string]any `json:"template_data" db:"template_data"`
	Priority       int            `json:"priority" db:"priority"`
	Status         QueueStatus    `json:"status" db:"status"`
	ScheduledFor   time.Time      `json:"scheduled_for" db:"scheduled_for"`
	ErrorMessage   *string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty" db:"processed_at"`
}

// QueueStats counts queue entries per status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}
