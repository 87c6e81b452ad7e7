package domain

import "time"

// SuppressionReason enumerates why an address was suppressed.
type SuppressionReason string

const (
	ReasonHardBounce SuppressionReason = "hard_bounce"
	ReasonComplaint  SuppressionReason = "spam_complaint"
	ReasonManual     SuppressionReason = "manual"
)

// SuppressionSource indicates where the suppression signal originated.
type SuppressionSource string

const (
	SourceWebhook SuppressionSource = "provider_webhook"
	SourceManual  SuppressionSource = "manual"
)

// Suppression is a single entry in the suppression list. Campaign launches
// skip suppressed addresses.
type Suppression struct {
	ID        string            `json:"id" db:"id"`
	Email     string            `json:"email" db:"email"`
	Reason    SuppressionReason `json:"reason" db:"reason"`
	Source    SuppressionSource `json:"source" db:"source"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
