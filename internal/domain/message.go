package domain

import "time"

// MessageStatus is the delivery status of a sent email as reported by the
// provider.
type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageOpened    MessageStatus = "opened"
	MessageClicked   MessageStatus = "clicked"
	MessageBounced   MessageStatus = "bounced"
)

// messagePredecessors lists, per status, the statuses a record may hold
// right before moving to it. The funnel is sent→delivered→opened→clicked,
// with bounced reachable only from sent.
var messagePredecessors = map[MessageStatus][]MessageStatus{
	MessageDelivered: {MessageSent},
	MessageOpened:    {MessageSent, MessageDelivered},
	MessageClicked:   {MessageSent, MessageDelivered, MessageOpened},
	MessageBounced:   {MessageSent},
}

// Predecessors returns the statuses from which a record may advance to s.
func (s MessageStatus) Predecessors() []MessageStatus {
	return messagePredecessors[s]
}

// CanAdvance reports whether a record in status s may move to next without
// regressing.
func (s MessageStatus) CanAdvance(next MessageStatus) bool {
	for _, p := range messagePredecessors[next] {
		if p == s {
			return true
		}
	}
	return false
}

// MessageRecord is the durable delivery-status ledger row for one sent
// email, keyed by the provider-assigned EmailID.
type MessageRecord struct {
	ID             string        `json:"id" db:"id"`
	EmailID        string        `json:"email_id" db:"email_id"`
	EmailType      string        `json:"email_type" db:"email_type"`
	UserID         *string       `json:"user_id,omitempty" db:"user_id"`
	RecipientEmail string        `json:"recipient_email" db:"recipient_email"`
	Subject        string        `json:"subject" db:"subject"`
	Status         MessageStatus `json:"status" db:"status"`
	SentAt         time.Time     `json:"sent_at" db:"sent_at"`
	DeliveredAt    *time.Time    `json:"delivered_at,omitempty" db:"delivered_at"`
	OpenedAt       *time.Time    `json:"opened_at,omitempty" db:"opened_at"`
	ClickedAt      *time.Time    `json:"clicked_at,omitempty" db:"clicked_at"`
	ErrorMessage   *string       `json:"error_message,omitempty" db:"error_message"`
}

// ComplaintPredecessors are the statuses a spam complaint may arrive in.
// Complaints follow delivery, so every non-bounced status moves to bounced.
var ComplaintPredecessors = []MessageStatus{MessageSent, MessageDelivered, MessageOpened, MessageClicked}

// MessageUpdate is the set of fields a webhook event applies to a
// MessageRecord. Nil fields are left untouched; timestamps are only written
// when the stored value is still empty.
type MessageUpdate struct {
	Status       MessageStatus
	DeliveredAt  *time.Time
	OpenedAt     *time.Time
	ClickedAt    *time.Time
	ErrorMessage *string
	// From overrides Status.Predecessors() when set.
	From []MessageStatus
}

// AllowedFrom returns the statuses the update may move a record out of.
func (u MessageUpdate) AllowedFrom() []MessageStatus {
	if len(u.From) > 0 {
		return u.From
	}
	return u.Status.Predecessors()
}

// Advances reports whether a record in status current takes u.Status.
func (u MessageUpdate) Advances(current MessageStatus) bool {
	for _, p := range u.AllowedFrom() {
		if p == current {
			return true
		}
	}
	return false
}
