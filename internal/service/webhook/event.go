package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
)

// Event types after the provider prefix is stripped.
const (
	TypeDelivered       = "delivered"
	TypeDeliveryDelayed = "delivery_delayed"
	TypeOpened          = "opened"
	TypeClicked         = "clicked"
	TypeBounced         = "bounced"
	TypeComplained      = "complained"
	TypeUnsubscribed    = "unsubscribed"
)

const providerPrefix = "email."

// ErrMalformedPayload is returned when the body is neither an event object
// nor an array of them.
var ErrMalformedPayload = fmt.Errorf("%w: malformed webhook payload", domain.ErrValidation)

// Event is one provider delivery callback.
type Event struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      EventData `json:"data"`
}

// EventData identifies the message an event applies to.
type EventData struct {
	EmailID string   `json:"email_id"`
	To      []string `json:"to,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Bounce  *Bounce  `json:"bounce,omitempty"`
}

// Bounce carries the provider's bounce classification.
type Bounce struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	SubType string `json:"subType,omitempty"`
}

// Hard reports whether the bounce is permanent.
func (b *Bounce) Hard() bool {
	if b == nil {
		return false
	}
	switch strings.ToLower(b.Type) {
	case "permanent", "hard", "hard_bounce":
		return true
	}
	return false
}

// Kind returns the event type without the provider prefix.
func (e Event) Kind() string {
	return strings.TrimPrefix(e.Type, providerPrefix)
}

// ParseEvents decodes a single event object or an array of events.
func ParseEvents(body []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrMalformedPayload
	}
	if trimmed[0] == '[' {
		var events []Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return events, nil
	}
	var e Event
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return []Event{e}, nil
}
