// Package webhook verifies provider delivery callbacks and applies them to
// sent_emails.
//
// Updates are idempotent: status only moves forward along
// sent→delivered→opened→clicked or sent→bounced (a complaint bounces any
// non-bounced record), and each timestamp is
// written only while still empty, so a redelivered event leaves the record
// unchanged.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

var (
	ErrNotFound       = fmt.Errorf("%w: message record", domain.ErrNotFound)
	ErrMissingEmailID = fmt.Errorf("%w: event has no email_id", domain.ErrValidation)
)

const complaintMessage = "marked as spam"

// Repository applies updates to message records.
type Repository interface {
	// Apply writes upd to the record with the given provider id. Status is
	// only changed when the stored status is in upd.AllowedFrom();
	// timestamps are only written when empty. Returns false
	// when no record has that id.
	Apply(ctx context.Context, emailID string, upd domain.MessageUpdate) (bool, error)
}

// Suppressor records addresses that hard-bounced or complained.
type Suppressor interface {
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource) error
}

// EventResult is the per-event outcome of HandleEvents.
type EventResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Service reconciles delivery events.
type Service struct {
	repo       Repository
	suppressor Suppressor
	now        func() time.Time
}

// NewService creates a reconciler. suppressor may be nil.
func NewService(repo Repository, suppressor Suppressor) *Service {
	return &Service{repo: repo, suppressor: suppressor, now: time.Now}
}

// HandleEvent applies one event. Unknown event types are logged and
// treated as success.
func (s *Service) HandleEvent(ctx context.Context, e Event) error {
	kind := e.Kind()
	upd, ok := s.updateFor(kind, e)
	if !ok {
		logger.Info("[Webhook] ignoring unknown event type", "type", e.Type)
		return nil
	}
	if e.Data.EmailID == "" {
		return ErrMissingEmailID
	}

	found, err := s.repo.Apply(ctx, e.Data.EmailID, upd)
	if err != nil {
		return fmt.Errorf("apply %s to %s: %w", kind, e.Data.EmailID, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, e.Data.EmailID)
	}

	if suppressed := suppressionReason(kind, e.Data.Bounce); suppressed != "" {
		s.suppress(ctx, e, suppressed)
	}
	logger.Debug("[Webhook] event applied", "type", kind, "email_id", e.Data.EmailID)
	return nil
}

// HandleEvents applies each event independently.
func (s *Service) HandleEvents(ctx context.Context, events []Event) []EventResult {
	results := make([]EventResult, 0, len(events))
	for _, e := range events {
		r := EventResult{Type: e.Type, Success: true}
		if err := s.HandleEvent(ctx, e); err != nil {
			r.Success = false
			r.Error = publicError(err)
			logger.Warn("[Webhook] event failed", "type", e.Type, "email_id", e.Data.EmailID, "error", err)
		}
		results = append(results, r)
	}
	return results
}

func (s *Service) updateFor(kind string, e Event) (domain.MessageUpdate, bool) {
	at := e.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	switch kind {
	case TypeDelivered, TypeDeliveryDelayed:
		return domain.MessageUpdate{Status: domain.MessageDelivered, DeliveredAt: &at}, true
	case TypeOpened:
		return domain.MessageUpdate{Status: domain.MessageOpened, OpenedAt: &at}, true
	case TypeClicked:
		return domain.MessageUpdate{Status: domain.MessageClicked, ClickedAt: &at}, true
	case TypeBounced:
		msg := bounceMessage(e.Data.Bounce)
		return domain.MessageUpdate{Status: domain.MessageBounced, ErrorMessage: &msg}, true
	case TypeComplained:
		msg := complaintMessage
		return domain.MessageUpdate{Status: domain.MessageBounced, ErrorMessage: &msg, From: domain.ComplaintPredecessors}, true
	case TypeUnsubscribed:
		// counted in the clicked bucket; the token flow handles the opt-out
		return domain.MessageUpdate{Status: domain.MessageClicked}, true
	}
	return domain.MessageUpdate{}, false
}

func bounceMessage(b *Bounce) string {
	if b == nil {
		return "bounced"
	}
	reason := b.Message
	if reason == "" {
		reason = "bounced"
	}
	if b.Type == "" {
		return reason
	}
	return fmt.Sprintf("%s (%s)", reason, b.Type)
}

func suppressionReason(kind string, b *Bounce) domain.SuppressionReason {
	switch {
	case kind == TypeComplained:
		return domain.ReasonComplaint
	case kind == TypeBounced && b.Hard():
		return domain.ReasonHardBounce
	}
	return ""
}

func (s *Service) suppress(ctx context.Context, e Event, reason domain.SuppressionReason) {
	if s.suppressor == nil {
		return
	}
	for _, to := range e.Data.To {
		if strings.TrimSpace(to) == "" {
			continue
		}
		if err := s.suppressor.Suppress(ctx, to, reason, domain.SourceWebhook); err != nil {
			logger.Error("[Webhook] failed to suppress recipient", "email", to, "reason", reason, "error", err)
		}
	}
}

// publicError keeps store details out of the response body.
func publicError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "message not found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid event"
	}
	return "processing failed"
}
