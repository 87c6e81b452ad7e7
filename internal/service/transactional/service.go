// Package transactional sends the order confirmation email synchronously,
// retrying with exponential backoff while the caller waits. Unlike the
// durable queue, a failure here is reported back to the caller and noted on
// the order.
package transactional

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/mailing"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/pkg/retry"
	"github.com/ignite/email-delivery/internal/service/sending"
)

// TemplateID is the template rendered for order confirmations.
const TemplateID = "order_confirmation"

// EmailType tags order confirmation records.
const EmailType = "order_confirmation"

var (
	ErrOrderIDRequired = fmt.Errorf("%w: order id is required", domain.ErrValidation)
	ErrInvalidEmail    = fmt.Errorf("%w: customer email is invalid", domain.ErrValidation)
	ErrDeliveryFailed  = fmt.Errorf("%w: order confirmation not delivered", domain.ErrTransport)
)

// OrderRepository annotates the external orders table.
type OrderRepository interface {
	// MarkEmailResult sets email_sent and email_error on the order.
	MarkEmailResult(ctx context.Context, orderID string, sent bool, reason *string) error
}

// MessageRecorder stores the sent_emails row for a delivered message.
type MessageRecorder interface {
	Insert(ctx context.Context, rec *domain.MessageRecord) error
}

// TokenIssuer mints the order-update unsubscribe token.
type TokenIssuer interface {
	Issue(ctx context.Context, email string, tokenType domain.TokenType) (*domain.UnsubscribeToken, error)
}

// Item is one order line.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderConfirmation is the input to SendOrderConfirmation.
type OrderConfirmation struct {
	OrderID      string  `json:"order_id"`
	OrderNumber  string  `json:"order_number,omitempty"`
	UserID       string  `json:"user_id,omitempty"`
	Email        string  `json:"email"`
	CustomerName string  `json:"customer_name,omitempty"`
	Items        []Item  `json:"items,omitempty"`
	Total        float64 `json:"total"`
}

func (o OrderConfirmation) templateData() map[string]any {
	items := make([]map[string]any, len(o.Items))
	for i, it := range o.Items {
		items[i] = map[string]any{"name": it.Name, "quantity": it.Quantity, "price": it.Price}
	}
	return map[string]any{
		"order_id":      o.OrderID,
		"order_number":  o.OrderNumber,
		"customer_name": o.CustomerName,
		"items":         items,
		"total":         o.Total,
	}
}

// Service sends order confirmations.
type Service struct {
	renderer sending.Renderer
	sender   sending.Sender
	messages MessageRecorder
	orders   OrderRepository
	tokens   TokenIssuer
	baseURL  string
	policy   retry.Policy
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRetryPolicy overrides retry.DefaultPolicy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithUnsubscribeLinks adds an order-updates unsubscribe link.
func WithUnsubscribeLinks(issuer TokenIssuer, baseURL string) Option {
	return func(s *Service) {
		s.tokens = issuer
		s.baseURL = baseURL
	}
}

// NewService creates the transactional sender.
func NewService(renderer sending.Renderer, sender sending.Sender, messages MessageRecorder, orders OrderRepository, opts ...Option) *Service {
	s := &Service{
		renderer: renderer,
		sender:   sender,
		messages: messages,
		orders:   orders,
		policy:   retry.DefaultPolicy(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SendOrderConfirmation renders and sends the confirmation, retrying
// transport failures. On success the message is recorded and the order
// marked email_sent=true. On exhaustion the order is marked
// email_sent=false with the reason and ErrDeliveryFailed is returned.
func (s *Service) SendOrderConfirmation(ctx context.Context, oc OrderConfirmation) (string, error) {
	if strings.TrimSpace(oc.OrderID) == "" {
		return "", ErrOrderIDRequired
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(oc.Email))
	if err != nil {
		return "", ErrInvalidEmail
	}
	to := addr.Address
	subject := "Order confirmation #" + orderLabel(oc)

	data := oc.templateData()
	msg := &domain.EmailMessage{To: to, Subject: subject, Tag: EmailType}
	if link := s.unsubscribeLink(ctx, to); link != "" {
		data["unsubscribe_url"] = link
	}
	html, err := s.renderer.Render(TemplateID, data)
	if err != nil {
		s.annotate(ctx, oc.OrderID, false, "render: "+err.Error())
		return "", fmt.Errorf("render order confirmation %s: %w", oc.OrderID, err)
	}
	msg.HTML = html

	var providerID string
	err = s.policy.Do(ctx, "order_confirmation", func(ctx context.Context) error {
		id, err := s.sender.Send(ctx, msg)
		if err != nil {
			return err
		}
		providerID = id
		return nil
	})
	if err != nil {
		logger.Error("[OrderConfirmation] delivery failed", "order_id", oc.OrderID, "email", to, "error", err)
		s.annotate(ctx, oc.OrderID, false, err.Error())
		return "", fmt.Errorf("%w: order %s: %v", ErrDeliveryFailed, oc.OrderID, err)
	}

	rec := &domain.MessageRecord{
		ID:             uuid.New().String(),
		EmailID:        providerID,
		EmailType:      EmailType,
		RecipientEmail: to,
		Subject:        subject,
		Status:         domain.MessageSent,
		SentAt:         s.now().UTC(),
	}
	if oc.UserID != "" {
		uid := oc.UserID
		rec.UserID = &uid
	}
	if err := s.messages.Insert(ctx, rec); err != nil {
		logger.Error("[OrderConfirmation] failed to record message", "order_id", oc.OrderID, "provider_id", providerID, "error", err)
	}
	s.annotate(ctx, oc.OrderID, true, "")
	logger.Info("[OrderConfirmation] sent", "order_id", oc.OrderID, "provider_id", providerID)
	return providerID, nil
}

func (s *Service) unsubscribeLink(ctx context.Context, email string) string {
	if s.tokens == nil {
		return ""
	}
	tok, err := s.tokens.Issue(ctx, email, domain.TokenTransactional)
	if err != nil {
		logger.Warn("[OrderConfirmation] unsubscribe token not issued", "error", err)
		return ""
	}
	return mailing.UnsubscribeURL(s.baseURL, tok.TokenType, tok.Token)
}

func (s *Service) annotate(ctx context.Context, orderID string, sent bool, reason string) {
	var r *string
	if reason != "" {
		r = &reason
	}
	if err := s.orders.MarkEmailResult(context.WithoutCancel(ctx), orderID, sent, r); err != nil {
		logger.Error("[OrderConfirmation] failed to annotate order", "order_id", orderID, "error", err)
	}
}

func orderLabel(oc OrderConfirmation) string {
	if oc.OrderNumber != "" {
		return oc.OrderNumber
	}
	return oc.OrderID
}
