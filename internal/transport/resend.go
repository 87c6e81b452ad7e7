package transport

import (
	"context"
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/resend/resend-go/v2"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	env    Envelope
}

// NewResend creates a Resend-backed sender.
func NewResend(apiKey string, env Envelope) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: resend api key is required", ErrInvalidConfig)
	}
	return &ResendSender{client: resend.NewClient(apiKey), env: env}, nil
}

// Send delivers one message and returns the Resend email id.
func (s *ResendSender) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	params := &resend.SendEmailRequest{
		From:    s.env.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Headers: msg.Headers,
	}
	if s.env.ReplyTo != "" {
		params.ReplyTo = s.env.ReplyTo
	}
	if msg.Tag != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: msg.Tag}}
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", transportErr(domain.ProviderResend, err)
	}
	logger.Debug("[Resend] sent", "email", msg.To, "message_id", sent.Id)
	return sent.Id, nil
}
