package transport

import (
	"context"
	"fmt"

	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/mrz1836/postmark"
)

// PostmarkSender sends emails through Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
	env    Envelope
}

// NewPostmark creates a Postmark-backed sender. Both tokens are required.
func NewPostmark(cfg config.PostmarkConfig, env Envelope) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark account token is required", ErrInvalidConfig)
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		env:    env,
	}, nil
}

// Send delivers one message and returns the Postmark MessageID. Open
// tracking is left to the provider webhook.
func (s *PostmarkSender) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.env.From,
		ReplyTo:    s.env.ReplyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTML,
		Headers:    postmarkHeaders(msg.Headers),
		TrackOpens: true,
	})
	if err != nil {
		return "", transportErr(domain.ProviderPostmark, err)
	}
	if resp.ErrorCode > 0 {
		return "", transportErr(domain.ProviderPostmark, fmt.Errorf("error %d: %s", resp.ErrorCode, resp.Message))
	}
	logger.Debug("[Postmark] sent", "email", msg.To, "message_id", resp.MessageID)
	return resp.MessageID, nil
}

func postmarkHeaders(h map[string]string) []postmark.Header {
	if len(h) == 0 {
		return nil
	}
	out := make([]postmark.Header, 0, len(h))
	for k, v := range h {
		out = append(out, postmark.Header{Name: k, Value: v})
	}
	return out
}
