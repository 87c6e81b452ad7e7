// Package transport implements sending.Sender for each supported provider
// and selects one from configuration.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/sending"
)

// ErrInvalidConfig is returned when the selected provider lacks credentials.
var ErrInvalidConfig = fmt.Errorf("%w: invalid transport configuration", domain.ErrValidation)

// Envelope holds the sender-side addresses shared by every provider.
type Envelope struct {
	From    string
	ReplyTo string
}

// New builds the Sender named by cfg.Provider. Every send is bounded by
// cfg.SendTimeout when it is positive.
func New(ctx context.Context, cfg config.TransportConfig, env Envelope) (sending.Sender, error) {
	var (
		s   sending.Sender
		err error
	)
	switch domain.Provider(cfg.Provider) {
	case domain.ProviderResend:
		s, err = NewResend(cfg.Resend.APIKey, env)
	case domain.ProviderSES:
		s, err = NewSES(ctx, cfg.SES, env)
	case domain.ProviderPostmark:
		s, err = NewPostmark(cfg.Postmark, env)
	case domain.ProviderLog, "":
		s = NewLog()
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(s, cfg.SendTimeout()), nil
}

// WithTimeout bounds each Send call with d. A non-positive d returns s.
func WithTimeout(s sending.Sender, d time.Duration) sending.Sender {
	if d <= 0 {
		return s
	}
	return sending.SenderFunc(func(ctx context.Context, msg *domain.EmailMessage) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return s.Send(ctx, msg)
	})
}

func transportErr(provider domain.Provider, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrTransport, provider, err)
}
