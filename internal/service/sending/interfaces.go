// Package sending defines the seams between the delivery services and the
// outside world: the outbound transport and the template renderer.
//
// Each provider (Resend, SES, Postmark, the local log transport) implements
// Sender in internal/transport. The queue processor and the transactional
// path depend only on these interfaces.
package sending

import (
	"context"

	"github.com/ignite/email-delivery/internal/domain"
)

// Sender sends a single email and returns the provider-assigned message id.
// Implementations must be safe for concurrent use. Failures wrap
// domain.ErrTransport.
type Sender interface {
	Send(ctx context.Context, msg *domain.EmailMessage) (string, error)
}

// Renderer turns a template id and its data into an HTML body. It must be
// pure: same input, same output, no I/O.
type Renderer interface {
	Render(templateID string, data map[string]any) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg *domain.EmailMessage) (string, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	return f(ctx, msg)
}
