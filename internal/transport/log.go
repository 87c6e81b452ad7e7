package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// LogSender is the local development transport. It logs each message and
// keeps it in memory instead of delivering it.
type LogSender struct {
	mu   sync.Mutex
	sent []domain.EmailMessage
}

// NewLog creates a log transport.
func NewLog() *LogSender {
	return &LogSender{}
}

// Send records msg and returns a fresh id.
func (s *LogSender) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transportErr(domain.ProviderLog, err)
	}
	id := uuid.New().String()
	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()
	logger.Info("[LogTransport] email not delivered (log provider)",
		"email", msg.To, "subject", msg.Subject, "message_id", id, "bytes", len(msg.HTML))
	return id, nil
}

// Sent returns a copy of every message seen so far.
func (s *LogSender) Sent() []domain.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EmailMessage(nil), s.sent...)
}
