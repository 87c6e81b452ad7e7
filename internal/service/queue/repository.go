package queue

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
)

// Repository defines the data access contract for the send queue.
type Repository interface {
	// Claim atomically moves up to limit pending entries with
	// scheduled_for <= now to processing and returns them. Entries claimed
	// by a concurrent caller are skipped.
	Claim(ctx context.Context, limit int, now time.Time) ([]domain.QueueEntry, error)

	// MarkSent marks the entry sent, then inserts rec. The entry stays sent
	// when the insert fails.
	MarkSent(ctx context.Context, entryID string, rec *domain.MessageRecord) error

	// MarkFailed marks the entry failed with reason.
	MarkFailed(ctx context.Context, entryID, reason string, at time.Time) error

	// Release returns processing entries to pending. Used for entries that
	// were claimed but never attempted.
	Release(ctx context.Context, entryIDs []string) error

	// FailStale marks entries still processing since before staleBefore as
	// failed with reason and returns how many moved.
	FailStale(ctx context.Context, staleBefore time.Time, reason string, at time.Time) (int64, error)

	// Stats counts entries per status.
	Stats(ctx context.Context) (domain.QueueStats, error)

	// Insert adds a single entry.
	Insert(ctx context.Context, e *domain.QueueEntry) error
}

// TokenIssuer mints unsubscribe tokens for the links placed in campaign mail.
type TokenIssuer interface {
	Issue(ctx context.Context, email string, tokenType domain.TokenType) (*domain.UnsubscribeToken, error)
}
