package unsubscribe

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/preferences"
)

// Repository defines the data access contract for unsubscribe tokens.
type Repository interface {
	// Insert stores a new token. A duplicate token value must surface as an
	// error wrapping domain.ErrConflict.
	Insert(ctx context.Context, t *domain.UnsubscribeToken) error

	// FindValid returns the token only if it is unused and expires after
	// now; otherwise (nil, nil).
	FindValid(ctx context.Context, token string, now time.Time) (*domain.UnsubscribeToken, error)

	// MarkUsed sets used_at = now where used_at is null and expires_at > now.
	// Returns false when no row changed.
	MarkUsed(ctx context.Context, token string, now time.Time) (bool, error)

	// DeleteExpired removes tokens with expires_at < now and returns the
	// number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PreferenceUpdater applies a preference patch to the profile owning an
// address. *preferences.Service satisfies it.
type PreferenceUpdater interface {
	MergeByEmail(ctx context.Context, email string, patch preferences.Patch) (domain.EmailPreferences, error)
}
