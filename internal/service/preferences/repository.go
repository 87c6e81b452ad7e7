package preferences

import (
	"context"

	"github.com/ignite/email-delivery/internal/domain"
)

// Repository defines the data access contract for stored preferences.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetByUserID returns the profile. Returns ErrNotFound if it doesn't exist.
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)

	// GetByEmail returns the profile owning email (case-insensitive).
	// Returns ErrNotFound if no profile has that address.
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)

	// Save overwrites the stored preferences of a user. Returns ErrNotFound
	// if the profile is gone.
	Save(ctx context.Context, userID string, prefs domain.EmailPreferences) error
}
