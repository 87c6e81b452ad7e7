package suppression

import (
	"context"

	"github.com/ignite/email-delivery/internal/domain"
)

// Repository defines the data access contract for the suppression list.
// Emails are passed already normalized to lower case.
type Repository interface {
	// IsSuppressed returns true if the email is on the suppression list.
	IsSuppressed(ctx context.Context, email string) (bool, error)

	// Suppress adds an email to the list. If it already exists the existing
	// record is preserved.
	Suppress(ctx context.Context, s *domain.Suppression) error

	// Remove deletes an entry. Returns ErrNotFound if it doesn't exist.
	Remove(ctx context.Context, email string) error

	// Suppressed returns the subset of emails that are on the list.
	Suppressed(ctx context.Context, emails []string) ([]string, error)

	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]domain.Suppression, error)

	// Count returns the number of suppressed addresses.
	Count(ctx context.Context) (int, error)
}
