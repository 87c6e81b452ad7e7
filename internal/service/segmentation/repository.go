package segmentation

import (
	"context"

	"github.com/ignite/email-delivery/internal/domain"
)

// Repository reads the audience from the customer store.
type Repository interface {
	// AllWithPreferences returns every user that has a preferences record.
	AllWithPreferences(ctx context.Context) ([]domain.Recipient, error)

	// ByAnyCategory returns users with at least one of cats enabled.
	ByAnyCategory(ctx context.Context, cats []domain.Category) ([]domain.Recipient, error)

	// CountAllWithPreferences and CountByAnyCategory mirror the queries above.
	CountAllWithPreferences(ctx context.Context) (int, error)
	CountByAnyCategory(ctx context.Context, cats []domain.Category) (int, error)
}
