package suppression

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// Service implements suppression business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsSuppressed checks whether an email address should be blocked from sending.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return s.repo.IsSuppressed(ctx, normalize(email))
}

// Suppress adds an email to the suppression list. Suppressing an address
// twice keeps the first record.
func (s *Service) Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource) error {
	email = normalize(email)
	if email == "" {
		return ErrEmailMissing
	}
	if err := s.repo.Suppress(ctx, &domain.Suppression{
		Email:  email,
		Reason: reason,
		Source: source,
	}); err != nil {
		return fmt.Errorf("suppress %s: %w", logger.RedactEmail(email), err)
	}
	logger.Info("[Suppression] address suppressed", "email", email, "reason", reason, "source", source)
	return nil
}

// Remove deletes a suppression entry.
func (s *Service) Remove(ctx context.Context, email string) error {
	email = normalize(email)
	if email == "" {
		return ErrEmailMissing
	}
	return s.repo.Remove(ctx, email)
}

// FilterSuppressed reports, for each input address, whether it is
// suppressed. Keys are the normalized addresses.
func (s *Service) FilterSuppressed(ctx context.Context, emails []string) (map[string]bool, error) {
	out := make(map[string]bool, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		n := normalize(e)
		if _, seen := out[n]; seen {
			continue
		}
		out[n] = false
		normalized = append(normalized, n)
	}
	hits, err := s.repo.Suppressed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("filter suppressed: %w", err)
	}
	for _, h := range hits {
		out[h] = true
	}
	return out, nil
}

// List returns a page of suppression entries.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Suppression, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Count returns the total number of suppressed addresses.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
