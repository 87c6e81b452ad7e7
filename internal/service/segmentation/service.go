package segmentation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ignite/email-delivery/internal/domain"
)

// Service is the segmentation engine.
type Service struct {
	repo Repository
}

// NewService creates a segmentation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ValidateCriteria rejects keys that are not known categories.
func ValidateCriteria(c domain.SegmentCriteria) error {
	unknown := c.Unknown()
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: %s", ErrUnknownCategory, strings.Join(unknown, ", "))
}

// ResolveRecipients returns the users matching c.
func (s *Service) ResolveRecipients(ctx context.Context, c domain.SegmentCriteria) ([]domain.Recipient, error) {
	if err := ValidateCriteria(c); err != nil {
		return nil, err
	}
	if len(c) == 0 {
		r, err := s.repo.AllWithPreferences(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve all recipients: %w", err)
		}
		return r, nil
	}
	cats := c.Requested()
	if len(cats) == 0 {
		return []domain.Recipient{}, nil
	}
	r, err := s.repo.ByAnyCategory(ctx, cats)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients for %v: %w", cats, err)
	}
	return r, nil
}

// Estimate returns the size ResolveRecipients would currently produce.
func (s *Service) Estimate(ctx context.Context, c domain.SegmentCriteria) (int, error) {
	if err := ValidateCriteria(c); err != nil {
		return 0, err
	}
	if len(c) == 0 {
		return s.repo.CountAllWithPreferences(ctx)
	}
	cats := c.Requested()
	if len(cats) == 0 {
		return 0, nil
	}
	return s.repo.CountByAnyCategory(ctx, cats)
}
