package preferences

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/email-delivery/internal/domain"
)

// Patch is a partial preference update. Nil fields keep their stored value.
type Patch struct {
	OrderUpdates *bool `json:"order_updates,omitempty"`
	NewProducts  *bool `json:"new_products,omitempty"`
	Sales        *bool `json:"sales,omitempty"`
	Blog         *bool `json:"blog,omitempty"`
}

// Set marks a category in the patch.
func (p *Patch) Set(c domain.Category, v bool) {
	val := v
	switch c {
	case domain.CategoryOrderUpdates:
		p.OrderUpdates = &val
	case domain.CategoryNewProducts:
		p.NewProducts = &val
	case domain.CategorySales:
		p.Sales = &val
	case domain.CategoryBlog:
		p.Blog = &val
	}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.OrderUpdates == nil && p.NewProducts == nil && p.Sales == nil && p.Blog == nil
}

// Apply returns prefs with the patch merged in.
func (p Patch) Apply(prefs domain.EmailPreferences) domain.EmailPreferences {
	if p.OrderUpdates != nil {
		prefs.OrderUpdates = *p.OrderUpdates
	}
	if p.NewProducts != nil {
		prefs.NewProducts = *p.NewProducts
	}
	if p.Sales != nil {
		prefs.Sales = *p.Sales
	}
	if p.Blog != nil {
		prefs.Blog = *p.Blog
	}
	return prefs
}

// ParsePatch validates a decoded JSON object. Every key must be a known
// category and every value a boolean.
func ParsePatch(raw map[string]any) (Patch, error) {
	var p Patch
	for k, v := range raw {
		cat := domain.Category(k)
		if !cat.Valid() {
			return Patch{}, fmt.Errorf("%w: %q", ErrUnknownCategory, k)
		}
		b, ok := v.(bool)
		if !ok {
			return Patch{}, fmt.Errorf("%w: %q", ErrNonBoolean, k)
		}
		p.Set(cat, b)
	}
	return p, nil
}

// Service implements preference reads and merges. It is safe for
// concurrent use if the repository is.
type Service struct {
	repo Repository
}

// NewService creates a preferences service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the stored preferences of a user.
func (s *Service) Get(ctx context.Context, userID string) (domain.EmailPreferences, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return domain.EmailPreferences{}, err
	}
	return p.Preferences, nil
}

// Update merges the provided keys into the user's preferences and returns
// the result.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (domain.EmailPreferences, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return domain.EmailPreferences{}, err
	}
	merged := patch.Apply(p.Preferences)
	if patch.Empty() {
		return merged, nil
	}
	if err := s.repo.Save(ctx, userID, merged); err != nil {
		return domain.EmailPreferences{}, fmt.Errorf("save preferences for user %s: %w", userID, err)
	}
	return merged, nil
}

// MergeByEmail applies patch to the profile owning email. Used by the
// unsubscribe flow, which only knows the address.
func (s *Service) MergeByEmail(ctx context.Context, email string, patch Patch) (domain.EmailPreferences, error) {
	p, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.EmailPreferences{}, err
	}
	merged := patch.Apply(p.Preferences)
	if err := s.repo.Save(ctx, p.UserID, merged); err != nil {
		return domain.EmailPreferences{}, fmt.Errorf("save preferences for user %s: %w", p.UserID, err)
	}
	return merged, nil
}
