package unsubscribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/preferences"
)

// issueAttempts bounds retries on a token collision.
const issueAttempts = 3

// Result is the outcome of ProcessUnsubscribe.
type Result struct {
	Success     bool                     `json:"success"`
	Message     string                   `json:"message"`
	Preferences *domain.EmailPreferences `json:"updatedPreferences,omitempty"`
}

// Service manages the unsubscribe token lifecycle.
type Service struct {
	repo  Repository
	prefs PreferenceUpdater
	now   func() time.Time
	newID func() string
}

// NewService creates an unsubscribe service.
func NewService(repo Repository, prefs PreferenceUpdater) *Service {
	return &Service{
		repo:  repo,
		prefs: prefs,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Issue creates a token for email valid for domain.TokenTTL.
func (s *Service) Issue(ctx context.Context, email string, tokenType domain.TokenType) (*domain.UnsubscribeToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if !tokenType.Valid() {
		return nil, ErrInvalidTokenType
	}

	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		now := s.now().UTC()
		t := &domain.UnsubscribeToken{
			Token:     s.newID(),
			Email:     email,
			TokenType: tokenType,
			ExpiresAt: now.Add(domain.TokenTTL),
			CreatedAt: now,
		}
		err := s.repo.Insert(ctx, t)
		if err == nil {
			return t, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
		logger.Warn("[Unsubscribe] token collision, retrying", "attempt", attempt+1)
	}
	return nil, fmt.Errorf("%w: %v", ErrTokenGenerationFailed, lastErr)
}

// Validate returns the token record if it is usable, or nil.
func (s *Service) Validate(ctx context.Context, token string) (*domain.UnsubscribeToken, error) {
	t, err := s.repo.FindValid(ctx, token, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	return t, nil
}

// Consume marks the token used. It returns false if the token was already
// used, expired, or unknown; calling it twice is a no-op the second time.
func (s *Service) Consume(ctx context.Context, token string) (bool, error) {
	ok, err := s.repo.MarkUsed(ctx, token, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return ok, nil
}

// SweepExpired deletes expired tokens and returns how many were removed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired tokens: %w", err)
	}
	if n > 0 {
		logger.Info("[Unsubscribe] swept expired tokens", "count", n)
	}
	return n, nil
}

// ProcessUnsubscribe validates and consumes token, then applies the
// preference change for its type. Invalid tokens produce a generic
// unsuccessful Result, not an error. A failure to persist preferences
// returns ErrPreferenceUpdate.
func (s *Service) ProcessUnsubscribe(ctx context.Context, token string) (*Result, error) {
	t, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return &Result{Success: false, Message: InvalidTokenMessage}, nil
	}

	consumed, err := s.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// lost a race with a concurrent request for the same token
		return &Result{Success: false, Message: InvalidTokenMessage}, nil
	}

	prefs, err := s.prefs.MergeByEmail(ctx, t.Email, PatchFor(t.TokenType))
	if err != nil {
		logger.Error("[Unsubscribe] preference update failed", "email", t.Email, "token_type", t.TokenType, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPreferenceUpdate, err)
	}

	logger.Info("[Unsubscribe] processed", "email", t.Email, "token_type", t.TokenType)
	return &Result{
		Success:     true,
		Message:     successMessage(t.TokenType),
		Preferences: &prefs,
	}, nil
}

// PatchFor returns the preference change a token type applies.
//
// "all" also turns off order_updates, and "transactional" turns the
// marketing categories back on.
func PatchFor(tt domain.TokenType) preferences.Patch {
	var p preferences.Patch
	switch tt {
	case domain.TokenMarketing:
		for _, c := range domain.MarketingCategories {
			p.Set(c, false)
		}
	case domain.TokenAll:
		for _, c := range domain.Categories {
			p.Set(c, false)
		}
	case domain.TokenTransactional:
		p.Set(domain.CategoryOrderUpdates, false)
		for _, c := range domain.MarketingCategories {
			p.Set(c, true)
		}
	}
	return p
}

func successMessage(tt domain.TokenType) string {
	switch tt {
	case domain.TokenAll:
		return "You have been unsubscribed from all emails."
	case domain.TokenTransactional:
		return "You have been unsubscribed from order update emails."
	default:
		return "You have been unsubscribed from marketing emails."
	}
}
