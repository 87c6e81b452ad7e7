// Package analytics derives delivery metrics from sent_emails. It is read
// only.
package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
)

const (
	DefaultDays         = 30
	MaxDays             = 365
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

var ErrUserRequired = fmt.Errorf("%w: userId is required", domain.ErrValidation)

// Counts are raw totals for a window. A record counts as delivered once it
// reaches delivered or any later funnel status, and as opened once it
// reaches opened or clicked.
type Counts struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`
	Bounced   int `json:"bounced"`
}

// TypeCounts are Counts for one email_type.
type TypeCounts struct {
	EmailType string `json:"emailType"`
	Counts
}

// Repository aggregates sent_emails.
type Repository interface {
	Totals(ctx context.Context, since time.Time) (Counts, error)
	TotalsByType(ctx context.Context, since time.Time) ([]TypeCounts, error)
	History(ctx context.Context, userID string, limit int) ([]domain.MessageRecord, error)
}

// Metrics are counts plus percentage rates rounded to two decimals.
type Metrics struct {
	Counts
	DeliveryRate float64 `json:"deliveryRate"`
	OpenRate     float64 `json:"openRate"`
	ClickRate    float64 `json:"clickRate"`
	BounceRate   float64 `json:"bounceRate"`
}

// Performance is the whole-window report.
type Performance struct {
	Days    int       `json:"days"`
	Since   time.Time `json:"since"`
	Metrics Metrics   `json:"metrics"`
}

// TypeMetrics is one row of the by-type report.
type TypeMetrics struct {
	EmailType string `json:"emailType"`
	Metrics
}

// Service computes reports.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an analytics service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Performance reports totals and rates for the last days days.
func (s *Service) Performance(ctx context.Context, days int) (*Performance, error) {
	days = ClampDays(days)
	since := s.since(days)
	c, err := s.repo.Totals(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("performance totals: %w", err)
	}
	return &Performance{Days: days, Since: since, Metrics: Compute(c)}, nil
}

// ByType reports the same metrics per email_type, ordered by type.
func (s *Service) ByType(ctx context.Context, days int) ([]TypeMetrics, error) {
	days = ClampDays(days)
	rows, err := s.repo.TotalsByType(ctx, s.since(days))
	if err != nil {
		return nil, fmt.Errorf("totals by type: %w", err)
	}
	out := make([]TypeMetrics, 0, len(rows))
	for _, r := range rows {
		out = append(out, TypeMetrics{EmailType: r.EmailType, Metrics: Compute(r.Counts)})
	}
	return out, nil
}

// UserHistory returns a user's most recent message records, newest first.
func (s *Service) UserHistory(ctx context.Context, userID string, limit int) ([]domain.MessageRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	recs, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", userID, err)
	}
	if recs == nil {
		recs = []domain.MessageRecord{}
	}
	return recs, nil
}

func (s *Service) since(days int) time.Time {
	return s.now().UTC().AddDate(0, 0, -days)
}

// ClampDays maps non-positive values to DefaultDays and caps at MaxDays.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// Compute derives rates from c. Delivery and bounce rates are over the
// total sent; open and click rates are over delivered.
func Compute(c Counts) Metrics {
	return Metrics{
		Counts:       c,
		DeliveryRate: percent(c.Delivered, c.Total),
		OpenRate:     percent(c.Opened, c.Delivered),
		ClickRate:    percent(c.Clicked, c.Delivered),
		BounceRate:   percent(c.Bounced, c.Total),
	}
}

func percent(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return math.Round(float64(numerator)/float64(denominator)*10000) / 100
}
