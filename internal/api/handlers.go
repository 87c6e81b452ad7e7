package api

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/ratelimit"
	"github.com/ignite/email-delivery/internal/service/analytics"
	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/ignite/email-delivery/internal/service/preferences"
	"github.com/ignite/email-delivery/internal/service/queue"
	"github.com/ignite/email-delivery/internal/service/transactional"
	"github.com/ignite/email-delivery/internal/service/unsubscribe"
	"github.com/ignite/email-delivery/internal/service/webhook"
)

// QueueService runs and inspects the send queue.
type QueueService interface {
	ProcessBatch(ctx context.Context, batchSize int) (queue.BatchResult, error)
	Stats(ctx context.Context) (domain.QueueStats, error)
}

// CampaignService manages campaigns.
type CampaignService interface {
	Create(ctx context.Context, in campaign.CreateInput) (*domain.Campaign, error)
	List(ctx context.Context, status string) ([]domain.Campaign, error)
	Schedule(ctx context.Context, id string) error
	Launch(ctx context.Context, id string) (int, error)
	Cancel(ctx context.Context, id string) (bool, error)
}

// AnalyticsService reports delivery metrics.
type AnalyticsService interface {
	Performance(ctx context.Context, days int) (*analytics.Performance, error)
	ByType(ctx context.Context, days int) ([]analytics.TypeMetrics, error)
	UserHistory(ctx context.Context, userID string, limit int) ([]domain.MessageRecord, error)
}

// PreferenceService reads and merges a user's preferences.
type PreferenceService interface {
	Get(ctx context.Context, userID string) (domain.EmailPreferences, error)
	Update(ctx context.Context, userID string, patch preferences.Patch) (domain.EmailPreferences, error)
}

// UnsubscribeService issues and redeems unsubscribe tokens.
type UnsubscribeService interface {
	Issue(ctx context.Context, email string, tokenType domain.TokenType) (*domain.UnsubscribeToken, error)
	ProcessUnsubscribe(ctx context.Context, token string) (*unsubscribe.Result, error)
}

// WebhookService reconciles provider events.
type WebhookService interface {
	HandleEvents(ctx context.Context, events []webhook.Event) []webhook.EventResult
}

// OrderService sends transactional order mail.
type OrderService interface {
	SendOrderConfirmation(ctx context.Context, oc transactional.OrderConfirmation) (string, error)
}

// Settings are the secrets and limits the handlers need.
type Settings struct {
	QueueAPIKey      string
	WebhookSecret    string
	BaseURL          string
	DefaultBatchSize int
	RateLimit        int
	RateWindow       time.Duration
}

// Handlers contains all HTTP handlers
type Handlers struct {
	queue       QueueService
	campaigns   CampaignService
	analytics   AnalyticsService
	prefs       PreferenceService
	unsubscribe UnsubscribeService
	webhooks    WebhookService
	orders      OrderService
	limiter     ratelimit.Limiter
	settings    Settings
	now         func() time.Time
}

// Deps groups the services behind the routes. Any may be nil, in which case
// its routes are not mounted.
type Deps struct {
	Queue       QueueService
	Campaigns   CampaignService
	Analytics   AnalyticsService
	Preferences PreferenceService
	Unsubscribe UnsubscribeService
	Webhooks    WebhookService
	Orders      OrderService
	Limiter     ratelimit.Limiter
}

// NewHandlers creates a new Handlers instance
func NewHandlers(d Deps, s Settings) *Handlers {
	if s.DefaultBatchSize <= 0 {
		s.DefaultBatchSize = 50
	}
	return &Handlers{
		queue:       d.Queue,
		campaigns:   d.Campaigns,
		analytics:   d.Analytics,
		prefs:       d.Preferences,
		unsubscribe: d.Unsubscribe,
		webhooks:    d.Webhooks,
		orders:      d.Orders,
		limiter:     d.Limiter,
		settings:    s,
		now:         time.Now,
	}
}
