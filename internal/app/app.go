// Package app builds the email delivery services from configuration. The
// server and worker binaries share it so both see the same wiring.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/email-delivery/internal/api"
	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/mailing"
	"github.com/ignite/email-delivery/internal/notify"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/ratelimit"
	"github.com/ignite/email-delivery/internal/repository/postgres"
	"github.com/ignite/email-delivery/internal/service/analytics"
	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/ignite/email-delivery/internal/service/preferences"
	"github.com/ignite/email-delivery/internal/service/queue"
	"github.com/ignite/email-delivery/internal/service/segmentation"
	"github.com/ignite/email-delivery/internal/service/suppression"
	"github.com/ignite/email-delivery/internal/service/transactional"
	"github.com/ignite/email-delivery/internal/service/unsubscribe"
	"github.com/ignite/email-delivery/internal/service/webhook"
	"github.com/ignite/email-delivery/internal/transport"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// App holds the live services and the connections behind them.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client // nil when not configured
	Bus    *notify.AMQP  // nil when not configured

	Limiter       ratelimit.Limiter
	Preferences   *preferences.Service
	Segmentation  *segmentation.Service
	Suppression   *suppression.Service
	Unsubscribe   *unsubscribe.Service
	Campaigns     *campaign.Service
	Queue         *queue.Processor
	Transactional *transactional.Service
	Webhooks      *webhook.Service
	Analytics     *analytics.Service

	closers []func() error
}

// ConfigureLogging applies the logging section.
func ConfigureLogging(cfg config.LoggingConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	if cfg.RedactPII != nil {
		logger.SetRedactPII(*cfg.RedactPII)
	}
}

// New connects to Postgres, and to Redis and AMQP when configured, and
// builds every service. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := a.connectRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.connectBus(); err != nil {
		a.Close()
		return nil, err
	}

	renderer, err := mailing.NewRenderer()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}
	sender, err := transport.New(ctx, cfg.Transport, transport.Envelope{From: cfg.Email.FromAddress, ReplyTo: cfg.Email.ReplyTo})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("email transport: %w", err)
	}

	customers := postgres.NewCustomerRepo(db)
	messages := postgres.NewMessageRepo(db)

	a.Preferences = preferences.NewService(customers)
	a.Segmentation = segmentation.NewService(customers)
	a.Suppression = suppression.NewService(postgres.NewSuppressionRepo(db))
	a.Unsubscribe = unsubscribe.NewService(postgres.NewTokenRepo(db), a.Preferences)
	a.Webhooks = webhook.NewService(messages, a.Suppression)
	a.Analytics = analytics.NewService(postgres.NewAnalyticsRepo(db))

	campaignOpts := []campaign.Option{campaign.WithSuppression(a.Suppression)}
	if a.Bus != nil {
		campaignOpts = append(campaignOpts, campaign.WithNotifier(a.Bus))
	}
	a.Campaigns = campaign.NewService(postgres.NewCampaignRepo(db), a.Segmentation, campaignOpts...)

	queueOpts := []queue.Option{queue.WithUnsubscribeLinks(a.Unsubscribe, cfg.Email.BaseURL)}
	if cfg.Queue.SendRate > 0 {
		queueOpts = append(queueOpts, queue.WithPacer(rate.NewLimiter(rate.Limit(cfg.Queue.SendRate), max(cfg.Queue.SendBurst, 1))))
	}
	a.Queue = queue.NewProcessor(postgres.NewQueueRepo(db), renderer, sender, queueOpts...)

	a.Transactional = transactional.NewService(renderer, sender, messages, postgres.NewOrderRepo(db),
		transactional.WithUnsubscribeLinks(a.Unsubscribe, cfg.Email.BaseURL))

	logger.Info("[App] services ready", "provider", cfg.Transport.Provider, "redis", a.Redis != nil, "amqp", a.Bus != nil)
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	if a.Config.Redis.URL == "" {
		mem := ratelimit.New()
		a.Limiter = mem
		a.closers = append(a.closers, mem.Close)
		return nil
	}
	opts, err := redis.ParseURL(a.Config.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	a.Redis = client
	a.Limiter = ratelimit.NewRedisLimiter(client, "ratelimit:email")
	a.closers = append(a.closers, client.Close)
	return nil
}

func (a *App) connectBus() error {
	if a.Config.AMQP.URL == "" {
		return nil
	}
	bus, err := notify.Dial(a.Config.AMQP.URL, a.Config.AMQP.Queue)
	if err != nil {
		return err
	}
	a.Bus = bus
	a.closers = append(a.closers, bus.Close)
	return nil
}

// Handlers returns the HTTP handlers over the app's services.
func (a *App) Handlers() *api.Handlers {
	return api.NewHandlers(api.Deps{
		Queue:       a.Queue,
		Campaigns:   a.Campaigns,
		Analytics:   a.Analytics,
		Preferences: a.Preferences,
		Unsubscribe: a.Unsubscribe,
		Webhooks:    a.Webhooks,
		Orders:      a.Transactional,
		Limiter:     a.Limiter,
	}, api.Settings{
		QueueAPIKey:      a.Config.Email.QueueAPIKey,
		WebhookSecret:    a.Config.Email.WebhookSecret,
		BaseURL:          a.Config.Email.BaseURL,
		DefaultBatchSize: a.Config.Queue.BatchSize,
		RateLimit:        a.Config.RateLimit.MaxAttempts,
		RateWindow:       a.Config.RateLimit.Window(),
	})
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
