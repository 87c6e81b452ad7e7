package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the email delivery services.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	AMQP        AMQPConfig        `yaml:"amqp"`
	Email       EmailConfig       `yaml:"email"`
	Transport   TransportConfig   `yaml:"transport"`
	Queue       QueueConfig       `yaml:"queue"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host" env:"SERVER_HOST"`
	Port           int      `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds" env:"DB_CONN_MAX_LIFETIME_SECONDS"`
}

// ConnLifetime returns the pool connection lifetime.
func (c DatabaseConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

// RedisConfig is optional; an empty URL keeps rate limiting in memory and
// locks in PostgreSQL.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// AMQPConfig is optional; an empty URL disables batch-ready notifications.
type AMQPConfig struct {
	URL   string `yaml:"url" env:"AMQP_URL"`
	Queue string `yaml:"queue" env:"AMQP_QUEUE"`
}

// EmailConfig holds the secrets and URLs consumed by the HTTP surface.
type EmailConfig struct {
	QueueAPIKey   string `yaml:"queue_api_key" env:"QUEUE_API_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	BaseURL       string `yaml:"base_url" env:"APP_BASE_URL"`
	FromAddress   string `yaml:"from_address" env:"EMAIL_FROM"`
	ReplyTo       string `yaml:"reply_to" env:"EMAIL_REPLY_TO"`
}

// TransportConfig selects and configures the outbound provider.
type TransportConfig struct {
	Provider string         `yaml:"provider" env:"EMAIL_PROVIDER"` // resend, ses, postmark, log
	Resend   ResendConfig   `yaml:"resend"`
	SES      SESConfig      `yaml:"ses"`
	Postmark PostmarkConfig `yaml:"postmark"`
	Timeout  int            `yaml:"timeout_seconds" env:"EMAIL_TIMEOUT_SECONDS"`
}

// SendTimeout returns the per-send timeout.
func (c TransportConfig) SendTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ResendConfig holds Resend API credentials.
type ResendConfig struct {
	APIKey string `yaml:"api_key" env:"RESEND_API_KEY"`
}

// SESConfig holds AWS SES credentials.
type SESConfig struct {
	AccessKey string `yaml:"access_key" env:"AWS_SES_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"AWS_SES_SECRET_KEY"`
	Region    string `yaml:"region" env:"AWS_SES_REGION"`
}

// PostmarkConfig holds Postmark tokens.
type PostmarkConfig struct {
	ServerToken  string `yaml:"server_token" env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `yaml:"account_token" env:"POSTMARK_ACCOUNT_TOKEN"`
}

// QueueConfig holds delivery queue processor settings.
type QueueConfig struct {
	BatchSize       int     `yaml:"batch_size" env:"QUEUE_BATCH_SIZE"`
	IntervalSeconds int     `yaml:"interval_seconds" env:"QUEUE_INTERVAL_SECONDS"`
	SendRate        float64 `yaml:"send_rate_per_second" env:"QUEUE_SEND_RATE"`
	SendBurst       int     `yaml:"send_burst" env:"QUEUE_SEND_BURST"`
	// StaleClaimMinutes is how long an entry may stay processing before the
	// worker fails it.
	StaleClaimMinutes int `yaml:"stale_claim_minutes" env:"QUEUE_STALE_CLAIM_MINUTES"`
}

// Interval returns the worker's polling interval.
func (c QueueConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// StaleAge returns the stale-claim threshold.
func (c QueueConfig) StaleAge() time.Duration {
	return time.Duration(c.StaleClaimMinutes) * time.Minute
}

// RateLimitConfig configures the fixed-window limiter on public endpoints.
type RateLimitConfig struct {
	MaxAttempts   int `yaml:"max_attempts" env:"RATE_LIMIT_MAX_ATTEMPTS"`
	WindowSeconds int `yaml:"window_seconds" env:"RATE_LIMIT_WINDOW_SECONDS"`
}

// Window returns the limiter window.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// AuthConfig holds the session verification secret.
type AuthConfig struct {
	SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET"`
	CookieName    string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL"`
	RedactPII *bool  `yaml:"redact_pii" env:"LOG_REDACT_PII"`
}

// MaintenanceConfig schedules the worker's housekeeping.
type MaintenanceConfig struct {
	TokenSweepMinutes int `yaml:"token_sweep_minutes" env:"TOKEN_SWEEP_MINUTES"`
}

// TokenSweepInterval returns how often expired unsubscribe tokens are purged.
func (c MaintenanceConfig) TokenSweepInterval() time.Duration {
	return time.Duration(c.TokenSweepMinutes) * time.Minute
}

// Load reads a YAML config file and applies defaults. A missing file is not
// an error; defaults are returned.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML file, then a .env file if present, then
// overrides any field whose environment variable is set.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.AMQP.Queue == "" {
		c.AMQP.Queue = "email_batches"
	}
	if c.Email.BaseURL == "" {
		c.Email.BaseURL = "http://localhost:3000"
	}
	if c.Email.FromAddress == "" {
		c.Email.FromAddress = "Store <no-reply@example.com>"
	}
	if c.Transport.Provider == "" {
		c.Transport.Provider = "log"
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = 30
	}
	if c.Transport.SES.Region == "" {
		c.Transport.SES.Region = "us-east-1"
	}
	if c.Queue.BatchSize == 0 {
		c.Queue.BatchSize = 50
	}
	if c.Queue.IntervalSeconds == 0 {
		c.Queue.IntervalSeconds = 60
	}
	if c.Queue.SendBurst == 0 {
		c.Queue.SendBurst = 1
	}
	if c.Queue.StaleClaimMinutes == 0 {
		c.Queue.StaleClaimMinutes = 15
	}
	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = 10
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 900
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "session"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.RedactPII == nil {
		on := true
		c.Logging.RedactPII = &on
	}
	if c.Maintenance.TokenSweepMinutes == 0 {
		c.Maintenance.TokenSweepMinutes = 60
	}
}
