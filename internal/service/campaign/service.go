package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/segmentation"
)

// DefaultTemplateID is used when a campaign is created without a template.
const DefaultTemplateID = "default"

// scheduleLayouts are the accepted scheduled_for formats. Layouts without a
// zone are read as UTC.
var scheduleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseSchedule parses a scheduled_for value.
func ParseSchedule(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidSchedule
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSchedule, s)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name            string          `json:"name"`
	EmailType       string          `json:"email_type"`
	Subject         string          `json:"subject"`
	TemplateID      string          `json:"template_id"`
	TemplateData    map[string]any  `json:"template_data"`
	SegmentCriteria map[string]bool `json:"segment_criteria"`
	ScheduledFor    string          `json:"scheduled_for"`
	CreatedBy       string          `json:"created_by"`
}

// Option configures optional collaborators.
type Option func(*Service)

// WithSuppression filters suppressed addresses out of launches.
func WithSuppression(f SuppressionFilter) Option {
	return func(s *Service) { s.suppression = f }
}

// WithNotifier publishes a BatchReady message after each launch.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements campaign business logic. All public methods are safe
// for concurrent use if the collaborators are.
type Service struct {
	repo        Repository
	audience    AudienceResolver
	suppression SuppressionFilter
	notifier    Notifier
	now         func() time.Time
}

// NewService creates a campaign service.
func NewService(repo Repository, audience AudienceResolver, opts ...Option) *Service {
	s := &Service{repo: repo, audience: audience, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns campaigns ordered by scheduled_for, optionally filtered.
func (s *Service) List(ctx context.Context, status string) ([]domain.Campaign, error) {
	st := domain.CampaignStatus(status)
	if st != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.List(ctx, st)
}

// Create validates and persists a new campaign in draft status with an
// estimated recipient count.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Campaign, error) {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, ErrNameRequired
	case strings.TrimSpace(in.EmailType) == "":
		return nil, ErrEmailTypeRequired
	case strings.TrimSpace(in.Subject) == "":
		return nil, ErrSubjectRequired
	}
	scheduledFor, err := ParseSchedule(in.ScheduledFor)
	if err != nil {
		return nil, err
	}

	criteria := make(domain.SegmentCriteria, len(in.SegmentCriteria))
	for k, v := range in.SegmentCriteria {
		criteria[domain.Category(k)] = v
	}
	if err := segmentation.ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	estimate, err := s.audience.Estimate(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("estimate audience: %w", err)
	}

	now := s.now().UTC()
	c := &domain.Campaign{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(in.Name),
		EmailType:       strings.TrimSpace(in.EmailType),
		Subject:         in.Subject,
		TemplateID:      in.TemplateID,
		TemplateData:    in.TemplateData,
		SegmentCriteria: criteria,
		Status:          domain.CampaignDraft,
		ScheduledFor:    scheduledFor,
		RecipientCount:  estimate,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if c.TemplateID == "" {
		c.TemplateID = DefaultTemplateID
	}
	if c.TemplateData == nil {
		c.TemplateData = map[string]any{}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	logger.Info("[Campaign] created", "campaign_id", c.ID, "estimated_recipients", estimate)
	return c, nil
}

// Schedule moves a draft campaign to scheduled.
func (s *Service) Schedule(ctx context.Context, id string) error {
	ok, err := s.repo.Transition(ctx, id, []domain.CampaignStatus{domain.CampaignDraft}, domain.CampaignScheduled)
	if err != nil {
		return fmt.Errorf("schedule campaign %s: %w", id, err)
	}
	if !ok {
		return ErrNotSchedulable
	}
	return nil
}

// Cancel moves a draft or scheduled campaign to cancelled. It returns false
// when nothing changed, which callers report as "not cancellable".
func (s *Service) Cancel(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Transition(ctx, id, domain.LaunchableStatuses, domain.CampaignCancelled)
	if err != nil {
		return false, fmt.Errorf("cancel campaign %s: %w", id, err)
	}
	if ok {
		logger.Info("[Campaign] cancelled", "campaign_id", id)
	}
	return ok, nil
}

// Launch resolves the live audience and queues one entry per recipient.
// Returns the number of entries queued.
func (s *Service) Launch(ctx context.Context, id string) (int, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if c.Status != domain.CampaignDraft && c.Status != domain.CampaignScheduled {
		return 0, ErrInvalidState
	}

	recipients, err := s.audience.ResolveRecipients(ctx, c.SegmentCriteria)
	if err != nil {
		return 0, fmt.Errorf("resolve audience for campaign %s: %w", id, err)
	}
	recipients, err = s.dropSuppressed(ctx, recipients)
	if err != nil {
		return 0, fmt.Errorf("filter audience for campaign %s: %w", id, err)
	}
	if len(recipients) == 0 {
		return 0, ErrEmptyAudience
	}

	now := s.now().UTC()
	entries := make([]domain.QueueEntry, 0, len(recipients))
	for _, r := range recipients {
		entries = append(entries, s.entryFor(c, r, now))
	}

	ok, err := s.repo.Launch(ctx, id, now, entries)
	if err != nil {
		return 0, fmt.Errorf("launch campaign %s: %w", id, err)
	}
	if !ok {
		// status changed between Get and Launch
		return 0, ErrInvalidState
	}
	logger.Info("[Campaign] launched", "campaign_id", id, "queued", len(entries))

	if s.notifier != nil {
		if err := s.notifier.NotifyBatchReady(ctx, BatchReady{CampaignID: id, Queued: len(entries), At: now}); err != nil {
			logger.Warn("[Campaign] batch-ready notification failed", "campaign_id", id, "error", err)
		}
	}
	return len(entries), nil
}

func (s *Service) entryFor(c *domain.Campaign, r domain.Recipient, now time.Time) domain.QueueEntry {
	campaignID := c.ID
	e := domain.QueueEntry{
		ID:             uuid.New().String(),
		CampaignID:     &campaignID,
		EmailType:      c.EmailType,
		RecipientEmail: r.Email,
		Subject:        c.Subject,
		TemplateID:     c.TemplateID,
		TemplateData:   c.TemplateData,
		Priority:       domain.PriorityMarketing,
		Status:         domain.QueuePending,
		ScheduledFor:   c.ScheduledFor,
		CreatedAt:      now,
	}
	if r.UserID != "" {
		uid := r.UserID
		e.UserID = &uid
	}
	return e
}

func (s *Service) dropSuppressed(ctx context.Context, rs []domain.Recipient) ([]domain.Recipient, error) {
	if s.suppression == nil || len(rs) == 0 {
		return rs, nil
	}
	emails := make([]string, len(rs))
	for i, r := range rs {
		emails[i] = r.Email
	}
	suppressed, err := s.suppression.FilterSuppressed(ctx, emails)
	if err != nil {
		return nil, err
	}
	out := rs[:0:0]
	for _, r := range rs {
		if suppressed[strings.ToLower(strings.TrimSpace(r.Email))] {
			continue
		}
		out = append(out, r)
	}
	if dropped := len(rs) - len(out); dropped > 0 {
		logger.Info("[Campaign] suppressed recipients skipped", "count", dropped)
	}
	return out, nil
}
