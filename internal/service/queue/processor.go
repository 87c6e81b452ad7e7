package queue

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/mailing"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/sending"
	"golang.org/x/time/rate"
)

// maxErrorLen bounds the error text stored on a failed entry.
const maxErrorLen = 1000

// StaleClaimReason is stored on entries FailStale gives up on.
const StaleClaimReason = "stale claim: processing did not finish"

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Option configures a Processor.
type Option func(*Processor)

// WithPacer limits the send rate across a batch.
func WithPacer(l *rate.Limiter) Option {
	return func(p *Processor) { p.pacer = l }
}

// WithUnsubscribeLinks adds an unsubscribe_url to the template data of
// campaign entries and a List-Unsubscribe header to the message.
func WithUnsubscribeLinks(issuer TokenIssuer, baseURL string) Option {
	return func(p *Processor) {
		p.tokens = issuer
		p.baseURL = baseURL
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// Processor drains the send queue.
type Processor struct {
	repo     Repository
	renderer sending.Renderer
	sender   sending.Sender
	pacer    *rate.Limiter
	tokens   TokenIssuer
	baseURL  string
	now      func() time.Time
}

// NewProcessor creates a queue processor.
func NewProcessor(repo Repository, renderer sending.Renderer, sender sending.Sender, opts ...Option) *Processor {
	p := &Processor{repo: repo, renderer: renderer, sender: sender, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessBatch claims up to batchSize due entries and sends them in
// (priority, scheduled_for) order.
func (p *Processor) ProcessBatch(ctx context.Context, batchSize int) (BatchResult, error) {
	var res BatchResult
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return res, ErrInvalidBatchSize
	}

	entries, err := p.repo.Claim(ctx, batchSize, p.now().UTC())
	if err != nil {
		return res, fmt.Errorf("claim queue entries: %w", err)
	}
	if len(entries) == 0 {
		return res, nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].ScheduledFor.Before(entries[j].ScheduledFor)
	})

	start := time.Now()
	for i := range entries {
		if p.pacer != nil {
			if err := p.pacer.Wait(ctx); err != nil {
				p.release(ctx, entries[i:])
				logger.Warn("[QueueProcessor] batch interrupted", "attempted", res.Attempted, "released", len(entries)-i, "error", err)
				return res, nil
			}
		}
		if ctx.Err() != nil {
			p.release(ctx, entries[i:])
			logger.Warn("[QueueProcessor] batch interrupted", "attempted", res.Attempted, "released", len(entries)-i, "error", ctx.Err())
			return res, nil
		}

		res.Attempted++
		if p.deliver(ctx, &entries[i]) {
			res.Sent++
		} else {
			res.Failed++
		}
	}

	logger.Info("[QueueProcessor] batch complete",
		"attempted", res.Attempted, "sent", res.Sent, "failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// deliver renders and sends one entry and records the outcome. It reports
// whether the provider accepted the message.
func (p *Processor) deliver(ctx context.Context, e *domain.QueueEntry) bool {
	msg, err := p.compose(ctx, e)
	if err != nil {
		p.fail(ctx, e, fmt.Errorf("render: %w", err))
		return false
	}

	providerID, err := p.sender.Send(ctx, msg)
	if err != nil {
		p.fail(ctx, e, err)
		return false
	}

	now := p.now().UTC()
	recID := uuid.New().String()
	if providerID == "" {
		logger.Warn("[QueueProcessor] provider returned no message id", "entry_id", e.ID)
		providerID = "local-" + recID
	}
	rec := &domain.MessageRecord{
		ID:             recID,
		EmailID:        providerID,
		EmailType:      e.EmailType,
		UserID:         e.UserID,
		RecipientEmail: e.RecipientEmail,
		Subject:        e.Subject,
		Status:         domain.MessageSent,
		SentAt:         now,
	}
	if err := p.repo.MarkSent(ctx, e.ID, rec); err != nil {
		// The provider already has the message; only bookkeeping failed.
		logger.Error("[QueueProcessor] failed to record sent entry",
			"entry_id", e.ID, "provider_id", providerID, "error", err)
	}
	return true
}

func (p *Processor) compose(ctx context.Context, e *domain.QueueEntry) (*domain.EmailMessage, error) {
	data := make(map[string]any, len(e.TemplateData)+3)
	for k, v := range e.TemplateData {
		data[k] = v
	}
	data["email"] = e.RecipientEmail
	data["subject"] = e.Subject

	msg := &domain.EmailMessage{To: e.RecipientEmail, Subject: e.Subject, Tag: e.EmailType}
	if link := p.unsubscribeLink(ctx, e); link != "" {
		data["unsubscribe_url"] = link
		msg.Headers = map[string]string{
			"List-Unsubscribe":      "<" + link + ">",
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		}
	}

	html, err := p.renderer.Render(e.TemplateID, data)
	if err != nil {
		return nil, err
	}
	msg.HTML = html
	return msg, nil
}

// unsubscribeLink issues a marketing token for campaign entries. Issue
// failures are logged and the message goes out without a link.
func (p *Processor) unsubscribeLink(ctx context.Context, e *domain.QueueEntry) string {
	if p.tokens == nil || e.CampaignID == nil {
		return ""
	}
	tok, err := p.tokens.Issue(ctx, e.RecipientEmail, domain.TokenMarketing)
	if err != nil {
		logger.Warn("[QueueProcessor] unsubscribe token not issued", "entry_id", e.ID, "error", err)
		return ""
	}
	return mailing.UnsubscribeURL(p.baseURL, tok.TokenType, tok.Token)
}

func (p *Processor) fail(ctx context.Context, e *domain.QueueEntry, cause error) {
	reason := truncate(cause.Error(), maxErrorLen)
	logger.Warn("[QueueProcessor] send failed", "entry_id", e.ID, "email", e.RecipientEmail, "error", reason)
	if err := p.repo.MarkFailed(ctx, e.ID, reason, p.now().UTC()); err != nil {
		logger.Error("[QueueProcessor] failed to record failure", "entry_id", e.ID, "error", err)
	}
}

func (p *Processor) release(ctx context.Context, rest []domain.QueueEntry) {
	ids := make([]string, len(rest))
	for i, e := range rest {
		ids[i] = e.ID
	}
	if err := p.repo.Release(context.WithoutCancel(ctx), ids); err != nil {
		logger.Error("[QueueProcessor] failed to release claimed entries", "count", len(ids), "error", err)
	}
}

// truncate cuts s to at most n bytes without splitting a rune and drops any
// invalid UTF-8, which TEXT columns reject.
func truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.ToValidUTF8(s, "")
}

// RecoverStale fails entries left in processing for longer than staleAge,
// e.g. after a worker crash between claim and send.
func (p *Processor) RecoverStale(ctx context.Context, staleAge time.Duration) (int64, error) {
	now := p.now().UTC()
	n, err := p.repo.FailStale(ctx, now.Add(-staleAge), StaleClaimReason, now)
	if err != nil {
		return 0, fmt.Errorf("recover stale claims: %w", err)
	}
	if n > 0 {
		logger.Warn("[QueueProcessor] failed stale claims", "count", n, "stale_age", staleAge.String())
	}
	return n, nil
}

// Stats returns per-status queue counts.
func (p *Processor) Stats(ctx context.Context) (domain.QueueStats, error) {
	s, err := p.repo.Stats(ctx)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	return s, nil
}

// EnqueueInput describes a directly enqueued message.
type EnqueueInput struct {
	EmailType      string         `json:"email_type"`
	RecipientEmail string         `json:"recipient_email"`
	UserID         string         `json:"user_id,omitempty"`
	Subject        string         `json:"subject"`
	TemplateID     string         `json:"template_id"`
	TemplateData   map[string]any `json:"template_data,omitempty"`
	Priority       int            `json:"priority,omitempty"`
	ScheduledFor   *time.Time     `json:"scheduled_for,omitempty"`
}

// Enqueue adds one entry. Priority defaults to the transactional tier and
// scheduled_for to now.
func (p *Processor) Enqueue(ctx context.Context, in EnqueueInput) (*domain.QueueEntry, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.RecipientEmail))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	switch {
	case strings.TrimSpace(in.Subject) == "":
		return nil, ErrSubjectMissing
	case strings.TrimSpace(in.TemplateID) == "":
		return nil, ErrTemplateMissing
	}

	now := p.now().UTC()
	e := &domain.QueueEntry{
		ID:             uuid.New().String(),
		EmailType:      in.EmailType,
		RecipientEmail: addr.Address,
		Subject:        in.Subject,
		TemplateID:     in.TemplateID,
		TemplateData:   in.TemplateData,
		Priority:       in.Priority,
		Status:         domain.QueuePending,
		ScheduledFor:   now,
		CreatedAt:      now,
	}
	if e.Priority <= 0 {
		e.Priority = domain.PriorityTransactional
	}
	if e.EmailType == "" {
		e.EmailType = "transactional"
	}
	if in.ScheduledFor != nil {
		e.ScheduledFor = in.ScheduledFor.UTC()
	}
	if in.UserID != "" {
		uid := in.UserID
		e.UserID = &uid
	}
	if e.TemplateData == nil {
		e.TemplateData = map[string]any{}
	}

	if err := p.repo.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", e.ID, err)
	}
	return e, nil
}
