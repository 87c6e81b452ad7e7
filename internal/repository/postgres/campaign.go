package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/lib/pq"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, name, email_type, subject, template_id, template_data,
	segment_criteria, status, scheduled_for, sent_at, recipient_count,
	created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var (
		c              domain.Campaign
		data, criteria []byte
		sentAt         sql.NullTime
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.EmailType, &c.Subject, &c.TemplateID, &data,
		&criteria, &c.Status, &c.ScheduledFor, &sentAt, &c.RecipientCount,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.TemplateData); err != nil {
			return nil, fmt.Errorf("decode template_data: %w", err)
		}
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &c.SegmentCriteria); err != nil {
			return nil, fmt.Errorf("decode segment_criteria: %w", err)
		}
	}
	c.SentAt = timePtr(sentAt)
	return &c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, campaign.ErrNotFound
	}
	c, err := scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM email_campaigns WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM email_campaigns`
	var args []any
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY scheduled_for ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	data, err := jsonb(c.TemplateData)
	if err != nil {
		return fmt.Errorf("encode template_data: %w", err)
	}
	criteria, err := jsonb(c.SegmentCriteria)
	if err != nil {
		return fmt.Errorf("encode segment_criteria: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_campaigns
			(id, name, email_type, subject, template_id, template_data,
			 segment_criteria, status, scheduled_for, recipient_count,
			 created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.Name, c.EmailType, c.Subject, c.TemplateID, data,
		criteria, c.Status, c.ScheduledFor, c.RecipientCount,
		c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create campaign: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Transition(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, to, pq.Array(toStrings(from)))
	if err != nil {
		return false, fmt.Errorf("transition campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Launch flips the campaign to sent and bulk-copies its queue entries in
// one transaction. The status guard makes a second launch a no-op.
func (r *CampaignRepo) Launch(ctx context.Context, id string, sentAt time.Time, entries []domain.QueueEntry) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin launch: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = 'sent', sent_at = $2, recipient_count = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
	`, id, sentAt, len(entries), pq.Array(toStrings(domain.LaunchableStatuses)))
	if err != nil {
		return false, fmt.Errorf("mark campaign sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, nil
	}

	if err := copyQueueEntries(ctx, tx, entries); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit launch: %w", err)
	}
	return true, nil
}

func copyQueueEntries(ctx context.Context, tx *sql.Tx, entries []domain.QueueEntry) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("email_queue",
		"id", "campaign_id", "email_type", "recipient_email", "user_id", "subject",
		"template_id", "template_data", "priority", "status", "scheduled_for", "created_at"))
	if err != nil {
		return fmt.Errorf("prepare queue copy: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		data, err := jsonb(e.TemplateData)
		if err != nil {
			return fmt.Errorf("encode template_data: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, nullString(e.CampaignID), e.EmailType, e.RecipientEmail, nullString(e.UserID), e.Subject,
			e.TemplateID, string(data), e.Priority, string(e.Status), e.ScheduledFor, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("copy queue entry: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush queue copy: %w", err)
	}
	return nil
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
