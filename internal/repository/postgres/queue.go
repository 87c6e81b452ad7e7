package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/lib/pq"
)

// QueueRepo implements queue.Repository against PostgreSQL.
type QueueRepo struct{ db *sql.DB }

// NewQueueRepo creates a Postgres-backed queue repository.
func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{db: db} }

// Claim uses FOR UPDATE SKIP LOCKED so concurrent processors never claim
// the same row; the outer status guard covers any row that changed between
// the select and the update.
func (r *QueueRepo) Claim(ctx context.Context, limit int, now time.Time) ([]domain.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH next AS (
			SELECT id FROM email_queue
			WHERE status = 'pending' AND scheduled_for <= $2
			ORDER BY priority ASC, scheduled_for ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE email_queue q SET status = 'processing', claimed_at = $2
		FROM next
		WHERE q.id = next.id AND q.status = 'pending'
		RETURNING q.id, q.campaign_id, q.email_type, q.recipient_email, q.user_id,
		          q.subject, q.template_id, q.template_data, q.priority, q.status,
		          q.scheduled_for, q.created_at
	`, limit, now)
	if err != nil {
		return nil, fmt.Errorf("claim queue entries: %w", err)
	}
	defer rows.Close()

	var out []domain.QueueEntry
	for rows.Next() {
		var (
			e                  domain.QueueEntry
			campaignID, userID sql.NullString
			data               []byte
		)
		if err := rows.Scan(
			&e.ID, &campaignID, &e.EmailType, &e.RecipientEmail, &userID,
			&e.Subject, &e.TemplateID, &data, &e.Priority, &e.Status,
			&e.ScheduledFor, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.TemplateData); err != nil {
				return nil, fmt.Errorf("decode template_data for %s: %w", e.ID, err)
			}
		}
		e.CampaignID = stringPtr(campaignID)
		e.UserID = stringPtr(userID)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkSent settles the queue row before recording the message, so a failed
// insert never leaves a delivered entry in processing.
func (r *QueueRepo) MarkSent(ctx context.Context, entryID string, rec *domain.MessageRecord) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE email_queue SET status = 'sent', processed_at = $2, error_message = NULL
		WHERE id = $1
	`, entryID, rec.SentAt); err != nil {
		return fmt.Errorf("mark entry sent: %w", err)
	}
	if err := insertMessage(ctx, r.db, rec); err != nil {
		return fmt.Errorf("entry %s sent, record not stored: %w", entryID, err)
	}
	return nil
}

func (r *QueueRepo) MarkFailed(ctx context.Context, entryID, reason string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_queue SET status = 'failed', processed_at = $2, error_message = $3
		WHERE id = $1
	`, entryID, at, reason)
	if err != nil {
		return fmt.Errorf("mark entry failed: %w", err)
	}
	return nil
}

func (r *QueueRepo) Release(ctx context.Context, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_queue SET status = 'pending', claimed_at = NULL
		WHERE id = ANY($1) AND status = 'processing'
	`, pq.Array(entryIDs))
	if err != nil {
		return fmt.Errorf("release entries: %w", err)
	}
	return nil
}

// FailStale moves entries claimed before staleBefore to failed. They are
// not returned to pending: the provider may already have accepted them.
func (r *QueueRepo) FailStale(ctx context.Context, staleBefore time.Time, reason string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_queue SET status = 'failed', processed_at = $3, error_message = $2
		WHERE status = 'processing' AND claimed_at < $1
	`, staleBefore, reason, at)
	if err != nil {
		return 0, fmt.Errorf("fail stale claims: %w", err)
	}
	return res.RowsAffected()
}

func (r *QueueRepo) Stats(ctx context.Context) (domain.QueueStats, error) {
	var s domain.QueueStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM email_queue
	`).Scan(&s.Pending, &s.Processing, &s.Sent, &s.Failed)
	if err != nil {
		return s, fmt.Errorf("queue stats: %w", err)
	}
	return s, nil
}

func (r *QueueRepo) Insert(ctx context.Context, e *domain.QueueEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	data, err := jsonb(e.TemplateData)
	if err != nil {
		return fmt.Errorf("encode template_data: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_queue
			(id, campaign_id, email_type, recipient_email, user_id, subject,
			 template_id, template_data, priority, status, scheduled_for, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, e.ID, nullString(e.CampaignID), e.EmailType, e.RecipientEmail, nullString(e.UserID), e.Subject,
		e.TemplateID, data, e.Priority, e.Status, e.ScheduledFor, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}
