package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/lib/pq"
)

// MessageRepo implements webhook.Repository and transactional.MessageRecorder
// over sent_emails.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed sent_emails repository.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMessage(ctx context.Context, ex execer, rec *domain.MessageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO sent_emails
			(id, email_id, email_type, user_id, recipient_email, subject, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.EmailID, rec.EmailType, nullString(rec.UserID), rec.RecipientEmail,
		rec.Subject, rec.Status, rec.SentAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert message %s: %w", rec.EmailID, domain.ErrConflict)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) Insert(ctx context.Context, rec *domain.MessageRecord) error {
	return insertMessage(ctx, r.db, rec)
}

// Apply moves status forward only from one of upd.AllowedFrom() and fills
// each timestamp only while it is still NULL.
func (r *MessageRepo) Apply(ctx context.Context, emailID string, upd domain.MessageUpdate) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sent_emails SET
			status        = CASE WHEN status = ANY($3) THEN $2 ELSE status END,
			delivered_at  = COALESCE(delivered_at, $4),
			opened_at     = COALESCE(opened_at, $5),
			clicked_at    = COALESCE(clicked_at, $6),
			error_message = COALESCE($7, error_message)
		WHERE email_id = $1
	`, emailID, upd.Status, pq.Array(toStrings(upd.AllowedFrom())),
		upd.DeliveredAt, upd.OpenedAt, upd.ClickedAt, nullString(upd.ErrorMessage))
	if err != nil {
		return false, fmt.Errorf("apply %s: %w", upd.Status, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// History returns a user's most recent records.
func (r *MessageRepo) History(ctx context.Context, userID string, limit int) ([]domain.MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email_id, email_type, user_id, recipient_email, subject, status,
		       sent_at, delivered_at, opened_at, clicked_at, error_message
		FROM sent_emails
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("message history: %w", err)
	}
	defer rows.Close()

	out := []domain.MessageRecord{}
	for rows.Next() {
		var (
			m                    domain.MessageRecord
			uid, errMsg          sql.NullString
			delivered, op, click sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.EmailID, &m.EmailType, &uid, &m.RecipientEmail, &m.Subject,
			&m.Status, &m.SentAt, &delivered, &op, &click, &errMsg); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.UserID = stringPtr(uid)
		m.DeliveredAt = timePtr(delivered)
		m.OpenedAt = timePtr(op)
		m.ClickedAt = timePtr(click)
		m.ErrorMessage = stringPtr(errMsg)
		out = append(out, m)
	}
	return out, rows.Err()
}

// lowerAll normalizes addresses for case-insensitive lookups.
func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
