package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/suppression"
	"github.com/lib/pq"
)

// SuppressionRepo implements suppression.Repository against PostgreSQL.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM email_suppressions WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is suppressed: %w", err)
	}
	return exists, nil
}

// Suppress keeps the first reason recorded for an address.
func (r *SuppressionRepo) Suppress(ctx context.Context, s *domain.Suppression) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_suppressions (id, email, reason, source, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (email) DO NOTHING
	`, s.ID, s.Email, s.Reason, s.Source)
	if err != nil {
		return fmt.Errorf("suppress: %w", err)
	}
	return nil
}

func (r *SuppressionRepo) Remove(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_suppressions WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("remove suppression: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return suppression.ErrNotFound
	}
	return nil
}

func (r *SuppressionRepo) Suppressed(ctx context.Context, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT email FROM email_suppressions WHERE email = ANY($1)`,
		pq.Array(lowerAll(emails)),
	)
	if err != nil {
		return nil, fmt.Errorf("suppressed subset: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan suppressed email: %w", err)
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

func (r *SuppressionRepo) List(ctx context.Context, limit, offset int) ([]domain.Suppression, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, reason, source, created_at
		FROM email_suppressions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	out := []domain.Suppression{}
	for rows.Next() {
		var s domain.Suppression
		if err := rows.Scan(&s.ID, &s.Email, &s.Reason, &s.Source, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SuppressionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_suppressions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count suppressions: %w", err)
	}
	return n, nil
}
