package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
)

// TokenRepo implements unsubscribe.Repository against PostgreSQL.
type TokenRepo struct{ db *sql.DB }

// NewTokenRepo creates a Postgres-backed unsubscribe token repository.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) Insert(ctx context.Context, t *domain.UnsubscribeToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO unsubscribe_tokens (token, email, token_type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.Token, t.Email, t.TokenType, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert token: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *TokenRepo) FindValid(ctx context.Context, token string, now time.Time) (*domain.UnsubscribeToken, error) {
	t := &domain.UnsubscribeToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT token, email, token_type, expires_at, created_at
		FROM unsubscribe_tokens
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2
	`, token, now).Scan(&t.Token, &t.Email, &t.TokenType, &t.ExpiresAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return t, nil
}

// MarkUsed is the single-use guard: of two concurrent callers only one
// sees a changed row.
func (r *TokenRepo) MarkUsed(ctx context.Context, token string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE unsubscribe_tokens SET used_at = $2
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2
	`, token, now)
	if err != nil {
		return false, fmt.Errorf("mark token used: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM unsubscribe_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
