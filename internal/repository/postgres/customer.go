package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/preferences"
	"github.com/lib/pq"
)

// CustomerRepo reads and writes the email_preferences JSONB column on
// customers. It implements preferences.Repository and
// segmentation.Repository.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// decodePreferences overlays stored flags on the defaults, so a NULL column
// or a missing key reads as its default.
func decodePreferences(raw []byte) (domain.EmailPreferences, error) {
	p := domain.DefaultPreferences()
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode email_preferences: %w", err)
	}
	return p, nil
}

func (r *CustomerRepo) getProfile(ctx context.Context, where string, arg string) (*domain.Profile, error) {
	var (
		p   domain.Profile
		raw []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, email_preferences FROM customers WHERE `+where, arg,
	).Scan(&p.UserID, &p.Email, &raw)
	if err == sql.ErrNoRows {
		return nil, preferences.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p.Preferences, err = decodePreferences(raw); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CustomerRepo) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.getProfile(ctx, `id = $1`, userID)
}

func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.getProfile(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *CustomerRepo) Save(ctx context.Context, userID string, prefs domain.EmailPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode email_preferences: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers SET email_preferences = $2 WHERE id = $1`, userID, raw)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return preferences.ErrNotFound
	}
	return nil
}

func (r *CustomerRepo) AllWithPreferences(ctx context.Context) ([]domain.Recipient, error) {
	return r.recipients(ctx, `
		SELECT id, email FROM customers
		WHERE email_preferences IS NOT NULL
		ORDER BY id`)
}

// ByAnyCategory matches when any requested key is true in the stored JSON.
func (r *CustomerRepo) ByAnyCategory(ctx context.Context, cats []domain.Category) ([]domain.Recipient, error) {
	return r.recipients(ctx, `
		SELECT id, email FROM customers
		WHERE email_preferences IS NOT NULL
		  AND EXISTS (
		      SELECT 1 FROM unnest($1::text[]) AS c(key)
		      WHERE (email_preferences ->> c.key)::boolean
		  )
		ORDER BY id`, pq.Array(toStrings(cats)))
}

func (r *CustomerRepo) CountAllWithPreferences(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers WHERE email_preferences IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audience: %w", err)
	}
	return n, nil
}

func (r *CustomerRepo) CountByAnyCategory(ctx context.Context, cats []domain.Category) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM customers
		WHERE email_preferences IS NOT NULL
		  AND EXISTS (
		      SELECT 1 FROM unnest($1::text[]) AS c(key)
		      WHERE (email_preferences ->> c.key)::boolean
		  )`, pq.Array(toStrings(cats))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audience: %w", err)
	}
	return n, nil
}

func (r *CustomerRepo) recipients(ctx context.Context, q string, args ...any) ([]domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}
	defer rows.Close()

	out := []domain.Recipient{}
	for rows.Next() {
		var rc domain.Recipient
		if err := rows.Scan(&rc.UserID, &rc.Email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
