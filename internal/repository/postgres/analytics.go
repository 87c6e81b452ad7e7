package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/analytics"
)

// AnalyticsRepo implements analytics.Repository.
type AnalyticsRepo struct {
	db       *sql.DB
	messages *MessageRepo
}

// NewAnalyticsRepo creates a Postgres-backed analytics repository.
func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db, messages: NewMessageRepo(db)}
}

const funnelCounts = `
	COUNT(*),
	COUNT(*) FILTER (WHERE status IN ('delivered', 'opened', 'clicked')),
	COUNT(*) FILTER (WHERE status IN ('opened', 'clicked')),
	COUNT(*) FILTER (WHERE status = 'clicked'),
	COUNT(*) FILTER (WHERE status = 'bounced')`

func (r *AnalyticsRepo) Totals(ctx context.Context, since time.Time) (analytics.Counts, error) {
	var c analytics.Counts
	err := r.db.QueryRowContext(ctx,
		`SELECT`+funnelCounts+` FROM sent_emails WHERE sent_at >= $1`, since,
	).Scan(&c.Total, &c.Delivered, &c.Opened, &c.Clicked, &c.Bounced)
	if err != nil {
		return c, fmt.Errorf("totals: %w", err)
	}
	return c, nil
}

func (r *AnalyticsRepo) TotalsByType(ctx context.Context, since time.Time) ([]analytics.TypeCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email_type,`+funnelCounts+`
		FROM sent_emails WHERE sent_at >= $1
		GROUP BY email_type ORDER BY email_type`, since)
	if err != nil {
		return nil, fmt.Errorf("totals by type: %w", err)
	}
	defer rows.Close()

	out := []analytics.TypeCounts{}
	for rows.Next() {
		var t analytics.TypeCounts
		if err := rows.Scan(&t.EmailType, &t.Total, &t.Delivered, &t.Opened, &t.Clicked, &t.Bounced); err != nil {
			return nil, fmt.Errorf("scan type totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) History(ctx context.Context, userID string, limit int) ([]domain.MessageRecord, error) {
	return r.messages.History(ctx, userID, limit)
}
