package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// OrderRepo annotates storefront orders with the confirmation email result.
type OrderRepo struct{ db *sql.DB }

// NewOrderRepo creates a Postgres-backed order annotator.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// MarkEmailResult is a no-op for unknown orders.
func (r *OrderRepo) MarkEmailResult(ctx context.Context, orderID string, sent bool, reason *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET email_sent = $2, email_error = $3 WHERE id = $1`,
		orderID, sent, nullString(reason))
	if err != nil {
		return fmt.Errorf("annotate order %s: %w", orderID, err)
	}
	return nil
}
