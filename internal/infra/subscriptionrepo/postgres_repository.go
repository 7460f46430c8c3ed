package subscriptionrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/meteo-burkina/internal/domain/payment"
	"github.com/yanqian/meteo-burkina/internal/domain/plan"
)

const columns = `id, user_id, plan_id, tier, invoice_token, amount, status, starts_at, expires_at, created_at, updated_at`

// PostgresRepository persists subscriptions in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a subscription row.
func (r *PostgresRepository) Create(ctx context.Context, sub payment.Subscription) (payment.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, tier, invoice_token, amount, status, starts_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+columns,
		sub.ID, sub.UserID, sub.PlanID, string(sub.Tier), sub.InvoiceToken, sub.Amount, string(sub.Status),
		sub.StartsAt, sub.ExpiresAt, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC())
	return scanSubscription(row)
}

// GetByInvoiceToken finds the subscription opened for a checkout invoice.
func (r *PostgresRepository) GetByInvoiceToken(ctx context.Context, token string) (payment.Subscription, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM subscriptions WHERE invoice_token = $1`, token)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return payment.Subscription{}, false, nil
	}
	if err != nil {
		return payment.Subscription{}, false, err
	}
	return sub, true, nil
}

// Transition writes the mutable subscription fields when the stored status
// is still from.
func (r *PostgresRepository) Transition(ctx context.Context, sub payment.Subscription, from payment.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, starts_at = $3, expires_at = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`, sub.ID, string(sub.Status), sub.StartsAt, sub.ExpiresAt, sub.UpdatedAt.UTC(), string(from))
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, sub.ID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, payment.ErrSubscriptionNotFound
	}
	return false, nil
}

// ListByUser returns the user's subscriptions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]payment.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]payment.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (payment.Subscription, error) {
	var (
		sub     payment.Subscription
		tier    string
		status  string
		starts  *time.Time
		expires *time.Time
	)
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&tier,
		&sub.InvoiceToken,
		&sub.Amount,
		&status,
		&starts,
		&expires,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return payment.Subscription{}, err
	}
	sub.Tier = plan.Tier(tier)
	sub.Status = payment.Status(status)
	sub.StartsAt = utc(starts)
	sub.ExpiresAt = utc(expires)
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return sub, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

var _ payment.Repository = (*PostgresRepository)(nil)
