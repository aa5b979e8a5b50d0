package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/minhngoc/codepay-backend/internal/db"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/shopspring/decimal"
)

type customersRepo struct{ q db.Querier }

const customerCols = `id, chat_id, username, first_name, last_name, balance, is_verified, created_at, updated_at`

func scanCustomer(row pgx.Row) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.ChatID, &c.Username, &c.FirstName, &c.LastName, &c.Balance, &c.IsVerified, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Customer{}, models.ErrNotFound
	}
	return c, err
}

func (r *customersRepo) GetByID(ctx context.Context, id string) (models.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx,
		`SELECT `+customerCols+` FROM customers WHERE id=$1`, id))
}

func (r *customersRepo) GetByChatID(ctx context.Context, chatID string) (models.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx,
		`SELECT `+customerCols+` FROM customers WHERE chat_id=$1`, chatID))
}

func (r *customersRepo) Upsert(ctx context.Context, chatID string, p models.Profile) (models.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx, `
INSERT INTO customers (id, chat_id, username, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (chat_id) DO UPDATE
   SET username   = COALESCE(EXCLUDED.username, customers.username),
       first_name = COALESCE(EXCLUDED.first_name, customers.first_name),
       last_name  = COALESCE(EXCLUDED.last_name, customers.last_name),
       updated_at = now()
RETURNING `+customerCols,
		uuid.NewString(), chatID, p.Username, p.FirstName, p.LastName))
}

func (r *customersRepo) LockByID(ctx context.Context, id string) (models.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx,
		`SELECT `+customerCols+` FROM customers WHERE id=$1 FOR UPDATE`, id))
}

// AddBalance checks and mutates in one statement so there is no gap between
// the funds check and the write.
func (r *customersRepo) AddBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, `
UPDATE customers
   SET balance = balance + $2, updated_at = now()
 WHERE id = $1 AND balance + $2 >= 0
RETURNING balance`,
		id, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id=$1)`, id).Scan(&exists); err != nil {
			return decimal.Zero, err
		}
		if exists {
			return decimal.Zero, models.ErrInsufficientFunds
		}
		return decimal.Zero, models.ErrNotFound
	}
	return balance, err
}
