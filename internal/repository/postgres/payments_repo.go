package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/minhngoc/codepay-backend/internal/db"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/shopspring/decimal"
)

type paymentsRepo struct{ q db.Querier }

const paymentCols = `id, customer_id, transaction_id, address, amount, tx_hash, status, created_at, confirmed_at`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.CustomerID, &p.TransactionID, &p.Address, &p.Amount, &p.TxHash, &p.Status, &p.CreatedAt, &p.ConfirmedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Payment{}, models.ErrNotFound
	}
	return p, err
}

func (r *paymentsRepo) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	return scanPayment(r.q.QueryRow(ctx, `
INSERT INTO payments (id, customer_id, transaction_id, address, amount, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+paymentCols,
		p.ID, p.CustomerID, p.TransactionID, p.Address, p.Amount, p.Status))
}

func (r *paymentsRepo) LockByID(ctx context.Context, id string) (models.Payment, error) {
	return scanPayment(r.q.QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE id=$1 FOR UPDATE`, id))
}

func (r *paymentsRepo) LockPendingByAddress(ctx context.Context, address string, amount decimal.Decimal) (models.Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, `
SELECT `+paymentCols+`
  FROM payments
 WHERE address=$1 AND status='pending' AND amount=$2
 ORDER BY created_at ASC
 LIMIT 1
 FOR UPDATE`,
		address, amount))
}

func (r *paymentsRepo) MarkConfirmed(ctx context.Context, id, txHash string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE payments SET status='confirmed', tx_hash=$2, confirmed_at=$3 WHERE id=$1 AND status='pending'`,
		id, txHash, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyProcessed
	}
	return nil
}

func (r *paymentsRepo) MarkFailed(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE payments SET status='failed' WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyProcessed
	}
	return nil
}

func (r *paymentsRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC`,
		cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.TransactionID, &p.Address, &p.Amount, &p.TxHash, &p.Status, &p.CreatedAt, &p.ConfirmedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
