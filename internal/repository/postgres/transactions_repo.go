package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minhngoc/codepay-backend/internal/db"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
)

type transactionsRepo struct{ q db.Querier }

const txnCols = `id, customer_id, code, status, amount, tx_hash, payout_data, admin_note, created_at, paid_at, approved_at, rejected_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.CustomerID, &t.Code, &t.Status, &t.Amount, &t.TxHash, &t.PayoutData, &t.AdminNote, &t.CreatedAt, &t.PaidAt, &t.ApprovedAt, &t.RejectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, models.ErrNotFound
	}
	return t, err
}

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	txn, err := scanTxn(r.q.QueryRow(ctx, `
INSERT INTO transactions (id, customer_id, code, status, amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+txnCols,
		t.ID, t.CustomerID, t.Code, t.Status, t.Amount))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// unique index on code: lost a race with a concurrent submission
		return models.Transaction{}, models.ErrCodeInUse
	}
	return txn, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE id=$1`, id))
}

func (r *transactionsRepo) LockByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE id=$1 FOR UPDATE`, id))
}

func (r *transactionsRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *transactionsRepo) Update(ctx context.Context, t models.Transaction) error {
	tag, err := r.q.Exec(ctx, `
UPDATE transactions
   SET status=$2, tx_hash=$3, payout_data=$4, admin_note=$5,
       paid_at=$6, approved_at=$7, rejected_at=$8
 WHERE id=$1`,
		t.ID, t.Status, t.TxHash, t.PayoutData, t.AdminNote, t.PaidAt, t.ApprovedAt, t.RejectedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *transactionsRepo) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Code, &t.Status, &t.Amount, &t.TxHash, &t.PayoutData, &t.AdminNote, &t.CreatedAt, &t.PaidAt, &t.ApprovedAt, &t.RejectedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.Transaction, error) {
	return r.list(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE customer_id=$1 ORDER BY created_at DESC LIMIT $2`,
		customerID, limit)
}

func (r *transactionsRepo) ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	return r.list(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE status=$1 ORDER BY created_at ASC LIMIT $2`,
		status, limit)
}

func (r *transactionsRepo) Stats(ctx context.Context, customerID, excludeID string) (repository.CustomerStats, error) {
	var s repository.CustomerStats
	err := r.q.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE status = 'approved'),
       count(*) FILTER (WHERE status = 'rejected'),
       count(*) FILTER (WHERE status IN ('pending','payment_required','payment_confirmed','admin_review') AND id::text <> $2),
       max(rejected_at) FILTER (WHERE status = 'rejected')
  FROM transactions
 WHERE customer_id = $1`,
		customerID, excludeID).Scan(&s.TotalCount, &s.ApprovedCount, &s.RejectedCount, &s.OpenCount, &s.LastRejectedAt)
	return s, err
}

func (r *transactionsRepo) Summary(ctx context.Context, dayStart, activeSince time.Time) (repository.Summary, error) {
	var s repository.Summary
	err := r.q.QueryRow(ctx, `
SELECT count(*) FILTER (WHERE created_at >= $1),
       COALESCE(sum(amount) FILTER (WHERE status = 'approved' AND approved_at >= $1), 0),
       count(*) FILTER (WHERE status = 'admin_review'),
       count(DISTINCT customer_id) FILTER (WHERE created_at >= $2)
  FROM transactions`,
		dayStart, activeSince).Scan(&s.TodayCount, &s.TodayRevenue, &s.PendingReview, &s.ActiveCustomers)
	return s, err
}
