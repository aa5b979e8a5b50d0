package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/minhngoc/codepay-backend/internal/db"
	"github.com/minhngoc/codepay-backend/internal/models"
)

type adminActionsRepo struct{ q db.Querier }

func (r *adminActionsRepo) Create(ctx context.Context, a models.AdminAction) (models.AdminAction, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
INSERT INTO admin_actions (id, admin_id, transaction_id, action, note)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`,
		a.ID, a.AdminID, a.TransactionID, a.Action, a.Note).Scan(&a.CreatedAt)
	return a, err
}

func (r *adminActionsRepo) ListByTransaction(ctx context.Context, transactionID string) ([]models.AdminAction, error) {
	rows, err := r.q.Query(ctx, `
SELECT id, admin_id, transaction_id, action, note, created_at
  FROM admin_actions
 WHERE transaction_id=$1
 ORDER BY created_at ASC`,
		transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AdminAction
	for rows.Next() {
		var a models.AdminAction
		if err := rows.Scan(&a.ID, &a.AdminID, &a.TransactionID, &a.Action, &a.Note, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
