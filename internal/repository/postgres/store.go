package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minhngoc/codepay-backend/internal/db"
	"github.com/minhngoc/codepay-backend/internal/repository"
)

// Store is the pgx-backed repository.Store. The zero pool means the store
// is already scoped to a transaction and WithTx joins it.
type Store struct {
	pool *pgxpool.Pool
	q    db.Querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Customers() repository.Customers       { return &customersRepo{q: s.q} }
func (s *Store) Transactions() repository.Transactions { return &transactionsRepo{q: s.q} }
func (s *Store) Payments() repository.Payments         { return &paymentsRepo{q: s.q} }
func (s *Store) AdminActions() repository.AdminActions { return &adminActionsRepo{q: s.q} }

// WithTx runs fn against a tx-scoped store. Row locks taken inside fn are
// held until commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
