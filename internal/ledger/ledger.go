// Package ledger owns customer balance mutation. Callers run Credit and
// Debit against a tx-scoped store so the funds check, the write and the
// surrounding status transition commit as one unit.
package ledger

import (
	"context"
	"errors"

	"github.com/minhngoc/codepay-backend/internal/repository"
	"github.com/shopspring/decimal"
)

var errNonPositiveAmount = errors.New("ledger: amount must be positive")

// Credit adds amount to the customer's balance and returns the new balance.
func Credit(ctx context.Context, s repository.Store, customerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errNonPositiveAmount
	}
	return s.Customers().AddBalance(ctx, customerID, amount)
}

// Debit subtracts amount from the customer's balance. The check and the
// mutation happen in the same statement; a shortfall at evaluation time
// returns models.ErrInsufficientFunds and leaves the balance untouched.
func Debit(ctx context.Context, s repository.Store, customerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errNonPositiveAmount
	}
	return s.Customers().AddBalance(ctx, customerID, amount.Neg())
}
