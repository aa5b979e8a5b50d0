package repository

import (
	"context"
	"time"

	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/shopspring/decimal"
)

type Customers interface {
	GetByID(ctx context.Context, id string) (models.Customer, error)
	GetByChatID(ctx context.Context, chatID string) (models.Customer, error)
	// Upsert creates the customer on first contact and refreshes profile
	// fields on every later one.
	Upsert(ctx context.Context, chatID string, p models.Profile) (models.Customer, error)
	// LockByID acquires a row lock; only meaningful inside WithTx.
	LockByID(ctx context.Context, id string) (models.Customer, error)
	// AddBalance applies a signed delta atomically. A delta that would take
	// the balance negative returns models.ErrInsufficientFunds.
	AddBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
}

// CustomerStats is the history snapshot fed to the auto-approval policy
// and the admin approval-request message.
type CustomerStats struct {
	TotalCount     int
	ApprovedCount  int
	RejectedCount  int
	OpenCount      int
	LastRejectedAt *time.Time
}

// Summary backs the admin /stats command.
type Summary struct {
	TodayCount      int
	TodayRevenue    decimal.Decimal
	PendingReview   int
	ActiveCustomers int
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	LockByID(ctx context.Context, id string) (models.Transaction, error)
	// CodeExists reports whether any transaction, open or terminal, has
	// claimed the code.
	CodeExists(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, t models.Transaction) error
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.Transaction, error)
	ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error)
	// Stats aggregates a customer's history; excludeID leaves one
	// transaction out of the open count.
	Stats(ctx context.Context, customerID, excludeID string) (CustomerStats, error)
	Summary(ctx context.Context, dayStart, activeSince time.Time) (Summary, error)
}

type Payments interface {
	Create(ctx context.Context, p models.Payment) (models.Payment, error)
	LockByID(ctx context.Context, id string) (models.Payment, error)
	// LockPendingByAddress matches a callback without an explicit payment
	// reference: pending payment to the address for the exact quoted amount.
	LockPendingByAddress(ctx context.Context, address string, amount decimal.Decimal) (models.Payment, error)
	MarkConfirmed(ctx context.Context, id, txHash string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Payment, error)
}

type AdminActions interface {
	Create(ctx context.Context, a models.AdminAction) (models.AdminAction, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]models.AdminAction, error)
}

// Store bundles the repositories with the transactional unit of work.
// WithTx hands the callback a tx-scoped Store; every state transition runs
// through it so the row locks and the commit share one scope.
type Store interface {
	Customers() Customers
	Transactions() Transactions
	Payments() Payments
	AdminActions() AdminActions
	WithTx(ctx context.Context, fn func(Store) error) error
}
