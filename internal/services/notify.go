package services

import (
	"context"
	"time"

	"github.com/minhngoc/codepay-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// StatusKind names the transaction-status messages sent to customers.
type StatusKind string

const (
	StatusPaymentConfirmed StatusKind = "payment_confirmed"
	StatusApproved         StatusKind = "approved"
	StatusRejected         StatusKind = "rejected"
	StatusAutoApproved     StatusKind = "auto_approved"
)

// StatusUpdate carries the fields a status message may render. Unused
// fields are left zero.
type StatusUpdate struct {
	Code       string
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	TxHash     string
	PayoutData string
	At         time.Time
}

// ApprovalRequest is the payload for the admin review message with the
// inline approve/reject affordance.
type ApprovalRequest struct {
	TransactionID string
	Code          string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	Username      string
	FirstName     string
	CreatedAt     time.Time
	Stats         repository.CustomerStats
}

// Notifier is the outbound chat collaborator. Calls are made only after
// the transactional unit commits, and a failed send never rolls a
// transition back.
type Notifier interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendPaymentRequest(ctx context.Context, chatID string, amount decimal.Decimal, address string) error
	SendStatusUpdate(ctx context.Context, chatID string, kind StatusKind, u StatusUpdate) error
	// SendApprovalRequest returns an opaque reference usable to later edit
	// the message once the decision lands.
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) (string, error)
	NotifyAdmin(ctx context.Context, text string) error
}

// PaymentQuote is what the gateway collaborator returns for a new payment
// request.
type PaymentQuote struct {
	Address string
	Amount  decimal.Decimal
}

// PaymentGateway quotes a destination for an outstanding transaction.
type PaymentGateway interface {
	CreatePaymentRequest(ctx context.Context, orderID string, amount decimal.Decimal) (PaymentQuote, error)
}

// notifyTimeout bounds worker-dispatched collaborator calls; the driving
// request has usually completed by the time they run.
const notifyTimeout = 15 * time.Second

func notifyCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), notifyTimeout)
}
