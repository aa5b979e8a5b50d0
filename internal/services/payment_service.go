package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhngoc/codepay-backend/internal/ledger"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
	"github.com/minhngoc/codepay-backend/internal/worker"
	"github.com/shopspring/decimal"
)

// PaymentService applies gateway callbacks to payments and the ledger.
// The gateway delivers at least once; confirmation is idempotent because
// the payment row is locked and its status checked before any side effect.
type PaymentService struct {
	store     repository.Store
	notifier  Notifier
	wp        *worker.Pool
	tolerance decimal.Decimal
}

func NewPaymentService(store repository.Store, n Notifier, wp *worker.Pool, tolerance decimal.Decimal) *PaymentService {
	return &PaymentService{store: store, notifier: n, wp: wp, tolerance: tolerance}
}

// PaymentCallback is the authenticated gateway event after decoding.
type PaymentCallback struct {
	PaymentID string
	Address   string
	Amount    decimal.Decimal
	TxHash    string
	Status    string
}

// ConfirmResult reports what a callback did.
type ConfirmResult struct {
	Payment     models.Payment
	Transaction *models.Transaction
	Customer    models.Customer
	Duplicate   bool
	Ignored     bool
}

func confirmedStatus(status string) bool {
	switch status {
	case "confirmed", "completed", "success":
		return true
	}
	return false
}

// Confirm processes a payment callback. Within one transactional unit it
// locks the payment, verifies the amount within tolerance, credits the
// customer and moves the linked transaction payment_confirmed →
// admin_review. Re-delivery of an already-confirmed payment is a no-op.
// Lock order is payment, transaction, customer everywhere.
func (s *PaymentService) Confirm(ctx context.Context, cb PaymentCallback) (ConfirmResult, error) {
	if !confirmedStatus(cb.Status) {
		slog.Info("payment callback ignored", "status", cb.Status, "tx_hash", cb.TxHash)
		return ConfirmResult{Ignored: true}, nil
	}

	var res ConfirmResult
	err := s.store.WithTx(ctx, func(ts repository.Store) error {
		var payment models.Payment
		var err error
		if cb.PaymentID != "" {
			payment, err = ts.Payments().LockByID(ctx, cb.PaymentID)
		} else {
			payment, err = ts.Payments().LockPendingByAddress(ctx, cb.Address, cb.Amount)
		}
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentPending {
			res.Payment = payment
			return models.ErrAlreadyProcessed
		}
		if payment.Amount.Sub(cb.Amount).Abs().GreaterThan(s.tolerance) {
			return models.ErrAmountMismatch
		}

		now := time.Now()
		if err := ts.Payments().MarkConfirmed(ctx, payment.ID, cb.TxHash, now); err != nil {
			return err
		}
		payment.Status = models.PaymentConfirmed
		payment.TxHash = &cb.TxHash
		payment.ConfirmedAt = &now

		if payment.TransactionID != nil {
			txn, err := ts.Transactions().LockByID(ctx, *payment.TransactionID)
			if err != nil {
				return err
			}
			if txn.Status == models.TxnPaymentRequired {
				// payment_confirmed is transited through immediately;
				// admin_review is the state that persists.
				txn.Status = models.TxnAdminReview
				txn.TxHash = &cb.TxHash
				txn.PaidAt = &now
				if err := ts.Transactions().Update(ctx, txn); err != nil {
					return err
				}
				res.Transaction = &txn
			} else {
				slog.Warn("payment confirmed for transaction not awaiting payment",
					"transaction_id", txn.ID, "status", txn.Status)
			}
		}

		customer, err := ts.Customers().LockByID(ctx, payment.CustomerID)
		if err != nil {
			return err
		}
		balance, err := ledger.Credit(ctx, ts, customer.ID, payment.Amount)
		if err != nil {
			return err
		}
		customer.Balance = balance
		res.Payment = payment
		res.Customer = customer
		return nil
	})
	if errors.Is(err, models.ErrAlreadyProcessed) {
		slog.Info("duplicate payment callback", "payment_id", res.Payment.ID, "tx_hash", cb.TxHash)
		res.Duplicate = true
		return res, nil
	}
	if err != nil {
		return ConfirmResult{}, err
	}

	metrics.PaymentsConfirmedTotal.Inc()
	if res.Transaction != nil {
		metrics.TransitionsTotal.WithLabelValues(string(models.TxnAdminReview)).Inc()
	}
	slog.Info("payment confirmed",
		"payment_id", res.Payment.ID,
		"customer_id", res.Customer.ID,
		"amount", res.Payment.Amount,
		"tx_hash", cb.TxHash,
	)

	s.notifyConfirmed(res)
	return res, nil
}

func (s *PaymentService) notifyConfirmed(res ConfirmResult) {
	payment, customer := res.Payment, res.Customer
	txn := res.Transaction
	s.wp.Submit(func() {
		nctx, cancel := notifyCtx()
		defer cancel()
		update := StatusUpdate{Amount: payment.Amount, Balance: customer.Balance}
		if payment.TxHash != nil {
			update.TxHash = *payment.TxHash
		}
		if err := s.notifier.SendStatusUpdate(nctx, customer.ChatID, StatusPaymentConfirmed, update); err != nil {
			slog.Error("send payment confirmation", "payment_id", payment.ID, "err", err)
		}
	})
	if txn != nil {
		// This path always asks a human; auto-approval only applies to
		// transactions created directly into admin_review.
		s.requestApproval(*txn)
	}
}

func (s *PaymentService) requestApproval(txn models.Transaction) {
	s.wp.Submit(func() {
		nctx, cancel := notifyCtx()
		defer cancel()
		customer, err := s.store.Customers().GetByID(nctx, txn.CustomerID)
		if err != nil {
			slog.Error("load customer for approval request", "transaction_id", txn.ID, "err", err)
			return
		}
		stats, err := s.store.Transactions().Stats(nctx, customer.ID, "")
		if err != nil {
			slog.Error("load stats for approval request", "transaction_id", txn.ID, "err", err)
			return
		}
		req := ApprovalRequest{
			TransactionID: txn.ID,
			Code:          txn.Code,
			Amount:        txn.Amount,
			Balance:       customer.Balance,
			CreatedAt:     txn.CreatedAt,
			Stats:         stats,
		}
		if customer.Username != nil {
			req.Username = *customer.Username
		}
		if customer.FirstName != nil {
			req.FirstName = *customer.FirstName
		}
		if _, err := s.notifier.SendApprovalRequest(nctx, req); err != nil {
			slog.Error("send approval request", "transaction_id", txn.ID, "err", err)
		}
	})
}

// ExpirePending fails payments that stayed pending longer than ttl and
// tells the customer. Each payment is re-checked under its row lock so a
// confirmation racing the sweep wins.
func (s *PaymentService) ExpirePending(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.store.Payments().ListPendingBefore(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	expired := 0
	for _, p := range stale {
		payment := p
		err := s.store.WithTx(ctx, func(ts repository.Store) error {
			locked, err := ts.Payments().LockByID(ctx, payment.ID)
			if err != nil {
				return err
			}
			if locked.Status != models.PaymentPending {
				return models.ErrAlreadyProcessed
			}
			return ts.Payments().MarkFailed(ctx, locked.ID)
		})
		if errors.Is(err, models.ErrAlreadyProcessed) {
			continue
		}
		if err != nil {
			slog.Error("expire payment", "payment_id", payment.ID, "err", err)
			continue
		}
		expired++

		s.wp.Submit(func() {
			nctx, cancel := notifyCtx()
			defer cancel()
			customer, err := s.store.Customers().GetByID(nctx, payment.CustomerID)
			if err != nil {
				slog.Error("load customer for expiry notice", "payment_id", payment.ID, "err", err)
				return
			}
			text := fmt.Sprintf("Your payment request for %s has expired. Submit a new code if you still want to proceed.",
				payment.Amount.StringFixed(2))
			if err := s.notifier.SendMessage(nctx, customer.ChatID, text); err != nil {
				slog.Error("send expiry notice", "payment_id", payment.ID, "err", err)
			}
		})
	}
	if expired > 0 {
		slog.Info("expired pending payments", "count", expired)
	}
	return expired, nil
}
