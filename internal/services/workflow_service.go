package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhngoc/codepay-backend/internal/approval"
	"github.com/minhngoc/codepay-backend/internal/ledger"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
	"github.com/minhngoc/codepay-backend/internal/worker"
	"github.com/shopspring/decimal"
)

// WorkflowService drives a transaction through its lifecycle: code
// submission, decision (human or automatic) and the resulting ledger
// movement. Every transition runs inside one Store.WithTx unit; outbound
// notifications are dispatched to the worker pool after commit.
type WorkflowService struct {
	store         repository.Store
	notifier      Notifier
	gw            PaymentGateway
	wp            *worker.Pool
	defaultAmount decimal.Decimal
}

func NewWorkflowService(store repository.Store, n Notifier, gw PaymentGateway, wp *worker.Pool, defaultAmount decimal.Decimal) *WorkflowService {
	return &WorkflowService{store: store, notifier: n, gw: gw, wp: wp, defaultAmount: defaultAmount}
}

// SubmitResult reports how a code submission was routed.
type SubmitResult struct {
	Customer     models.Customer
	Transaction  models.Transaction
	Payment      *models.Payment
	AutoApproved bool
}

// SubmitCode handles a customer-submitted code. Repeat customers (at least
// one prior approval) go straight to admin review; first-timers get a
// payment request. The code is claimed permanently: any transaction with
// the same code, whatever its status, blocks a new one.
func (s *WorkflowService) SubmitCode(ctx context.Context, chatID, rawCode string, p models.Profile) (SubmitResult, error) {
	code, err := models.NormalizeCode(rawCode)
	if err != nil {
		return SubmitResult{}, err
	}

	customer, err := s.store.Customers().Upsert(ctx, chatID, p)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("upsert customer: %w", err)
	}

	res := SubmitResult{Customer: customer}
	err = s.store.WithTx(ctx, func(ts repository.Store) error {
		exists, err := ts.Transactions().CodeExists(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrCodeInUse
		}

		stats, err := ts.Transactions().Stats(ctx, customer.ID, "")
		if err != nil {
			return err
		}

		status := models.TxnPaymentRequired
		if stats.ApprovedCount > 0 {
			status = models.TxnAdminReview
		}

		txn, err := ts.Transactions().Create(ctx, models.Transaction{
			CustomerID: customer.ID,
			Code:       code,
			Status:     status,
			Amount:     s.defaultAmount,
		})
		if err != nil {
			return err
		}
		res.Transaction = txn

		if status == models.TxnPaymentRequired {
			quote, err := s.gw.CreatePaymentRequest(ctx, txn.ID, txn.Amount)
			if err != nil {
				return fmt.Errorf("payment quote: %w", err)
			}
			payment, err := ts.Payments().Create(ctx, models.Payment{
				CustomerID:    customer.ID,
				TransactionID: &txn.ID,
				Address:       quote.Address,
				Amount:        quote.Amount,
			})
			if err != nil {
				return err
			}
			res.Payment = &payment
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(res.Transaction.Status)).Inc()
	slog.Info("transaction created",
		"transaction_id", res.Transaction.ID,
		"customer_id", customer.ID,
		"code", code,
		"status", res.Transaction.Status,
	)

	switch res.Transaction.Status {
	case models.TxnPaymentRequired:
		payment := *res.Payment
		s.wp.Submit(func() {
			nctx, cancel := notifyCtx()
			defer cancel()
			if err := s.notifier.SendPaymentRequest(nctx, chatID, payment.Amount, payment.Address); err != nil {
				slog.Error("send payment request", "payment_id", payment.ID, "err", err)
			}
		})
	case models.TxnAdminReview:
		auto, err := s.tryAutoApprove(ctx, customer, res.Transaction)
		if err != nil {
			slog.Error("auto-approval evaluation", "transaction_id", res.Transaction.ID, "err", err)
		}
		res.AutoApproved = auto
		if !auto {
			s.requestApproval(res.Transaction)
		}
	}
	return res, nil
}

// tryAutoApprove consults the policy and, when every condition holds,
// drives an approve decision under the system identity. Failures are
// absorbed: the transaction simply stays in admin_review.
func (s *WorkflowService) tryAutoApprove(ctx context.Context, customer models.Customer, txn models.Transaction) (bool, error) {
	fresh, err := s.store.Customers().GetByID(ctx, customer.ID)
	if err != nil {
		return false, err
	}
	stats, err := s.store.Transactions().Stats(ctx, customer.ID, txn.ID)
	if err != nil {
		return false, err
	}

	ok, reason := approval.Decide(fresh, txn, stats, time.Now())
	if !ok {
		slog.Info("auto-approval denied", "transaction_id", txn.ID, "customer_id", customer.ID, "reason", reason)
		return false, nil
	}

	_, err = s.Decide(ctx, txn.ID, Decision{
		AdminID: models.SystemAdminID,
		Action:  models.ActionApproved,
		Note:    "Auto-approved by system - customer has good history",
	})
	if err != nil {
		// Policy raced a concurrent event; a human takes over.
		if errors.Is(err, models.ErrInsufficientFunds) || errors.Is(err, models.ErrInvalidTransition) {
			slog.Warn("auto-approval aborted", "transaction_id", txn.ID, "err", err)
			return false, nil
		}
		return false, err
	}
	metrics.AutoApprovalsTotal.Inc()
	return true, nil
}

// requestApproval queues the admin review message.
func (s *WorkflowService) requestApproval(txn models.Transaction) {
	s.wp.Submit(func() {
		nctx, cancel := notifyCtx()
		defer cancel()
		req, err := s.buildApprovalRequest(nctx, txn)
		if err != nil {
			slog.Error("build approval request", "transaction_id", txn.ID, "err", err)
			return
		}
		ref, err := s.notifier.SendApprovalRequest(nctx, req)
		if err != nil {
			slog.Error("send approval request", "transaction_id", txn.ID, "err", err)
			return
		}
		slog.Info("approval requested", "transaction_id", txn.ID, "message_ref", ref)
	})
}

func (s *WorkflowService) buildApprovalRequest(ctx context.Context, txn models.Transaction) (ApprovalRequest, error) {
	customer, err := s.store.Customers().GetByID(ctx, txn.CustomerID)
	if err != nil {
		return ApprovalRequest{}, err
	}
	stats, err := s.store.Transactions().Stats(ctx, customer.ID, "")
	if err != nil {
		return ApprovalRequest{}, err
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
	return req, nil
}

// Decision is an approve/reject instruction. PayoutData, when set on an
// approval, is stored on the transaction before the customer is notified.
type Decision struct {
	AdminID    string
	Action     models.AdminActionType
	Note       string
	PayoutData string
}

// DecisionResult reports a committed approve/reject transition.
type DecisionResult struct {
	Transaction models.Transaction
	Customer    models.Customer
}

// Decide applies an approval decision to a transaction in admin_review.
// Approve debits the customer's balance; either outcome writes exactly one
// AdminAction row in the same unit. A decision on a transaction in any
// other state returns models.ErrInvalidTransition; the callers at the
// ingestion boundary absorb that as a duplicate-event no-op.
func (s *WorkflowService) Decide(ctx context.Context, txnID string, d Decision) (DecisionResult, error) {
	var res DecisionResult
	err := s.store.WithTx(ctx, func(ts repository.Store) error {
		txn, err := ts.Transactions().LockByID(ctx, txnID)
		if err != nil {
			return err
		}
		if txn.Status != models.TxnAdminReview {
			return models.ErrInvalidTransition
		}
		customer, err := ts.Customers().LockByID(ctx, txn.CustomerID)
		if err != nil {
			return err
		}

		now := time.Now()
		switch d.Action {
		case models.ActionApproved:
			balance, err := ledger.Debit(ctx, ts, customer.ID, txn.Amount)
			if err != nil {
				return err
			}
			customer.Balance = balance
			txn.Status = models.TxnApproved
			txn.ApprovedAt = &now
			if d.PayoutData != "" {
				txn.PayoutData = &d.PayoutData
			}
		case models.ActionRejected:
			txn.Status = models.TxnRejected
			txn.RejectedAt = &now
		default:
			return fmt.Errorf("unknown action %q", d.Action)
		}
		if d.Note != "" {
			txn.AdminNote = &d.Note
		}
		if err := ts.Transactions().Update(ctx, txn); err != nil {
			return err
		}
		if _, err := ts.AdminActions().Create(ctx, models.AdminAction{
			AdminID:       d.AdminID,
			TransactionID: txn.ID,
			Action:        d.Action,
			Note:          d.Note,
		}); err != nil {
			return err
		}
		res = DecisionResult{Transaction: txn, Customer: customer}
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(res.Transaction.Status)).Inc()
	slog.Info("decision applied",
		"transaction_id", res.Transaction.ID,
		"admin_id", d.AdminID,
		"action", d.Action,
	)

	s.notifyDecision(res, d.AdminID)
	return res, nil
}

func (s *WorkflowService) notifyDecision(res DecisionResult, adminID string) {
	txn, customer := res.Transaction, res.Customer
	s.wp.Submit(func() {
		nctx, cancel := notifyCtx()
		defer cancel()

		update := StatusUpdate{Code: txn.Code, Amount: txn.Amount, Balance: customer.Balance}
		kind := StatusRejected
		if txn.Status == models.TxnApproved {
			kind = StatusApproved
			update.At = *txn.ApprovedAt
			if txn.PayoutData != nil {
				update.PayoutData = *txn.PayoutData
			}
			if adminID == models.SystemAdminID {
				kind = StatusAutoApproved
			}
		} else {
			update.At = *txn.RejectedAt
		}
		if err := s.notifier.SendStatusUpdate(nctx, customer.ChatID, kind, update); err != nil {
			slog.Error("send status update", "transaction_id", txn.ID, "err", err)
		}

		if kind == StatusAutoApproved {
			text := fmt.Sprintf("Auto-approved %s for @%s (%s), amount %s",
				txn.Code, customer.DisplayName(), txn.ID, txn.Amount.StringFixed(2))
			if err := s.notifier.NotifyAdmin(nctx, text); err != nil {
				slog.Error("notify admin", "transaction_id", txn.ID, "err", err)
			}
		}
	})
}

// PendingItem pairs a transaction awaiting review with its customer.
type PendingItem struct {
	Transaction models.Transaction
	Customer    models.Customer
}

// PendingReview returns the oldest transactions waiting for a decision.
func (s *WorkflowService) PendingReview(ctx context.Context, limit int) ([]PendingItem, error) {
	txns, err := s.store.Transactions().ListByStatus(ctx, models.TxnAdminReview, limit)
	if err != nil {
		return nil, err
	}
	items := make([]PendingItem, 0, len(txns))
	for _, txn := range txns {
		customer, err := s.store.Customers().GetByID(ctx, txn.CustomerID)
		if err != nil {
			return nil, err
		}
		items = append(items, PendingItem{Transaction: txn, Customer: customer})
	}
	return items, nil
}

// Summary aggregates today's activity for the admin /stats command.
func (s *WorkflowService) Summary(ctx context.Context) (repository.Summary, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.store.Transactions().Summary(ctx, dayStart, now.AddDate(0, 0, -7))
}

// Get returns a transaction by id.
func (s *WorkflowService) Get(ctx context.Context, id string) (models.Transaction, error) {
	return s.store.Transactions().GetByID(ctx, id)
}

// ListByStatus lists transactions for the ops API.
func (s *WorkflowService) ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	return s.store.Transactions().ListByStatus(ctx, status, limit)
}
