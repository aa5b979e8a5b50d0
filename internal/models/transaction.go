package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxnPending          TransactionStatus = "pending"
	TxnPaymentRequired  TransactionStatus = "payment_required"
	TxnPaymentConfirmed TransactionStatus = "payment_confirmed"
	TxnAdminReview      TransactionStatus = "admin_review"
	TxnApproved         TransactionStatus = "approved"
	TxnRejected         TransactionStatus = "rejected"
)

// OpenStatuses are the non-terminal states. A customer code is considered
// claimed while any transaction holds it, open or not; the open set still
// matters for the auto-approval "no other pending work" rule.
var OpenStatuses = []TransactionStatus{TxnPending, TxnPaymentRequired, TxnPaymentConfirmed, TxnAdminReview}

func (s TransactionStatus) IsTerminal() bool {
	return s == TxnApproved || s == TxnRejected
}

// transitions is the closed transition table. pending never persists: code
// submission resolves it to payment_required or admin_review immediately.
var transitions = map[TransactionStatus][]TransactionStatus{
	TxnPending:          {TxnPaymentRequired, TxnAdminReview},
	TxnPaymentRequired:  {TxnPaymentConfirmed},
	TxnPaymentConfirmed: {TxnAdminReview},
	TxnAdminReview:      {TxnApproved, TxnRejected},
	TxnApproved:         nil,
	TxnRejected:         nil,
}

// CanTransition reports whether from -> to is a legal edge.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customer_id"`
	Code       string            `json:"code"`
	Status     TransactionStatus `json:"status"`
	Amount     decimal.Decimal   `json:"amount"`
	TxHash     *string           `json:"tx_hash,omitempty"`
	PayoutData *string           `json:"payout_data,omitempty"`
	AdminNote  *string           `json:"admin_note,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	PaidAt     *time.Time        `json:"paid_at,omitempty"`
	ApprovedAt *time.Time        `json:"approved_at,omitempty"`
	RejectedAt *time.Time        `json:"rejected_at,omitempty"`
}

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,20}$`)

// NormalizeCode validates the submitted code and returns its canonical
// uppercased form.
func NormalizeCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	return strings.ToUpper(code), nil
}
