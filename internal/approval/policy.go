// Package approval holds the auto-approval decision policy. Decide is a
// pure function; the orchestrator gathers the history snapshot and acts on
// the answer.
package approval

import (
	"time"

	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
)

const (
	// MinApprovedCount is the trust threshold: strictly fewer approved
	// transactions means a human decides.
	MinApprovedCount = 3
	// RejectionWindow is how far back a rejection disqualifies the
	// customer, measured against wall clock at evaluation time.
	RejectionWindow = 30 * 24 * time.Hour
)

// Decide reports whether the transaction qualifies for automatic approval
// and, when it does not, which condition failed.
//
// It is only consulted for transactions that entered admin_review directly
// on submission (existing customer path); the payment-confirmation path
// always goes to a human.
func Decide(c models.Customer, t models.Transaction, stats repository.CustomerStats, now time.Time) (bool, string) {
	if stats.ApprovedCount < MinApprovedCount {
		return false, "insufficient approved transactions"
	}
	if stats.LastRejectedAt != nil && now.Sub(*stats.LastRejectedAt) < RejectionWindow {
		return false, "recent rejection"
	}
	if c.Balance.LessThan(t.Amount) {
		return false, "insufficient balance"
	}
	if stats.OpenCount > 0 {
		return false, "other transactions in progress"
	}
	return true, ""
}
