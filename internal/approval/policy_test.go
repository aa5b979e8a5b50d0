package approval

import (
	"testing"
	"time"

	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
	"github.com/shopspring/decimal"
)

func TestDecide(t *testing.T) {
	now := time.Now()
	recent := now.Add(-7 * 24 * time.Hour)
	ancient := now.Add(-45 * 24 * time.Hour)

	base := models.Customer{Balance: decimal.RequireFromString("100.00")}
	txn := models.Transaction{Amount: decimal.RequireFromString("10.00")}

	cases := []struct {
		name    string
		balance string
		stats   repository.CustomerStats
		want    bool
		reason  string
	}{
		{
			name:    "trusted customer qualifies",
			balance: "100.00",
			stats:   repository.CustomerStats{ApprovedCount: 3},
			want:    true,
		},
		{
			name:    "two approvals is not enough",
			balance: "100.00",
			stats:   repository.CustomerStats{ApprovedCount: 2},
			want:    false,
			reason:  "insufficient approved transactions",
		},
		{
			name:    "recent rejection disqualifies",
			balance: "100.00",
			stats:   repository.CustomerStats{ApprovedCount: 5, LastRejectedAt: &recent},
			want:    false,
			reason:  "recent rejection",
		},
		{
			name:    "old rejection is forgiven",
			balance: "100.00",
			stats:   repository.CustomerStats{ApprovedCount: 5, LastRejectedAt: &ancient},
			want:    true,
		},
		{
			name:    "balance below amount",
			balance: "9.99",
			stats:   repository.CustomerStats{ApprovedCount: 5},
			want:    false,
			reason:  "insufficient balance",
		},
		{
			name:    "balance exactly at amount qualifies",
			balance: "10.00",
			stats:   repository.CustomerStats{ApprovedCount: 5},
			want:    true,
		},
		{
			name:    "other open transaction blocks",
			balance: "100.00",
			stats:   repository.CustomerStats{ApprovedCount: 5, OpenCount: 1},
			want:    false,
			reason:  "other transactions in progress",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cust := base
			cust.Balance = decimal.RequireFromString(c.balance)
			ok, reason := Decide(cust, txn, c.stats, now)
			if ok != c.want {
				t.Fatalf("Decide = %v (%s), want %v", ok, reason, c.want)
			}
			if !c.want && reason != c.reason {
				t.Errorf("reason = %q, want %q", reason, c.reason)
			}
		})
	}
}
