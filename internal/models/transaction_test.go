package models

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TransactionStatus
		want     bool
	}{
		{TxnPending, TxnPaymentRequired, true},
		{TxnPending, TxnAdminReview, true},
		{TxnPending, TxnApproved, false},
		{TxnPaymentRequired, TxnPaymentConfirmed, true},
		{TxnPaymentRequired, TxnAdminReview, false},
		{TxnPaymentConfirmed, TxnAdminReview, true},
		{TxnAdminReview, TxnApproved, true},
		{TxnAdminReview, TxnRejected, true},
		{TxnAdminReview, TxnPaymentRequired, false},
		{TxnApproved, TxnRejected, false},
		{TxnApproved, TxnAdminReview, false},
		{TxnRejected, TxnApproved, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range OpenStatuses {
		if s.IsTerminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	for _, s := range []TransactionStatus{TxnApproved, TxnRejected} {
		if !s.IsTerminal() {
			t.Errorf("%s reported open", s)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	valid := map[string]string{
		"abc123":               "ABC123",
		"  abc123  ":           "ABC123",
		"ABCDEF":               "ABCDEF",
		"a1B2c3D4e5F6g7H8i9J0": "A1B2C3D4E5F6G7H8I9J0",
	}
	for raw, want := range valid {
		got, err := NormalizeCode(raw)
		if err != nil {
			t.Errorf("NormalizeCode(%q) err = %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", raw, got, want)
		}
	}

	invalid := []string{"", "abc12", "a1B2c3D4e5F6g7H8i9J0X", "abc 12", "abc-123", "ünïcode"}
	for _, raw := range invalid {
		if _, err := NormalizeCode(raw); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("NormalizeCode(%q) err = %v, want ErrInvalidCode", raw, err)
		}
	}
}
