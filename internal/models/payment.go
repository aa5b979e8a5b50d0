package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentConfirmed || s == PaymentFailed
}

// Payment tracks a funding request quoted to the customer. It moves from
// pending to exactly one terminal status and never reopens.
type Payment struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Address       string          `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	TxHash        *string         `json:"tx_hash,omitempty"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
}
