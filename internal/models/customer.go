package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is created on first contact with the client bot and is never
// deleted. Balance is mutated only through the ledger.
type Customer struct {
	ID         string          `json:"id"`
	ChatID     string          `json:"chat_id"`
	Username   *string         `json:"username,omitempty"`
	FirstName  *string         `json:"first_name,omitempty"`
	LastName   *string         `json:"last_name,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
	IsVerified bool            `json:"is_verified"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DisplayName picks the friendliest available identifier for messages.
func (c Customer) DisplayName() string {
	if c.FirstName != nil && *c.FirstName != "" {
		return *c.FirstName
	}
	if c.Username != nil && *c.Username != "" {
		return *c.Username
	}
	return "there"
}

// Profile carries the sender fields refreshed on every contact.
type Profile struct {
	Username  *string
	FirstName *string
	LastName  *string
}
