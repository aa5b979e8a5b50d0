package models

import "errors"

// Error taxonomy shared by services and handlers. Handlers map these to
// responses; anything else is treated as an internal error.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCode       = errors.New("invalid code format")
	ErrCodeInUse         = errors.New("code already in use")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAmountMismatch    = errors.New("amount mismatch")
	ErrAlreadyProcessed  = errors.New("already processed")
)
