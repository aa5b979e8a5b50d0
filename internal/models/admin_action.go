package models

import "time"

type AdminActionType string

const (
	ActionApproved AdminActionType = "approved"
	ActionRejected AdminActionType = "rejected"
)

// SystemAdminID marks decisions made by the auto-approval policy rather
// than a human.
const SystemAdminID = "SYSTEM"

// AdminAction is an append-only audit record. Exactly one is written for
// every transition into approved or rejected.
type AdminAction struct {
	ID            string          `json:"id"`
	AdminID       string          `json:"admin_id"`
	TransactionID string          `json:"transaction_id"`
	Action        AdminActionType `json:"action"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
}
