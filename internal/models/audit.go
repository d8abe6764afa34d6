package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	AuditActionUserCreated     = "user_created"
	AuditActionUserUpdated     = "user_updated"
	AuditActionUserBanned      = "user_banned"
	AuditActionUserUnbanned    = "user_unbanned"
	AuditActionLogin           = "login"
	AuditActionLoginBanned     = "login_banned"
	AuditActionTransaction     = "transaction_created"
	AuditActionTransactionFlag = "transaction_flagged"
	AuditActionReview          = "transaction_reviewed"
	AuditActionTransfer        = "transfer"
	AuditActionRuleCreated     = "rule_created"
	AuditActionRuleDeleted     = "rule_deleted"
)

// AuditLogDB represents an append-only audit log entry
type AuditLogDB struct {
	AuditID   uuid.UUID `json:"id" db:"audit_id"`
	Actor     string    `json:"actor" db:"actor"`           // Username or "system"
	Action    string    `json:"action" db:"action"`         // One of the AuditAction constants
	Details   string    `json:"details" db:"details"`       // Free-text details
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}
