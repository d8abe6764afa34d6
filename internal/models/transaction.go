package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses. Approved and fraudulent are terminal:
// only in_review may transition further.
const (
	StatusApproved   = "approved"
	StatusFraudulent = "fraudulent"
	StatusInReview   = "in_review"
)

// TransactionDB represents a transaction row in the database
type TransactionDB struct {
	TransactionID uuid.UUID `json:"id" db:"transaction_id"`     // Unique transaction identifier
	UserID        uuid.UUID `json:"user_id" db:"user_id"`       // Owner of the transaction
	Amount        float64   `json:"amount" db:"amount"`         // Positive transaction amount
	Merchant      string    `json:"merchant" db:"merchant"`     // Merchant name as submitted
	Location      string    `json:"location" db:"location"`     // Free-text location
	Status        string    `json:"status" db:"status"`         // approved, fraudulent or in_review
	Reason        string    `json:"reason" db:"reason"`         // Human-readable decision reason
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // Submission timestamp
}

// AnalystNoteDB represents a single analyst note attached to a transaction
type AnalystNoteDB struct {
	NoteID        uuid.UUID `json:"id" db:"note_id"`
	TransactionID uuid.UUID `json:"transaction_id" db:"transaction_id"`
	Analyst       string    `json:"analyst" db:"analyst"`       // Username of the reviewing analyst
	Note          string    `json:"note" db:"note"`             // Free-text note body
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // Note timestamp
}

// TerminalStatus reports whether a transaction status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusFraudulent
}
