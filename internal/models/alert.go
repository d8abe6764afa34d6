package models

// Alert kinds published to the fraud-alerts topic.
const (
	AlertKindFlagged   = "flagged"   // Transaction flagged fraudulent or in_review
	AlertKindThreshold = "threshold" // Amount exceeded the user's alert threshold
)

// FraudAlert is the JSON event published to Kafka for flagged transactions
// and per-user threshold alerts.
type FraudAlert struct {
	AlertID       string  `json:"alert_id"`       // Unique alert identifier
	Kind          string  `json:"kind"`           // flagged or threshold
	TransactionID string  `json:"transaction_id"` // Transaction that raised the alert
	UserID        string  `json:"user_id"`        // Owner of the transaction
	Amount        float64 `json:"amount"`         // Transaction amount
	Merchant      string  `json:"merchant"`       // Merchant name
	Status        string  `json:"status"`         // Fraud status at publish time
	Reason        string  `json:"reason"`         // Decision reason
	Timestamp     int64   `json:"timestamp"`      // Unix timestamp (seconds)
}
