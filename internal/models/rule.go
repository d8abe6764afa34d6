package models

import (
	"time"

	"github.com/google/uuid"
)

// Fraud rule types
const (
	RuleTypeAmount          = "amount"
	RuleTypeMerchantKeyword = "merchantKeyword"
)

// FraudRuleDB represents a fraud rule row in the database.
// Amount rules carry a threshold, keyword rules carry a keyword.
type FraudRuleDB struct {
	RuleID      uuid.UUID `json:"id" db:"rule_id"`
	RuleType    string    `json:"type" db:"rule_type"`                  // amount or merchantKeyword
	Threshold   *float64  `json:"threshold,omitempty" db:"threshold"`   // Strict lower bound for amount rules
	Keyword     *string   `json:"keyword,omitempty" db:"keyword"`       // Case-insensitive substring for keyword rules
	Result      string    `json:"result" db:"result"`                   // fraudulent or in_review
	Description string    `json:"description" db:"description"`         // Shown in the flag reason
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SortThreshold returns the threshold used for rule ordering.
// Keyword rules sort as threshold 0 and are therefore evaluated last.
func (r FraudRuleDB) SortThreshold() float64 {
	if r.Threshold == nil {
		return 0
	}
	return *r.Threshold
}
