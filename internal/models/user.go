package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// StartingBalance is credited to every account created through
// first-time session sync or password registration.
const StartingBalance = 10000.0

// UserDB represents a user record in the database
type UserDB struct {
	UserID         uuid.UUID `json:"id" db:"user_id"`                           // Primary key
	Username       string    `json:"username" db:"username"`                    // Unique username
	Email          string    `json:"email" db:"email"`                          // Unique user email
	FullName       *string   `json:"full_name,omitempty" db:"full_name"`        // Display name, if known
	PasswordHash   *string   `json:"-" db:"password_hash"`                      // Set only for password-based accounts
	Role           string    `json:"role" db:"role"`                            // customer, employee or admin
	Balance        float64   `json:"balance" db:"balance"`                      // Current account balance
	CardFrozen     bool      `json:"card_frozen" db:"card_frozen"`              // Blocks outgoing transfers when true
	AlertThreshold *float64  `json:"alert_threshold" db:"alert_threshold"`      // Optional per-user amount alert
	IsBanned       bool      `json:"is_banned" db:"is_banned"`                  // Banned users cannot establish a session
	CreatedAt      time.Time `json:"created_at" db:"created_at"`                // Creation timestamp
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`                // Last update timestamp
}

// UserUpdate carries the admin-editable fields of a user.
// Nil fields are left untouched.
type UserUpdate struct {
	Role           *string  `json:"role,omitempty"`
	CardFrozen     *bool    `json:"card_frozen,omitempty"`
	AlertThreshold *float64 `json:"alert_threshold,omitempty"`
	IsBanned       *bool    `json:"is_banned,omitempty"`
	FullName       *string  `json:"full_name,omitempty"`
}

// ValidRole reports whether role is one of the known application roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}
