package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user in the system
type User struct {
	ID                uuid.UUID
	FirstName         string
	LastName          string
	Email             string
	PasswordHash      string
	Role              string
	Verified          bool
	TwoFactorEnabled  bool
	PasswordChangedAt time.Time
	CreatedAt         time.Time
}

// OTPEntry is a live one-time code, keyed externally by "{channel}_{contact}_{purpose}"
type OTPEntry struct {
	Code      string    `json:"code"`
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// OTPStatus is the advisory read-only view of an OTP entry
type OTPStatus struct {
	Exists           bool
	Expired          bool
	RemainingSeconds int
	Attempts         int
	Channel          string
}
