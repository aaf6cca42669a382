package models

import (
	"errors"
	"time"
)

var (
	// ErrStorageUnavailable wraps every failure of the underlying persistence.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUserNotFound       = errors.New("user not found")
)

// User is one chat participant.
type User struct {
	UserID     int64     `db:"user_id"`
	FirstName  string    `db:"first_name"`
	Username   string    `db:"username"`
	JoinedAt   time.Time `db:"joined_at"`
	ReferrerID *int64    `db:"referrer_id"` // write-once
	BonusTaken bool      `db:"bonus_taken"`
}

// AttributionResult is the outcome of a referral attribution attempt.
type AttributionResult int

// The zero value AttributionUnknown accompanies every returned error.
const (
	AttributionUnknown AttributionResult = iota
	Credited
	AlreadyAttributed
	SelfReferral
	ReferrerUnknown
)

func (r AttributionResult) String() string {
	switch r {
	case Credited:
		return "credited"
	case AlreadyAttributed:
		return "already_attributed"
	case SelfReferral:
		return "self_referral"
	case ReferrerUnknown:
		return "referrer_unknown"
	default:
		return "unknown"
	}
}
