package domain

import "time"

// BruteforceAttempt counts failed logins for one (ip, fingerprint) pair.
type BruteforceAttempt struct {
	ID           int64
	IP           string
	Fingerprint  string
	Attempts     int
	IsBlocked    bool
	BlockedUntil *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActiveAt reports whether the block is still in force at t.
func (a BruteforceAttempt) ActiveAt(t time.Time) bool {
	return a.IsBlocked && a.BlockedUntil != nil && a.BlockedUntil.After(t)
}

type TwoFactorCodeType string

const (
	TwoFactorLogin TwoFactorCodeType = "LOGIN"
	TwoFactorSetup TwoFactorCodeType = "SETUP"
)

type TwoFactorCode struct {
	ID        int64
	UserID    int64
	Code      string
	Type      TwoFactorCodeType
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TwoFactorSession marks a device as trusted after a successful verification.
type TwoFactorSession struct {
	ID          int64
	UserID      int64
	SessionID   string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
