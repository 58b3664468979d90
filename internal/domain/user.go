package domain

import "time"

// User represents an account on the platform.
type User struct {
	ID                  int64
	Email               string
	Username            string
	PasswordHash        string
	IsAdmin             bool
	IsSuperAdmin        bool
	TwoFactorEnabled    bool
	ResetToken          string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
