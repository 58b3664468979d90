package repository

import (
	"context"
	"time"

	"techanswers/internal/domain"
)

// BruteforceRepository persists failed-login counters.
type BruteforceRepository interface {
	Init(ctx context.Context) error
	// FindActiveBlock returns a row matching ip OR fingerprint whose block is
	// still in force at now, or ErrNotFound.
	FindActiveBlock(ctx context.Context, ip, fingerprint string, now time.Time) (*domain.BruteforceAttempt, error)
	// RecordFailure atomically increments the (ip, fingerprint) counter and
	// blocks the row once it reaches maxAttempts.
	RecordFailure(ctx context.Context, ip, fingerprint string, now time.Time, maxAttempts int, lockout time.Duration) (*domain.BruteforceAttempt, error)
	Reset(ctx context.Context, ip, fingerprint string) error
	UnblockByID(ctx context.Context, id int64) (int64, error)
	UnblockByIP(ctx context.Context, ip string) (int64, error)
	UnblockByFingerprint(ctx context.Context, fingerprint string) (int64, error)
	ListBlocked(ctx context.Context, now time.Time) ([]domain.BruteforceAttempt, error)
	DeleteStale(ctx context.Context, now, updatedBefore time.Time) (int64, error)
}

type TwoFactorRepository interface {
	Init(ctx context.Context) error
	CreateCode(ctx context.Context, code *domain.TwoFactorCode) (int64, error)
	InvalidateCodes(ctx context.Context, userID int64, codeType domain.TwoFactorCodeType) error
	// ConsumeCode flips a matching unused, unexpired code to used and reports
	// whether one matched.
	ConsumeCode(ctx context.Context, userID int64, code string, codeType domain.TwoFactorCodeType, now time.Time) (bool, error)
	DeleteSpentCodes(ctx context.Context, now time.Time) (int64, error)

	// ReplaceSession stores session, removing any existing one for the same
	// user and fingerprint.
	ReplaceSession(ctx context.Context, session *domain.TwoFactorSession) error
	GetSession(ctx context.Context, sessionID string, now time.Time) (*domain.TwoFactorSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
