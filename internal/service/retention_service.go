package service

import (
	"context"
	"fmt"
	"time"

	"techanswers/internal/repository"
)

const bruteforceStaleAfter = 24 * time.Hour

// SweepResult counts the rows one sweep removed.
type SweepResult struct {
	Notifications  int64
	TwoFactorCodes int64
	DeviceSessions int64
	BruteforceRows int64
	ResetTokens    int64
}

// RetentionService deletes expired rows. Expiry itself is enforced by every
// read, so the sweep only reclaims space and can run at any interval.
type RetentionService interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

type retentionService struct {
	notifications repository.NotificationRepository
	twoFactor     repository.TwoFactorRepository
	bruteforce    repository.BruteforceRepository
	users         repository.UserRepository
	retention     time.Duration
	now           clock
}

func NewRetentionService(
	notifications repository.NotificationRepository,
	twoFactor repository.TwoFactorRepository,
	bruteforce repository.BruteforceRepository,
	users repository.UserRepository,
	notificationRetention time.Duration,
) RetentionService {
	if notificationRetention <= 0 {
		notificationRetention = 14 * 24 * time.Hour
	}
	return &retentionService{
		notifications: notifications,
		twoFactor:     twoFactor,
		bruteforce:    bruteforce,
		users:         users,
		retention:     notificationRetention,
		now:           utcNow,
	}
}

func (s *retentionService) Sweep(ctx context.Context) (SweepResult, error) {
	var (
		res SweepResult
		err error
	)
	now := s.now()
	if res.Notifications, err = s.notifications.DeleteCreatedBefore(ctx, now.Add(-s.retention)); err != nil {
		return res, fmt.Errorf("sweep notifications: %w", err)
	}
	if res.TwoFactorCodes, err = s.twoFactor.DeleteSpentCodes(ctx, now); err != nil {
		return res, fmt.Errorf("sweep two factor codes: %w", err)
	}
	if res.DeviceSessions, err = s.twoFactor.DeleteExpiredSessions(ctx, now); err != nil {
		return res, fmt.Errorf("sweep device sessions: %w", err)
	}
	if res.BruteforceRows, err = s.bruteforce.DeleteStale(ctx, now, now.Add(-bruteforceStaleAfter)); err != nil {
		return res, fmt.Errorf("sweep bruteforce rows: %w", err)
	}
	if res.ResetTokens, err = s.users.ClearExpiredResetTokens(ctx, now); err != nil {
		return res, fmt.Errorf("sweep reset tokens: %w", err)
	}
	return res, nil
}
