package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techanswers/internal/domain"
)

func TestSweepRemovesExpiredRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	now := f.clock.Now()

	_, err := f.repos.Notifications.Create(ctx, &domain.Notification{UserID: u.ID, Type: domain.NotificationSystem, Title: "ancienne", CreatedAt: now.Add(-15 * 24 * time.Hour)})
	require.NoError(t, err)
	_, err = f.repos.Notifications.Create(ctx, &domain.Notification{UserID: u.ID, Type: domain.NotificationSystem, Title: "récente", CreatedAt: now.Add(-13 * 24 * time.Hour)})
	require.NoError(t, err)

	_, err = f.repos.TwoFactor.CreateCode(ctx, &domain.TwoFactorCode{UserID: u.ID, Code: "111111", Type: domain.TwoFactorLogin, ExpiresAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	_, err = f.repos.TwoFactor.CreateCode(ctx, &domain.TwoFactorCode{UserID: u.ID, Code: "222222", Type: domain.TwoFactorLogin, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	require.NoError(t, f.repos.TwoFactor.ReplaceSession(ctx, &domain.TwoFactorSession{UserID: u.ID, SessionID: "old", Fingerprint: "fp", ExpiresAt: now.Add(-time.Hour)}))

	_, err = f.repos.Bruteforce.RecordFailure(ctx, "198.51.100.1", "fp", now.Add(-48*time.Hour), 1, 15*time.Minute)
	require.NoError(t, err)
	_, err = f.repos.Bruteforce.RecordFailure(ctx, "198.51.100.2", "fp", now, 1, 15*time.Minute)
	require.NoError(t, err)

	require.NoError(t, f.repos.Users.SetResetToken(ctx, u.ID, "tok", now.Add(-time.Minute)))

	res, err := f.retention.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{
		Notifications:  1,
		TwoFactorCodes: 1,
		DeviceSessions: 1,
		BruteforceRows: 1,
		ResetTokens:    1,
	}, res)

	// the active block survives
	require.Error(t, f.guard.Check(ctx, "198.51.100.2", "other"))

	again, err := f.retention.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, again)
}
