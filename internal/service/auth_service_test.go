package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginReq(email, password string) LoginRequest {
	return LoginRequest{Email: email, Password: password, IP: "203.0.113.7", Fingerprint: "fp-1"}
}

func TestLoginIssuesToken(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")

	res, err := f.auth.Login(context.Background(), loginReq("ALICE@example.fr", "motdepasse"))
	require.NoError(t, err)
	assert.False(t, res.RequiresTwoFactor)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestLoginLocksOutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice")

	for i := 0; i < 4; i++ {
		_, err := f.auth.Login(ctx, loginReq("alice@example.fr", "mauvais"))
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.auth.Login(ctx, loginReq("alice@example.fr", "mauvais"))
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.WithinDuration(t, f.clock.Now().Add(15*time.Minute), blocked.Until, time.Second)

	// correct credentials are rejected while the block holds
	_, err = f.auth.Login(ctx, loginReq("alice@example.fr", "motdepasse"))
	assert.ErrorIs(t, err, ErrBlocked)

	// same ip from another device is blocked too
	other := loginReq("alice@example.fr", "motdepasse")
	other.Fingerprint = "fp-2"
	_, err = f.auth.Login(ctx, other)
	assert.ErrorIs(t, err, ErrBlocked)

	f.clock.Advance(16 * time.Minute)
	_, err = f.auth.Login(ctx, loginReq("alice@example.fr", "motdepasse"))
	require.NoError(t, err)
}

func TestFailureAfterExpiredBlockRestartsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice")

	for i := 0; i < 5; i++ {
		_, _ = f.auth.Login(ctx, loginReq("alice@example.fr", "mauvais"))
	}
	f.clock.Advance(16 * time.Minute)

	_, err := f.auth.Login(ctx, loginReq("alice@example.fr", "mauvais"))
	require.ErrorIs(t, err, ErrInvalidCredentials)

	rows, err := f.repos.Bruteforce.FindActiveBlock(ctx, "203.0.113.7", "fp-1", f.clock.Now())
	assert.Nil(t, rows)
	assert.Error(t, err)

	row, err := f.guard.RecordFailure(ctx, "203.0.113.7", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, row.Attempts)
	assert.False(t, row.IsBlocked)
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice")

	for i := 0; i < 4; i++ {
		_, _ = f.auth.Login(ctx, loginReq("alice@example.fr", "mauvais"))
	}
	_, err := f.auth.Login(ctx, loginReq("alice@example.fr", "motdepasse"))
	require.NoError(t, err)

	row, err := f.guard.RecordFailure(ctx, "203.0.113.7", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Attempts)
}

func TestAdminUnblock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice")
	for i := 0; i < 5; i++ {
		_, _ = f.auth.Login(ctx, loginReq("alice@example.fr", "mauvais"))
	}

	blocked, err := f.guard.ListBlocked(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)

	n, err := f.guard.Unblock(ctx, UnblockRequest{IP: "203.0.113.7"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, f.guard.Check(ctx, "203.0.113.7", "fp-1"))

	_, err = f.guard.Unblock(ctx, UnblockRequest{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.guard.Unblock(ctx, UnblockRequest{ID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminLoginRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	req := loginReq("alice@example.fr", "motdepasse")
	req.AdminOnly = true
	_, err := f.auth.Login(context.Background(), req)
	assert.ErrorIs(t, err, ErrForbidden)
}

func enableTwoFactor(t *testing.T, f *fixture, userID int64, email string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.twoFactor.StartSetup(ctx, userID))
	require.NoError(t, f.twoFactor.ConfirmSetup(ctx, userID, f.queue.lastCode(t, email)))
}

func TestTwoFactorLoginFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	res, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	require.True(t, res.RequiresTwoFactor)
	assert.Empty(t, res.Token)

	code := f.queue.lastCode(t, u.Email)
	verify := VerifyRequest{UserID: u.ID, Code: code, IP: "203.0.113.7", Fingerprint: "fp-1"}
	done, err := f.auth.VerifyTwoFactor(ctx, verify)
	require.NoError(t, err)
	assert.NotEmpty(t, done.Token)
	assert.Len(t, done.DeviceSession, 64)

	// consumed codes cannot be replayed
	_, err = f.auth.VerifyTwoFactor(ctx, verify)
	assert.ErrorIs(t, err, ErrInvalidCode)

	// the trusted device skips the second factor
	trusted := loginReq(u.Email, "motdepasse")
	trusted.DeviceSession = done.DeviceSession
	res, err = f.auth.Login(ctx, trusted)
	require.NoError(t, err)
	assert.False(t, res.RequiresTwoFactor)

	// but only from the same fingerprint
	moved := trusted
	moved.Fingerprint = "fp-other"
	res, err = f.auth.Login(ctx, moved)
	require.NoError(t, err)
	assert.True(t, res.RequiresTwoFactor)
}

func TestTwoFactorCodeExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	_, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	code := f.queue.lastCode(t, u.Email)

	f.clock.Advance(11 * time.Minute)
	_, err = f.auth.VerifyTwoFactor(ctx, VerifyRequest{UserID: u.ID, Code: code, IP: "203.0.113.7", Fingerprint: "fp-1"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestTwoFactorNewCodeInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	_, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	first := f.queue.lastCode(t, u.Email)
	_, err = f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	second := f.queue.lastCode(t, u.Email)

	if first != second {
		_, err = f.auth.VerifyTwoFactor(ctx, VerifyRequest{UserID: u.ID, Code: first, IP: "203.0.113.7", Fingerprint: "fp-1"})
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err = f.auth.VerifyTwoFactor(ctx, VerifyRequest{UserID: u.ID, Code: second, IP: "203.0.113.7", Fingerprint: "fp-1"})
	assert.NoError(t, err)
}

func TestWrongTwoFactorCodesTriggerLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	var err error
	for i := 0; i < 5; i++ {
		_, err = f.auth.VerifyTwoFactor(ctx, VerifyRequest{UserID: u.ID, Code: "abcdef", IP: "203.0.113.7", Fingerprint: "fp-1"})
	}
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestDisableTwoFactor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	assert.ErrorIs(t, f.twoFactor.Disable(ctx, u.ID, "mauvais"), ErrInvalidCredentials)
	require.NoError(t, f.twoFactor.Disable(ctx, u.ID, "motdepasse"))

	res, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	assert.False(t, res.RequiresTwoFactor)
}

func TestPendingSecondFactorKeepsFailureCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)
	wrong := VerifyRequest{UserID: u.ID, Code: "abcdef", IP: "203.0.113.7", Fingerprint: "fp-1"}

	res, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	require.True(t, res.RequiresTwoFactor)
	for i := 0; i < 4; i++ {
		_, err = f.auth.VerifyTwoFactor(ctx, wrong)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	// a correct password does not clear the count while a code is pending
	res, err = f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	require.True(t, res.RequiresTwoFactor)
	_, err = f.auth.VerifyTwoFactor(ctx, wrong)
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestVerifiedSecondFactorResetsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	_, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	_, err = f.auth.VerifyTwoFactor(ctx, VerifyRequest{UserID: u.ID, Code: "abcdef", IP: "203.0.113.7", Fingerprint: "fp-1"})
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = f.auth.VerifyTwoFactor(ctx, VerifyRequest{UserID: u.ID, Code: f.queue.lastCode(t, u.Email), IP: "203.0.113.7", Fingerprint: "fp-1"})
	require.NoError(t, err)

	row, err := f.guard.RecordFailure(ctx, "203.0.113.7", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Attempts)
}

func TestAdminVerifyRefusesBeforeConsumingCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	enableTwoFactor(t, f, u.ID, u.Email)

	_, err := f.auth.Login(ctx, loginReq(u.Email, "motdepasse"))
	require.NoError(t, err)
	code := f.queue.lastCode(t, u.Email)

	req := VerifyRequest{UserID: u.ID, Code: code, IP: "203.0.113.7", Fingerprint: "fp-1", AdminOnly: true}
	_, err = f.auth.VerifyTwoFactor(ctx, req)
	assert.ErrorIs(t, err, ErrForbidden)

	sessions, err := f.repos.TwoFactor.DeleteExpiredSessions(ctx, f.clock.Now().Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, sessions)

	req.AdminOnly = false
	done, err := f.auth.VerifyTwoFactor(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, done.Token)
}

func TestConcurrentFailuresAreAllCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.guard.RecordFailure(ctx, "198.51.100.9", "fp-race"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	row, err := f.guard.RecordFailure(ctx, "198.51.100.9", "fp-race")
	require.NoError(t, err)
	assert.Equal(t, n+1, row.Attempts)
	assert.True(t, row.IsBlocked)
}
