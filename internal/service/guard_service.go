package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

// UnblockRequest selects brute-force rows by exactly one of its fields.
type UnblockRequest struct {
	ID          int64
	IP          string
	Fingerprint string
}

// GuardService tracks failed logins per (ip, fingerprint) and enforces lockouts.
type GuardService interface {
	// Check returns a *BlockedError when ip or fingerprint is locked out.
	Check(ctx context.Context, ip, fingerprint string) error
	RecordFailure(ctx context.Context, ip, fingerprint string) (*domain.BruteforceAttempt, error)
	Reset(ctx context.Context, ip, fingerprint string) error
	ListBlocked(ctx context.Context) ([]domain.BruteforceAttempt, error)
	Unblock(ctx context.Context, req UnblockRequest) (int64, error)
}

type GuardConfig struct {
	MaxAttempts int
	Lockout     time.Duration
}

type guardService struct {
	attempts repository.BruteforceRepository
	cfg      GuardConfig
	logger   *logrus.Logger
	now      clock
}

func NewGuardService(attempts repository.BruteforceRepository, cfg GuardConfig, logger *logrus.Logger) GuardService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 15 * time.Minute
	}
	return &guardService{
		attempts: attempts,
		cfg:      cfg,
		logger:   defaultLogger(logger),
		now:      utcNow,
	}
}

func (s *guardService) Check(ctx context.Context, ip, fingerprint string) error {
	row, err := s.attempts.FindActiveBlock(ctx, ip, fingerprint, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return &BlockedError{Until: *row.BlockedUntil}
}

func (s *guardService) RecordFailure(ctx context.Context, ip, fingerprint string) (*domain.BruteforceAttempt, error) {
	row, err := s.attempts.RecordFailure(ctx, ip, fingerprint, s.now(), s.cfg.MaxAttempts, s.cfg.Lockout)
	if err != nil {
		return nil, err
	}
	if row.IsBlocked && row.Attempts == s.cfg.MaxAttempts {
		s.logger.WithFields(logrus.Fields{"ip": ip, "attempts": row.Attempts}).Warn("login blocked after repeated failures")
	}
	return row, nil
}

func (s *guardService) Reset(ctx context.Context, ip, fingerprint string) error {
	return s.attempts.Reset(ctx, ip, fingerprint)
}

func (s *guardService) ListBlocked(ctx context.Context) ([]domain.BruteforceAttempt, error) {
	return s.attempts.ListBlocked(ctx, s.now())
}

func (s *guardService) Unblock(ctx context.Context, req UnblockRequest) (int64, error) {
	var (
		n   int64
		err error
	)
	switch {
	case req.ID > 0:
		n, err = s.attempts.UnblockByID(ctx, req.ID)
	case strings.TrimSpace(req.IP) != "":
		n, err = s.attempts.UnblockByIP(ctx, strings.TrimSpace(req.IP))
	case strings.TrimSpace(req.Fingerprint) != "":
		n, err = s.attempts.UnblockByFingerprint(ctx, strings.TrimSpace(req.Fingerprint))
	default:
		return 0, invalid("id", "Indiquez un identifiant, une IP ou une empreinte")
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, newError(ErrNotFound, "Aucun blocage correspondant")
	}
	s.logger.WithFields(logrus.Fields{"id": req.ID, "ip": req.IP, "rows": n}).Info("bruteforce block lifted")
	return n, nil
}
