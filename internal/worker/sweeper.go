package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"techanswers/internal/service"
)

// Sweepable is the retention operation the sweeper drives.
type Sweepable interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Sweeper runs a retention sweep at start and then on every tick.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	logger   *logrus.Logger
}

func NewSweeper(target Sweepable, interval time.Duration, logger *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Sweeper{target: target, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Infof("retention sweeper started, interval: %s", s.interval)
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	res, err := s.target.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Errorf("retention sweep: %v", err)
		}
		return
	}
	s.logger.WithFields(logrus.Fields{
		"notifications":   res.Notifications,
		"codes":           res.TwoFactorCodes,
		"device_sessions": res.DeviceSessions,
		"bruteforce_rows": res.BruteforceRows,
		"reset_tokens":    res.ResetTokens,
	}).Info("retention sweep done")
}
