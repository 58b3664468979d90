// Package worker runs background jobs: asynchronous mail delivery and the
// periodic retention sweep.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"techanswers/internal/mail"
)

// ErrNotRunning is returned by Enqueue before Start or after Shutdown.
var ErrNotRunning = errors.New("mail manager is not running")

// Manager delivers queued mail with bounded concurrency.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(msg mail.Message) error
}

type Config struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	SendTimeout time.Duration
	Logger      *logrus.Logger
}

type manager struct {
	cfg    Config
	mailer mail.Mailer

	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

func NewManager(cfg Config, mailer mail.Mailer) Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:    cfg,
		mailer: mailer,
		sem:    make(chan struct{}, cfg.Workers),
	}
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	// Deliveries outlive cancellation of ctx; Shutdown drains them and then cancels.
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.running = true
	m.cfg.Logger.Infof("mail manager started, workers: %d", m.cfg.Workers)
	return nil
}

// Shutdown stops accepting messages and waits for queued deliveries.
func (m *manager) Shutdown() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	m.cfg.Logger.Info("mail manager stopped")
}

func (m *manager) Enqueue(msg mail.Message) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		select {
		case <-m.ctx.Done():
			m.cfg.Logger.WithField("to", msg.To).Warn("mail dropped, manager context done")
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.deliver(msg)
		}
	}()
	return nil
}

func (m *manager) deliver(msg mail.Message) {
	logger := m.cfg.Logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject})
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(m.ctx, m.cfg.SendTimeout)
		err := m.mailer.Send(ctx, msg)
		cancel()
		if err == nil {
			logger.Debug("mail sent")
			return
		}
		if attempt == m.cfg.MaxAttempts {
			logger.Errorf("mail delivery failed after %d attempts: %v", attempt, err)
			return
		}
		logger.Warnf("mail delivery attempt %d failed: %v", attempt, err)
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.cfg.RetryDelay):
		}
	}
}

var _ Manager = (*manager)(nil)
