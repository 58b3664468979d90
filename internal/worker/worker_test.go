package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techanswers/internal/mail"
	"techanswers/internal/service"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingMailer struct {
	mu       sync.Mutex
	sent     []mail.Message
	failures int32
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if atomic.AddInt32(&r.failures, -1) >= 0 {
		return errors.New("smtp unavailable")
	}
	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()
	return nil
}

func (r *recordingMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestManagerDeliversQueuedMail(t *testing.T) {
	mailer := &recordingMailer{}
	m := NewManager(Config{Workers: 2, Logger: quietLogger()}, mailer)
	require.NoError(t, m.Start(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Enqueue(mail.Message{To: "a@example.fr", Subject: "s"}))
	}
	m.Shutdown()

	assert.Equal(t, 5, mailer.count())
}

func TestManagerRetriesFailedDelivery(t *testing.T) {
	mailer := &recordingMailer{failures: 2}
	m := NewManager(Config{Workers: 1, MaxAttempts: 3, RetryDelay: time.Millisecond, Logger: quietLogger()}, mailer)
	require.NoError(t, m.Start(context.Background()))

	require.NoError(t, m.Enqueue(mail.Message{To: "a@example.fr"}))
	m.Shutdown()

	assert.Equal(t, 1, mailer.count())
}

func TestManagerRejectsWhenStopped(t *testing.T) {
	m := NewManager(Config{Logger: quietLogger()}, &recordingMailer{})
	assert.ErrorIs(t, m.Enqueue(mail.Message{}), ErrNotRunning)

	require.NoError(t, m.Start(context.Background()))
	m.Shutdown()
	assert.ErrorIs(t, m.Enqueue(mail.Message{}), ErrNotRunning)
}

type slowMailer struct {
	recordingMailer
	delay time.Duration
}

func (s *slowMailer) Send(ctx context.Context, msg mail.Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}
	return s.recordingMailer.Send(ctx, msg)
}

func TestManagerDrainsAfterStartContextCancelled(t *testing.T) {
	mailer := &slowMailer{delay: 20 * time.Millisecond}
	m := NewManager(Config{Workers: 1, MaxAttempts: 1, Logger: quietLogger()}, mailer)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Enqueue(mail.Message{To: "a@example.fr"}))
	}
	cancel()
	m.Shutdown()

	assert.Equal(t, 3, mailer.count())
}

type countingSweep struct{ calls int32 }

func (c *countingSweep) Sweep(context.Context) (service.SweepResult, error) {
	atomic.AddInt32(&c.calls, 1)
	return service.SweepResult{Notifications: 1}, nil
}

func TestSweeperRunsAtStartAndOnTick(t *testing.T) {
	target := &countingSweep{}
	s := NewSweeper(target, 5*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&target.calls) >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
