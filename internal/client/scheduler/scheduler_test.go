package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const delay = 20 * time.Millisecond

type counter struct {
	runs    atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (c *counter) run(ctx context.Context) error {
	c.runs.Add(1)
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	return nil
}

func TestRequestSync_CoalescesBurst(t *testing.T) {
	c := &counter{}
	s := New(c.run, nil, logging.Discard(), WithDelay(delay))
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.RequestSync()
	}
	assert.Equal(t, Debouncing, s.State())

	require.Eventually(t, func() bool { return c.runs.Load() == 1 && s.State() == Idle },
		time.Second, 5*time.Millisecond)
	time.Sleep(3 * delay)
	assert.Equal(t, int32(1), c.runs.Load())
}

func TestRequestSync_DroppedWhileSyncing(t *testing.T) {
	c := &counter{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(c.run, nil, logging.Discard(), WithDelay(delay))
	defer s.Stop()

	s.RequestSync()
	<-c.started
	assert.Equal(t, Syncing, s.State())

	s.RequestSync()
	assert.Equal(t, Syncing, s.State())

	close(c.release)
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * delay)
	assert.Equal(t, int32(1), c.runs.Load())
}

func TestRequestSync_OfflineFireReturnsToIdle(t *testing.T) {
	c := &counter{}
	var online atomic.Bool
	s := New(c.run, online.Load, logging.Discard(), WithDelay(delay))
	defer s.Stop()

	s.RequestSync()
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), c.runs.Load())

	online.Store(true)
	s.RequestSync()
	require.Eventually(t, func() bool { return c.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStart_RequestsWhenOnline(t *testing.T) {
	c := &counter{}
	s := New(c.run, func() bool { return true }, logging.Discard(), WithDelay(delay))
	defer s.Stop()

	s.Start(context.Background())
	require.Eventually(t, func() bool { return c.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	boom := errors.New("boom")
	s := New(func(ctx context.Context) error { return boom }, nil, logging.Discard(), WithDelay(time.Hour))
	defer s.Stop()

	s.RequestSync()
	err := s.RunNow(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Idle, s.State())
}

func TestRunNow_BusyWhileSyncing(t *testing.T) {
	c := &counter{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(c.run, nil, logging.Discard(), WithDelay(delay))
	defer s.Stop()

	s.RequestSync()
	<-c.started
	require.ErrorIs(t, s.RunNow(context.Background()), ErrBusy)
	close(c.release)
}

func TestStop_WaitsForRunAndIgnoresLaterRequests(t *testing.T) {
	c := &counter{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(c.run, nil, logging.Discard(), WithDelay(delay))

	s.RequestSync()
	<-c.started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop returned before the run finished")
	case <-time.After(2 * delay):
	}
	close(c.release)
	<-done

	s.RequestSync()
	time.Sleep(3 * delay)
	assert.Equal(t, int32(1), c.runs.Load())
	assert.Equal(t, Idle, s.State())
}

type ctxKey struct{}

// ctxLogger records the contexts passed to Debug.
type ctxLogger struct {
	mu   sync.Mutex
	ctxs []context.Context
}

func (l *ctxLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	l.ctxs = append(l.ctxs, ctx)
	l.mu.Unlock()
}
func (l *ctxLogger) Info(context.Context, string, ...any)  {}
func (l *ctxLogger) Warn(context.Context, string, ...any)  {}
func (l *ctxLogger) Error(context.Context, string, ...any) {}
func (l *ctxLogger) With(...any) logging.Logger            { return l }

func (l *ctxLogger) logged() []context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]context.Context(nil), l.ctxs...)
}

func TestRequestSync_OfflineFireConcurrentWithStart(t *testing.T) {
	c := &counter{}
	log := &ctxLogger{}
	s := New(c.run, func() bool { return false }, log, WithDelay(delay))
	defer s.Stop()

	s.Start(context.WithValue(context.Background(), ctxKey{}, 0))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 50; i++ {
			s.Start(context.WithValue(context.Background(), ctxKey{}, i))
			time.Sleep(time.Millisecond)
		}
	}()
	s.RequestSync()

	require.Eventually(t, func() bool { return len(log.logged()) > 0 }, time.Second, 5*time.Millisecond)
	<-done
	assert.Equal(t, Idle, s.State())
	assert.NotNil(t, log.logged()[0].Value(ctxKey{}), "offline skip logs with a started context")
	assert.Zero(t, c.runs.Load())
}
