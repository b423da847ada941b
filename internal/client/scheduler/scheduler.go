// Package scheduler debounces sync requests and keeps at most one sync run
// in flight.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/logging"
)

const DefaultDelay = 500 * time.Millisecond

var ErrBusy = errors.New("sync already running")

type State int

const (
	Idle State = iota
	Debouncing
	Syncing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Syncing:
		return "syncing"
	}
	return "unknown"
}

// Runner performs one sync run.
type Runner func(ctx context.Context) error

type Scheduler struct {
	run    Runner
	online func() bool
	delay  time.Duration
	log    logging.Logger

	mu      sync.Mutex
	ctx     context.Context
	state   State
	timer   *time.Timer
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.delay = d }
}

// New builds a scheduler. online is consulted when the debounce timer
// fires; a nil func means always online.
func New(run Runner, online func() bool, log logging.Logger, opts ...Option) *Scheduler {
	if online == nil {
		online = func() bool { return true }
	}
	s := &Scheduler{
		run:    run,
		online: online,
		delay:  DefaultDelay,
		log:    log.With("module", "scheduler"),
		ctx:    context.Background(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start sets the context runs execute under and requests an initial sync
// when already online.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if s.online() {
		s.RequestSync()
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestSync (re)starts the debounce timer. It is dropped while a run is in
// flight.
func (s *Scheduler) RequestSync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.state == Syncing {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.state = Debouncing
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen || s.state != Debouncing {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	if !s.online() {
		s.state = Idle
		s.mu.Unlock()
		s.log.Debug(ctx, "sync skipped: offline")
		return
	}
	s.state = Syncing
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.execute(ctx)
}

// RunNow cancels any pending debounce and runs a sync immediately.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return context.Canceled
	}
	if s.state == Syncing {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	s.state = Syncing
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	return s.execute(ctx)
}

func (s *Scheduler) execute(ctx context.Context) error {
	err := s.run(ctx)
	if err != nil {
		s.log.Warn(ctx, "sync run failed", "error", err)
	}

	s.mu.Lock()
	s.state = Idle
	s.mu.Unlock()
	return err
}

// Stop cancels a pending timer and waits for an in-flight run to finish.
// Later requests are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.state == Debouncing {
		s.state = Idle
	}
	s.mu.Unlock()

	s.wg.Wait()
}
