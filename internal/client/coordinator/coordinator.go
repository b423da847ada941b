// Package coordinator owns the sync machinery of one client process: the
// engine, the scheduler and the connectivity monitor. It is built once at
// startup and stopped on exit.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/connectivity"
	"github.com/dmitrijs2005/herdsync/internal/client/scheduler"
	"github.com/dmitrijs2005/herdsync/internal/client/session"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/client/syncer"
	"github.com/dmitrijs2005/herdsync/internal/logging"
)

type StatusKind string

const (
	StatusOffline StatusKind = "offline"
	StatusSyncing StatusKind = "syncing"
	StatusPending StatusKind = "pending"
	StatusSynced  StatusKind = "synced"
)

// Status is the sync indicator shown to the user.
type Status struct {
	Kind    StatusKind
	Pending int
}

func (s Status) String() string {
	if s.Kind == StatusPending {
		return fmt.Sprintf("%d pending", s.Pending)
	}
	return string(s.Kind)
}

type Options struct {
	OnlineCheckInterval time.Duration
	DebounceDelay       time.Duration
}

type Coordinator struct {
	store     *store.Store
	session   *session.Session
	engine    *syncer.Engine
	monitor   *connectivity.Monitor
	scheduler *scheduler.Scheduler
	log       logging.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(s *store.Store, sess *session.Session, transport client.Client, log logging.Logger, opts Options) *Coordinator {
	if opts.OnlineCheckInterval <= 0 {
		opts.OnlineCheckInterval = 5 * time.Second
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = scheduler.DefaultDelay
	}

	c := &Coordinator{
		store:   s,
		session: sess,
		engine:  syncer.New(s, transport, log),
		monitor: connectivity.New(transport, opts.OnlineCheckInterval, log),
		log:     log.With("module", "coordinator"),
	}
	c.scheduler = scheduler.New(c.runOnce, c.monitor.IsOnline, log, scheduler.WithDelay(opts.DebounceDelay))
	c.monitor.OnOnline(c.scheduler.RequestSync)
	return c
}

// Start launches the connectivity monitor. The first successful check
// requests a sync.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.scheduler.Start(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.monitor.Run(ctx)
	}()
}

// Stop halts the monitor and waits for an in-flight sync.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.scheduler.Stop()
}

// RequestSync schedules a debounced sync.
func (c *Coordinator) RequestSync() {
	c.scheduler.RequestSync()
}

// SyncNow runs a sync immediately and returns its outcome.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	if !c.monitor.Check(ctx) {
		return client.ErrUnavailable
	}
	return c.scheduler.RunNow(ctx)
}

func (c *Coordinator) IsOnline() bool {
	return c.monitor.IsOnline()
}

func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	if !c.monitor.IsOnline() {
		return Status{Kind: StatusOffline}, nil
	}
	if c.scheduler.State() == scheduler.Syncing {
		return Status{Kind: StatusSyncing}, nil
	}
	n, err := c.store.PendingCount(ctx)
	if err != nil {
		return Status{}, err
	}
	if n > 0 {
		return Status{Kind: StatusPending, Pending: n}, nil
	}
	return Status{Kind: StatusSynced}, nil
}

// runOnce is the scheduler's runner. A refused token ends the session.
func (c *Coordinator) runOnce(ctx context.Context) error {
	if !c.session.LoggedIn() {
		return nil
	}

	res, err := c.engine.Run(ctx, c.session.Guard(c.session.Epoch()))
	if errors.Is(err, client.ErrUnauthorized) {
		c.log.Warn(ctx, "token refused, logging out", "error", err)
		if lerr := c.session.Logout(ctx); lerr != nil {
			return errors.Join(err, lerr)
		}
		return err
	}
	if err != nil {
		return err
	}
	return res.Err()
}
