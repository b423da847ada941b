// Package connectivity tracks whether the remote authority is reachable by
// pinging it on an interval.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/logging"
)

// PingTimeout bounds a single reachability check.
const PingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	pinger   Pinger
	interval time.Duration
	log      logging.Logger

	mu        sync.RWMutex
	online    bool
	onOnline  []func()
	onOffline []func()
}

func New(p Pinger, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{pinger: p, interval: interval, log: log.With("module", "connectivity")}
}

// OnOnline registers a callback for offline to online transitions.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	m.onOnline = append(m.onOnline, fn)
	m.mu.Unlock()
}

// OnOffline registers a callback for online to offline transitions.
func (m *Monitor) OnOffline(fn func()) {
	m.mu.Lock()
	m.onOffline = append(m.onOffline, fn)
	m.mu.Unlock()
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records the current state and fires callbacks on a transition.
// Callbacks run synchronously on the caller's goroutine.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	var cbs []func()
	if online {
		cbs = append(cbs, m.onOnline...)
	} else {
		cbs = append(cbs, m.onOffline...)
	}
	m.mu.Unlock()

	state := "offline"
	if online {
		state = "online"
	}
	m.log.Info(context.Background(), "connectivity changed", "state", state)

	for _, fn := range cbs {
		fn()
	}
}

// Check pings once and updates the state.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	err := m.pinger.Ping(ctx)
	cancel()

	if err != nil {
		m.log.Debug(ctx, "ping failed", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Run checks immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
