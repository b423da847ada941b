package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/config"
	"github.com/dmitrijs2005/herdsync/internal/client/coordinator"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/services"
	"github.com/dmitrijs2005/herdsync/internal/client/session"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/client/tracker"
	"github.com/dmitrijs2005/herdsync/internal/filex"
	"github.com/dmitrijs2005/herdsync/internal/logging"
)

// syncController is the part of the coordinator the REPL talks to.
type syncController interface {
	SyncNow(ctx context.Context) error
	Status(ctx context.Context) (coordinator.Status, error)
}

type App struct {
	auth      services.AuthService
	herds     services.HerdService
	bovines   services.BovineService
	dashboard services.DashboardService
	sync      syncController

	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger

	mu      sync.Mutex
	changed map[models.EntityType]bool

	closers []func()
	start   func(ctx context.Context)
	changes <-chan store.Change
}

// NewApp opens the local store, connects the selected transport and wires the
// sync coordinator and the domain services together. A session persisted by
// an earlier run is restored.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dbPath, err := filex.EnsureParentDir(c.DBPath)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	transport, err := newTransport(c)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	sess := session.New(s, transport)
	if _, err := sess.Restore(ctx); err != nil {
		_ = transport.Close()
		_ = s.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	coord := coordinator.New(s, sess, transport, log, coordinator.Options{
		OnlineCheckInterval: c.OnlineCheckInterval,
		DebounceDelay:       c.DebounceInterval,
	})
	tr := tracker.New(s)
	changes, unsubscribe := s.Subscribe(16)

	app := &App{
		auth:      services.NewAuthService(transport, sess),
		herds:     services.NewHerdService(s, tr, coord),
		bovines:   services.NewBovineService(s, tr, coord),
		dashboard: services.NewDashboardService(s),
		sync:      coord,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		log:       log.With("module", "cli"),
		changed:   make(map[models.EntityType]bool),
		start:     coord.Start,
		changes:   changes,
	}
	app.closers = []func(){
		coord.Stop,
		unsubscribe,
		func() { _ = transport.Close() },
		func() { _ = s.Close() },
	}
	return app, nil
}

func newTransport(c *config.Config) (client.Client, error) {
	switch c.Transport {
	case config.TransportGRPC:
		gc, err := client.NewGRPCClient(c.GRPCAddr)
		if err != nil {
			return nil, err
		}
		return gc, nil
	case config.TransportHTTP, "":
		return client.NewHTTPClient(c.ServerURL, c.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
}

// Run starts background sync and blocks in the REPL until the user exits or
// stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer a.close()
	defer cancel()

	if a.start != nil {
		a.start(ctx)
	}
	if a.changes != nil {
		go a.watchChanges(ctx)
	}

	printlnFn("Welcome to herdsync (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.getStatus(ctx) }, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	for _, c := range a.closers {
		c()
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.LoggedIn()
}

// watchChanges records which collections changed so the next prompt can
// tell the user that a background sync brought in new data.
func (a *App) watchChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-a.changes:
			if !ok {
				return
			}
			a.mu.Lock()
			a.changed[c.Entity] = true
			a.mu.Unlock()
		}
	}
}

// takeChanged returns and forgets the collections changed since the last call.
func (a *App) takeChanged() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.changed))
	for e := range a.changed {
		out = append(out, string(e))
	}
	clear(a.changed)
	sort.Strings(out)
	return out
}

func (a *App) getStatus(ctx context.Context) string {
	if !a.isLoggedIn() {
		return "(logged out)"
	}
	s := "?"
	if st, err := a.sync.Status(ctx); err == nil {
		s = st.String()
	}
	if changed := a.takeChanged(); len(changed) > 0 {
		s += ", changed: " + strings.Join(changed, " ")
	}
	return fmt.Sprintf("(%s)", s)
}
