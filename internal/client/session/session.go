// Package session holds the bearer token and the authentication epoch.
//
// The epoch increases on every login and logout. A sync run captures it at
// start and checks it before each commit, so writes computed for one session
// never land in the store after the session ended.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/herdsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

// TokenSetter is the transport side of a session.
type TokenSetter interface {
	SetToken(token string)
}

type Session struct {
	store     *store.Store
	transport TokenSetter

	epoch atomic.Uint64

	mu    sync.RWMutex
	token string
}

func New(s *store.Store, t TokenSetter) *Session {
	return &Session{store: s, transport: t}
}

// Restore loads a token persisted by an earlier run. It reports whether one
// was found.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	v, err := s.store.Metadata().Get(ctx, metadata.TokenKey)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if len(v) == 0 {
		return false, nil
	}
	s.set(string(v))
	return true, nil
}

// Login starts a new session. Data cached for a previous session is dropped.
func (s *Session) Login(ctx context.Context, token string) error {
	s.epoch.Add(1)
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear local store: %w", err)
	}
	if err := s.store.Metadata().Set(ctx, metadata.TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.set(token)
	return nil
}

// Logout ends the session and wipes the local store, checkpoints included.
// The epoch moves first so an in-flight run cannot commit afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.epoch.Add(1)
	s.set("")
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear local store: %w", err)
	}
	return nil
}

func (s *Session) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.transport.SetToken(token)
}

func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) Epoch() uint64 {
	return s.epoch.Load()
}

// Guard returns a check that fails with common.ErrSessionChanged once the
// epoch moved past the captured value.
func (s *Session) Guard(epoch uint64) func() error {
	return func() error {
		if s.epoch.Load() != epoch {
			return common.ErrSessionChanged
		}
		return nil
	}
}
