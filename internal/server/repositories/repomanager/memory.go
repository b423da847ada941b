package repomanager

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memoryState is one version of the in-memory database. A published version
// is never modified; a transaction writes to a clone and publishes it on
// commit. Records are stored and returned by value so callers never alias
// stored rows.
type memoryState struct {
	users      map[string]models.User
	herds      map[int64]models.Herd
	bovines    map[int64]models.Bovine
	nextHerd   int64
	nextBovine int64
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		users:      maps.Clone(s.users),
		herds:      maps.Clone(s.herds),
		bovines:    maps.Clone(s.bovines),
		nextHerd:   s.nextHerd,
		nextBovine: s.nextBovine,
	}
}

type memoryDB struct {
	txMu    sync.Mutex // one transaction at a time
	mu      sync.RWMutex
	current *memoryState
}

func (db *memoryDB) load() *memoryState {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.current
}

func (db *memoryDB) publish(s *memoryState) {
	db.mu.Lock()
	db.current = s
	db.mu.Unlock()
}

// memoryTx clones the state on its first write.
type memoryTx struct {
	base   *memoryState
	staged *memoryState
}

func (t *memoryTx) read() *memoryState {
	if t.staged != nil {
		return t.staged
	}
	return t.base
}

func (t *memoryTx) write() *memoryState {
	if t.staged == nil {
		t.staged = t.base.clone()
	}
	return t.staged
}

// MemoryRepositoryManager keeps everything in process memory. Transactions
// are serialized; reads outside a transaction see the last committed state.
// Writes outside a transaction run as a transaction of their own.
type MemoryRepositoryManager struct {
	db *memoryDB
	tx *memoryTx
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		db: &memoryDB{current: &memoryState{
			users:   map[string]models.User{},
			herds:   map[int64]models.Herd{},
			bovines: map[int64]models.Bovine{},
		}},
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository     { return memoryUsers{m} }
func (m *MemoryRepositoryManager) Records() records.Repository { return memoryRecords{m} }
func (m *MemoryRepositoryManager) Ping(context.Context) error  { return nil }
func (m *MemoryRepositoryManager) Close() error                { return nil }

// WithTx runs fn against a private copy of the state. A transaction's
// repositories must not be shared between goroutines.
func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx RepositoryManager) error) error {
	if m.tx != nil {
		return fn(ctx, m)
	}

	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	tx := &memoryTx{base: m.db.load()}
	if err := fn(ctx, &MemoryRepositoryManager{db: m.db, tx: tx}); err != nil {
		return err
	}
	if tx.staged != nil {
		m.db.publish(tx.staged)
	}
	return nil
}

func (m *MemoryRepositoryManager) view() *memoryState {
	if m.tx != nil {
		return m.tx.read()
	}
	return m.db.load()
}

func (m *MemoryRepositoryManager) update(ctx context.Context, fn func(s *memoryState) error) error {
	if m.tx != nil {
		return fn(m.tx.write())
	}
	return m.WithTx(ctx, func(_ context.Context, tx RepositoryManager) error {
		return fn(tx.(*MemoryRepositoryManager).tx.write())
	})
}

type memoryUsers struct{ m *MemoryRepositoryManager }

func (r memoryUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	err := r.m.update(ctx, func(s *memoryState) error {
		for _, existing := range s.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return common.ErrorAlreadyExists
			}
		}
		u.ID = uuid.NewString()
		u.CreatedAt = time.Now().UTC()
		s.users[u.ID] = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.m.view().users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

// Lock is a no-op: transactions already run one at a time.
func (r memoryUsers) Lock(context.Context, string, users.LockMode) error { return nil }

type memoryRecords struct{ m *MemoryRepositoryManager }

func (r memoryRecords) GetHerd(_ context.Context, userID string, id int64) (*models.Herd, error) {
	h, ok := r.m.view().herds[id]
	if !ok || h.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return &h, nil
}

func (r memoryRecords) FindHerdByClientRef(_ context.Context, userID, clientRef string) (*models.Herd, error) {
	for _, h := range r.m.view().herds {
		if h.UserID == userID && h.ClientRef == clientRef {
			return &h, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memoryRecords) CreateHerd(ctx context.Context, h *models.Herd) error {
	return r.m.update(ctx, func(s *memoryState) error {
		s.nextHerd++
		h.ID = s.nextHerd
		s.herds[h.ID] = *h
		return nil
	})
}

func (r memoryRecords) UpdateHerd(ctx context.Context, h *models.Herd) error {
	return r.m.update(ctx, func(s *memoryState) error {
		cur, ok := s.herds[h.ID]
		if !ok || cur.UserID != h.UserID {
			return common.ErrorNotFound
		}
		s.herds[h.ID] = *h
		return nil
	})
}

func (r memoryRecords) ListHerds(_ context.Context, userID string, since *time.Time) ([]*models.Herd, error) {
	out := make([]*models.Herd, 0)
	for _, h := range r.m.view().herds {
		if h.UserID == userID && (since == nil || !h.UpdatedAt.Before(*since)) {
			out = append(out, &h)
		}
	}
	sortByUpdated(out, func(h *models.Herd) (time.Time, int64) { return h.UpdatedAt, h.ID })
	return out, nil
}

func (r memoryRecords) GetBovine(_ context.Context, userID string, id int64) (*models.Bovine, error) {
	b, ok := r.m.view().bovines[id]
	if !ok || b.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return &b, nil
}

func (r memoryRecords) FindBovineByClientRef(_ context.Context, userID, clientRef string) (*models.Bovine, error) {
	for _, b := range r.m.view().bovines {
		if b.UserID == userID && b.ClientRef == clientRef {
			return &b, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memoryRecords) CreateBovine(ctx context.Context, b *models.Bovine) error {
	return r.m.update(ctx, func(s *memoryState) error {
		s.nextBovine++
		b.ID = s.nextBovine
		s.bovines[b.ID] = *b
		return nil
	})
}

func (r memoryRecords) UpdateBovine(ctx context.Context, b *models.Bovine) error {
	return r.m.update(ctx, func(s *memoryState) error {
		cur, ok := s.bovines[b.ID]
		if !ok || cur.UserID != b.UserID {
			return common.ErrorNotFound
		}
		s.bovines[b.ID] = *b
		return nil
	})
}

func (r memoryRecords) ListBovines(_ context.Context, userID string, since *time.Time) ([]*models.Bovine, error) {
	out := make([]*models.Bovine, 0)
	for _, b := range r.m.view().bovines {
		if b.UserID == userID && (since == nil || !b.UpdatedAt.Before(*since)) {
			out = append(out, &b)
		}
	}
	sortByUpdated(out, func(b *models.Bovine) (time.Time, int64) { return b.UpdatedAt, b.ID })
	return out, nil
}

func sortByUpdated[T any](items []T, key func(T) (time.Time, int64)) {
	slices.SortFunc(items, func(a, b T) int {
		ta, ia := key(a)
		tb, ib := key(b)
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return cmp.Compare(ia, ib)
	})
}
