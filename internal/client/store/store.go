// Package store is the local document store: a SQLite database holding the
// herd and bovine collections plus the metadata side table.
//
// Writes that belong together go through WithTx so a reconciliation phase
// commits atomically. Every committed transaction that touched a collection
// is announced to subscribers as a Change; UI-level reactivity is built on
// top of that stream.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/herdsync/internal/client/migrations"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/herds"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/herdsync/internal/dbx"

	_ "modernc.org/sqlite"
)

// Change announces that a collection was modified by a committed transaction.
type Change struct {
	Entity models.EntityType
}

type Store struct {
	db *sql.DB

	herds    herds.Repository
	bovines  bovines.Repository
	metadata metadata.Repository

	mu      sync.Mutex
	nextSub int
	subs    map[int]*subscriber
}

// Open opens (creating if needed) the SQLite database at path and applies
// migrations. The pool is limited to one connection: SQLite serializes
// writers anyway and this keeps transactions from tripping over each other.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		herds:    herds.NewSQLiteRepository(db),
		bovines:  bovines.NewSQLiteRepository(db),
		metadata: metadata.NewSQLiteRepository(db),
		subs:     make(map[int]*subscriber),
	}
}

func (s *Store) Herds() herds.Repository       { return s.herds }
func (s *Store) Bovines() bovines.Repository   { return s.bovines }
func (s *Store) Metadata() metadata.Repository { return s.metadata }
func (s *Store) DB() *sql.DB                   { return s.db }

// Close stops every subscription and closes the database.
func (s *Store) Close() error {
	s.closeSubscribers()
	return s.db.Close()
}

// Tx exposes repositories bound to one transaction. Callers mark the
// collections they modified with Touch.
type Tx struct {
	Herds    herds.Repository
	Bovines  bovines.Repository
	Metadata metadata.Repository

	touched map[models.EntityType]struct{}
}

func (tx *Tx) Touch(entities ...models.EntityType) {
	for _, e := range entities {
		tx.touched[e] = struct{}{}
	}
}

// WithTx runs fn inside a transaction. guard, when non-nil, is checked right
// before commit; its error aborts the transaction.
func (s *Store) WithTx(ctx context.Context, guard func() error, fn func(ctx context.Context, tx *Tx) error) error {
	var touched map[models.EntityType]struct{}

	err := dbx.WithGuardedTx(ctx, s.db, nil, guard, func(ctx context.Context, q dbx.DBTX) error {
		tx := &Tx{
			Herds:    herds.NewSQLiteRepository(q),
			Bovines:  bovines.NewSQLiteRepository(q),
			Metadata: metadata.NewSQLiteRepository(q),
			touched:  make(map[models.EntityType]struct{}),
		}
		touched = tx.touched
		return fn(ctx, tx)
	})
	if err != nil {
		return err
	}

	for _, e := range models.SyncOrder {
		if _, ok := touched[e]; ok {
			s.publish(Change{Entity: e})
		}
	}
	return nil
}

// Clear wipes both collections and the whole metadata table in one
// transaction.
func (s *Store) Clear(ctx context.Context) error {
	return s.WithTx(ctx, nil, func(ctx context.Context, tx *Tx) error {
		if err := tx.Bovines.Clear(ctx); err != nil {
			return err
		}
		if err := tx.Herds.Clear(ctx); err != nil {
			return err
		}
		if err := tx.Metadata.Clear(ctx); err != nil {
			return err
		}
		tx.Touch(models.SyncOrder...)
		return nil
	})
}

// PendingCount returns how many records still need a push.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	h, err := s.herds.CountDirty(ctx)
	if err != nil {
		return 0, err
	}
	b, err := s.bovines.CountDirty(ctx)
	if err != nil {
		return 0, err
	}
	return h + b, nil
}
