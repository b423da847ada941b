// Package tracker tags records with the sync work they need at the moment a
// user mutates them. Reconciliation writes made by the sync engine bypass it.
package tracker

import (
	"context"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/herds"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/google/uuid"
)

type Tracker struct {
	store *store.Store
	now   func() time.Time
}

type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(s *store.Store, opts ...Option) *Tracker {
	t := &Tracker{store: s, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tracker) stamp(m *models.SyncMeta, state models.SyncState) {
	m.SyncState = state
	m.UpdatedAt = t.now().UTC()
}

// Created prepares a new record: active, state created, fresh client ref.
func (t *Tracker) Created(r models.Record) {
	m := r.Meta()
	m.LocalID = 0
	m.RemoteID = nil
	if m.ClientRef == "" {
		m.ClientRef = uuid.NewString()
	}
	m.Active = true
	t.stamp(m, models.SyncStateCreated)
}

// Updated marks an edit. A record the remote has never acknowledged stays
// created so the next push still sends it as a create.
func (t *Tracker) Updated(r models.Record) {
	m := r.Meta()
	if m.SyncState == models.SyncStateCreated && !m.HasRemote() {
		t.stamp(m, models.SyncStateCreated)
		return
	}
	t.stamp(m, models.SyncStateUpdated)
}

// Deleted turns the record into a tombstone that survives until pushed.
func (t *Tracker) Deleted(r models.Record) {
	m := r.Meta()
	m.Active = false
	t.stamp(m, models.SyncStateDeleted)
}

// Dirty returns every record of the entity type that still needs a push.
func (t *Tracker) Dirty(ctx context.Context, e models.EntityType) ([]models.Record, error) {
	return dirty(ctx, t.store.Herds(), t.store.Bovines(), e)
}

// DirtyIn is Dirty read through an open transaction.
func DirtyIn(ctx context.Context, tx *store.Tx, e models.EntityType) ([]models.Record, error) {
	return dirty(ctx, tx.Herds, tx.Bovines, e)
}

func dirty(ctx context.Context, hr herds.Repository, br bovines.Repository, e models.EntityType) ([]models.Record, error) {
	var out []models.Record
	switch e {
	case models.EntityHerds:
		list, err := hr.ListDirty(ctx)
		if err != nil {
			return nil, err
		}
		for _, h := range list {
			out = append(out, h)
		}
	case models.EntityBovines:
		list, err := br.ListDirty(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range list {
			out = append(out, b)
		}
	default:
		return nil, models.ErrUnknownEntity
	}
	return out, nil
}

// PendingCount is the number shown by the "N pending" indicator.
func (t *Tracker) PendingCount(ctx context.Context) (int, error) {
	return t.store.PendingCount(ctx)
}
