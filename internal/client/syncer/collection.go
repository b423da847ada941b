package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/identity"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

// collection adapts one entity type to the engine.
type collection interface {
	entity() models.EntityType
	// dirty returns the records to push now and the ones that must wait.
	dirty(ctx context.Context, tx *store.Tx) (ready, deferred []models.Record, err error)
	payload(records []models.Record) models.Batch
	get(ctx context.Context, tx *store.Tx, localID int64) (models.Record, error)
	update(ctx context.Context, tx *store.Tx, r models.Record) error
	remove(ctx context.Context, tx *store.Tx, localID int64) error
	count(ctx context.Context, s *store.Store) (int, error)
	// merge applies a JSON array of pulled records and returns how many
	// local rows it wrote.
	merge(ctx context.Context, tx *store.Tx, data json.RawMessage) (int, error)
}

// acknowledge settles a pushed batch. Remote ids found in the ack are stored
// and cascaded first. A record edited while the push was in flight keeps its
// dirty state; otherwise tombstones are removed and the rest marked synced.
func acknowledge(ctx context.Context, tx *store.Tx, c collection, sent []models.Record, ack *models.Ack) error {
	for i, r := range sent {
		m := r.Meta()
		cur, err := c.get(ctx, tx, m.LocalID)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		cm := cur.Meta()

		learned := false
		if cm.RemoteID == nil {
			if id, ok := ack.RemoteIDFor(i, m.ClientRef, len(sent)); ok {
				cm.RemoteID = &id
				learned = true
			}
		}
		if learned {
			if _, err := identity.CascadeForeignRemoteID(ctx, tx, c.entity(), cm.LocalID, *cm.RemoteID); err != nil {
				return err
			}
		}

		editedInFlight := cm.SyncState != m.SyncState || !cm.UpdatedAt.Equal(m.UpdatedAt)
		switch {
		case editedInFlight:
			if !learned {
				continue
			}
			if cm.SyncState == models.SyncStateCreated {
				cm.SyncState = models.SyncStateUpdated
			}
			err = c.update(ctx, tx, cur)
		case m.SyncState == models.SyncStateDeleted:
			err = c.remove(ctx, tx, cm.LocalID)
		default:
			cm.SyncState = models.SyncStateSynced
			err = c.update(ctx, tx, cur)
		}
		if err != nil {
			return err
		}
		tx.Touch(c.entity())
	}
	return nil
}

// keepLocal reports whether a pulled record must not overwrite the local
// one: a pending tombstone, or a pending edit newer than the remote copy.
func keepLocal(m *models.SyncMeta, remoteUpdated time.Time) bool {
	if !m.SyncState.IsDirty() {
		return false
	}
	return m.SyncState == models.SyncStateDeleted || m.UpdatedAt.After(remoteUpdated)
}

// learnRemote links a kept local record to its remote copy without touching
// its fields.
func learnRemote(m *models.SyncMeta, remoteID int64) {
	id := remoteID
	m.RemoteID = &id
	if m.SyncState == models.SyncStateCreated {
		m.SyncState = models.SyncStateUpdated
	}
}
