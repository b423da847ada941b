package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/herdsync/internal/client/identity"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/client/tracker"
)

type bovineCollection struct{}

func (bovineCollection) entity() models.EntityType { return models.EntityBovines }

// dirty repairs herd links first, then holds back bovines whose herd has no
// remote identity yet. They go out in a later run, after the herd push.
func (bovineCollection) dirty(ctx context.Context, tx *store.Tx) ([]models.Record, []models.Record, error) {
	if _, err := identity.RepairHerdLinks(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("repair herd links: %w", err)
	}

	list, err := tracker.DirtyIn(ctx, tx, models.EntityBovines)
	if err != nil {
		return nil, nil, err
	}
	var ready, deferred []models.Record
	for _, r := range list {
		if b := r.(*models.Bovine); b.HerdRemoteID == nil {
			deferred = append(deferred, r)
			continue
		}
		ready = append(ready, r)
	}
	return ready, deferred, nil
}

func (bovineCollection) payload(records []models.Record) models.Batch {
	out := make(models.BovineBatch, 0, len(records))
	for _, r := range records {
		out = append(out, models.BovineToPush(r.(*models.Bovine)))
	}
	return out
}

func (bovineCollection) get(ctx context.Context, tx *store.Tx, localID int64) (models.Record, error) {
	return tx.Bovines.Get(ctx, localID)
}

func (bovineCollection) update(ctx context.Context, tx *store.Tx, r models.Record) error {
	return tx.Bovines.Update(ctx, r.(*models.Bovine))
}

func (bovineCollection) remove(ctx context.Context, tx *store.Tx, localID int64) error {
	return tx.Bovines.Delete(ctx, localID)
}

func (bovineCollection) count(ctx context.Context, s *store.Store) (int, error) {
	return s.Bovines().Count(ctx)
}

func (bovineCollection) merge(ctx context.Context, tx *store.Tx, data json.RawMessage) (int, error) {
	var records []models.BovinePull
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("decode bovines: %w", err)
	}

	written := 0
	for _, r := range records {
		herdLocalID, err := identity.HerdLocalID(ctx, tx, r.HerdID)
		if err != nil {
			return written, err
		}

		key := identity.Key{RemoteID: r.ID, ClientRef: r.ClientRef}
		if r.Active {
			key.NaturalKey = r.Name
		}
		local, err := identity.ResolveBovine(ctx, tx.Bovines, key, herdLocalID)
		if err != nil {
			return written, err
		}

		if local == nil {
			if !r.Active {
				continue
			}
			if err := tx.Bovines.Insert(ctx, models.BovineFromPull(r, herdLocalID)); err != nil {
				return written, fmt.Errorf("insert bovine %d: %w", r.ID, err)
			}
			tx.Touch(models.EntityBovines)
			written++
			continue
		}

		if keepLocal(&local.SyncMeta, r.UpdatedAt) {
			if local.HasRemote() {
				continue
			}
			learnRemote(&local.SyncMeta, r.ID)
		} else {
			if herdLocalID == nil && r.HerdID != nil && local.HerdRemoteID != nil && *local.HerdRemoteID == *r.HerdID {
				herdLocalID = local.HerdLocalID
			}
			models.ApplyBovinePull(local, r, herdLocalID)
		}
		if err := tx.Bovines.Update(ctx, local); err != nil {
			return written, fmt.Errorf("update bovine %d: %w", local.LocalID, err)
		}
		tx.Touch(models.EntityBovines)
		written++
	}
	return written, nil
}
