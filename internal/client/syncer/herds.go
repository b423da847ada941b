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

type herdCollection struct{}

func (herdCollection) entity() models.EntityType { return models.EntityHerds }

func (herdCollection) dirty(ctx context.Context, tx *store.Tx) ([]models.Record, []models.Record, error) {
	list, err := tracker.DirtyIn(ctx, tx, models.EntityHerds)
	return list, nil, err
}

func (herdCollection) payload(records []models.Record) models.Batch {
	out := make(models.HerdBatch, 0, len(records))
	for _, r := range records {
		out = append(out, models.HerdToPush(r.(*models.Herd)))
	}
	return out
}

func (herdCollection) get(ctx context.Context, tx *store.Tx, localID int64) (models.Record, error) {
	return tx.Herds.Get(ctx, localID)
}

func (herdCollection) update(ctx context.Context, tx *store.Tx, r models.Record) error {
	return tx.Herds.Update(ctx, r.(*models.Herd))
}

func (herdCollection) remove(ctx context.Context, tx *store.Tx, localID int64) error {
	return tx.Herds.Delete(ctx, localID)
}

func (herdCollection) count(ctx context.Context, s *store.Store) (int, error) {
	return s.Herds().Count(ctx)
}

func (herdCollection) merge(ctx context.Context, tx *store.Tx, data json.RawMessage) (int, error) {
	var records []models.HerdPull
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("decode herds: %w", err)
	}

	written := 0
	for _, r := range records {
		key := identity.Key{RemoteID: r.ID, ClientRef: r.ClientRef}
		if r.Active {
			key.NaturalKey = r.Name
		}
		local, err := identity.ResolveHerd(ctx, tx.Herds, key)
		if err != nil {
			return written, err
		}

		if local == nil {
			if !r.Active {
				continue
			}
			if err := tx.Herds.Insert(ctx, models.HerdFromPull(r)); err != nil {
				return written, fmt.Errorf("insert herd %d: %w", r.ID, err)
			}
			tx.Touch(models.EntityHerds)
			written++
			continue
		}

		linked := local.HasRemote()
		if keepLocal(&local.SyncMeta, r.UpdatedAt) {
			if linked {
				continue
			}
			learnRemote(&local.SyncMeta, r.ID)
		} else {
			models.ApplyHerdPull(local, r)
		}
		if err := tx.Herds.Update(ctx, local); err != nil {
			return written, fmt.Errorf("update herd %d: %w", local.LocalID, err)
		}
		if !linked {
			if _, err := identity.CascadeForeignRemoteID(ctx, tx, models.EntityHerds, local.LocalID, r.ID); err != nil {
				return written, err
			}
		}
		tx.Touch(models.EntityHerds)
		written++
	}
	return written, nil
}
