// Package identity translates between local and remote identifiers during
// reconciliation.
//
// A remote record is matched to a local one by remote id first, then by the
// client reference the record was created with, and finally by its natural
// key (the name) among local records that have no remote id yet. The last
// step keeps a record created offline from being inserted a second time when
// its remote copy comes back before the push acknowledgement was merged. It
// never pairs two records that carry different client references.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/herds"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

// Key identifies a remote record for matching.
type Key struct {
	RemoteID   int64
	ClientRef  string
	NaturalKey string
}

// miss turns ErrorNotFound into (nil, nil) so resolution can fall through.
func miss[T any](v *T, err error) (*T, error) {
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return v, err
}

// ResolveHerd returns the local herd matching k, or nil.
func ResolveHerd(ctx context.Context, repo herds.Repository, k Key) (*models.Herd, error) {
	if k.RemoteID != 0 {
		h, err := miss(repo.GetByRemoteID(ctx, k.RemoteID))
		if h != nil || err != nil {
			return h, err
		}
	}
	if k.ClientRef != "" {
		h, err := miss(repo.GetByClientRef(ctx, k.ClientRef))
		if err != nil {
			return nil, err
		}
		if h != nil && (h.RemoteID == nil || *h.RemoteID == k.RemoteID) {
			return h, nil
		}
	}
	if k.NaturalKey == "" {
		return nil, nil
	}
	h, err := miss(repo.FindUnlinkedByName(ctx, k.NaturalKey))
	if h == nil || err != nil || !sameOrigin(k.ClientRef, h.ClientRef) {
		return nil, err
	}
	return h, nil
}

// sameOrigin reports whether two client references may denote one record.
func sameOrigin(remote, local string) bool {
	return remote == "" || local == "" || remote == local
}

// ResolveBovine returns the local bovine matching k, or nil. When the
// owning herd is known locally the natural-key fallback only considers that
// herd.
func ResolveBovine(ctx context.Context, repo bovines.Repository, k Key, herdLocalID *int64) (*models.Bovine, error) {
	if k.RemoteID != 0 {
		b, err := miss(repo.GetByRemoteID(ctx, k.RemoteID))
		if b != nil || err != nil {
			return b, err
		}
	}
	if k.ClientRef != "" {
		b, err := miss(repo.GetByClientRef(ctx, k.ClientRef))
		if err != nil {
			return nil, err
		}
		if b != nil && (b.RemoteID == nil || *b.RemoteID == k.RemoteID) {
			return b, nil
		}
	}
	if k.NaturalKey == "" {
		return nil, nil
	}
	b, err := miss(repo.FindUnlinkedByName(ctx, k.NaturalKey, herdLocalID))
	if b == nil || err != nil || !sameOrigin(k.ClientRef, b.ClientRef) {
		return nil, err
	}
	return b, nil
}

// ResolveLocal returns the local id matching k for the entity type, or nil.
func ResolveLocal(ctx context.Context, tx *store.Tx, e models.EntityType, k Key) (*int64, error) {
	switch e {
	case models.EntityHerds:
		h, err := ResolveHerd(ctx, tx.Herds, k)
		if err != nil || h == nil {
			return nil, err
		}
		return &h.LocalID, nil
	case models.EntityBovines:
		b, err := ResolveBovine(ctx, tx.Bovines, k, nil)
		if err != nil || b == nil {
			return nil, err
		}
		return &b.LocalID, nil
	}
	return nil, models.ErrUnknownEntity
}

// HerdLocalID translates a herd's remote id into local space. A nil input
// or an unknown herd yields nil.
func HerdLocalID(ctx context.Context, tx *store.Tx, herdRemoteID *int64) (*int64, error) {
	if herdRemoteID == nil {
		return nil, nil
	}
	return ResolveLocal(ctx, tx, models.EntityHerds, Key{RemoteID: *herdRemoteID})
}

// CascadeForeignRemoteID mirrors a parent's newly learned remote id onto its
// dependents. Entity types without dependents are a no-op.
func CascadeForeignRemoteID(ctx context.Context, tx *store.Tx, parent models.EntityType, parentLocalID, remoteID int64) (int64, error) {
	if parent != models.EntityHerds {
		return 0, nil
	}
	n, err := tx.Bovines.SetHerdRemoteID(ctx, parentLocalID, remoteID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		tx.Touch(models.EntityBovines)
	}
	return n, nil
}

// RepairHerdLinks restores the herd mirror on every bovine: a missing
// remote mirror is filled from the local herd, and a missing local key is
// filled from the remote mirror. It returns the number of bovines fixed.
func RepairHerdLinks(ctx context.Context, tx *store.Tx) (int, error) {
	fixed := 0

	missingRemote, err := tx.Bovines.ListMissingHerdRemoteID(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]bool)
	for _, b := range missingRemote {
		if seen[*b.HerdLocalID] {
			continue
		}
		seen[*b.HerdLocalID] = true
		h, err := miss(tx.Herds.Get(ctx, *b.HerdLocalID))
		if err != nil {
			return fixed, err
		}
		if h == nil || h.RemoteID == nil {
			continue
		}
		n, err := CascadeForeignRemoteID(ctx, tx, models.EntityHerds, h.LocalID, *h.RemoteID)
		if err != nil {
			return fixed, err
		}
		fixed += int(n)
	}

	missingLocal, err := tx.Bovines.ListMissingHerdLocalID(ctx)
	if err != nil {
		return fixed, err
	}
	for _, b := range missingLocal {
		local, err := HerdLocalID(ctx, tx, b.HerdRemoteID)
		if err != nil {
			return fixed, err
		}
		if local == nil {
			continue
		}
		b.HerdLocalID = local
		if err := tx.Bovines.Update(ctx, b); err != nil {
			return fixed, fmt.Errorf("relink bovine %d: %w", b.LocalID, err)
		}
		tx.Touch(models.EntityBovines)
		fixed++
	}
	return fixed, nil
}
