// Package bovines persists bovine records in the local SQLite store.
package bovines

import (
	"context"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
)

// Filter narrows List. Zero values mean "any".
type Filter struct {
	HerdLocalID     *int64
	Status          models.Status
	Gender          models.Gender
	Search          string
	IncludeInactive bool
}

// Repository stores bovines. Lookups return common.ErrorNotFound when no row
// matches.
type Repository interface {
	Insert(ctx context.Context, b *models.Bovine) error
	Update(ctx context.Context, b *models.Bovine) error
	Delete(ctx context.Context, localID int64) error
	Get(ctx context.Context, localID int64) (*models.Bovine, error)
	GetByRemoteID(ctx context.Context, remoteID int64) (*models.Bovine, error)
	GetByClientRef(ctx context.Context, clientRef string) (*models.Bovine, error)
	// FindUnlinkedByName returns the oldest bovine with the given name and no
	// remote identity. A non-nil herdLocalID restricts the match to that herd.
	FindUnlinkedByName(ctx context.Context, name string, herdLocalID *int64) (*models.Bovine, error)
	List(ctx context.Context, f Filter) ([]*models.Bovine, error)
	ListDirty(ctx context.Context) ([]*models.Bovine, error)
	// ListMissingHerdRemoteID returns bovines linked to a local herd whose
	// remote mirror is still empty.
	ListMissingHerdRemoteID(ctx context.Context) ([]*models.Bovine, error)
	// ListMissingHerdLocalID returns bovines that know their herd only by its
	// remote identity.
	ListMissingHerdLocalID(ctx context.Context) ([]*models.Bovine, error)
	// SetHerdRemoteID mirrors a herd's remote identity onto its bovines and
	// returns how many rows changed. It does not touch sync state.
	SetHerdRemoteID(ctx context.Context, herdLocalID, remoteID int64) (int64, error)
	Count(ctx context.Context) (int, error)
	CountDirty(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
