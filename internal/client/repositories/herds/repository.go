// Package herds persists herd records in the local SQLite store.
package herds

import (
	"context"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
)

// Repository stores herds. Lookups return common.ErrorNotFound when no row
// matches.
type Repository interface {
	Insert(ctx context.Context, h *models.Herd) error
	Update(ctx context.Context, h *models.Herd) error
	Delete(ctx context.Context, localID int64) error
	Get(ctx context.Context, localID int64) (*models.Herd, error)
	GetByRemoteID(ctx context.Context, remoteID int64) (*models.Herd, error)
	GetByClientRef(ctx context.Context, clientRef string) (*models.Herd, error)
	// FindUnlinkedByName returns the oldest herd with the given name that has
	// no remote identity yet.
	FindUnlinkedByName(ctx context.Context, name string) (*models.Herd, error)
	FindActiveByName(ctx context.Context, name string) ([]*models.Herd, error)
	List(ctx context.Context, includeInactive bool) ([]*models.Herd, error)
	ListDirty(ctx context.Context) ([]*models.Herd, error)
	Count(ctx context.Context) (int, error)
	CountDirty(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
