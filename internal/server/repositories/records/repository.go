// Package records persists the per-user herd and bovine collections.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/server/models"
)

// Repository stores herds and bovines scoped by user. Getters return
// common.ErrorNotFound when the record does not exist or belongs to another
// user. List methods return records with UpdatedAt >= since (all records
// when since is nil) ordered by UpdatedAt, then ID.
type Repository interface {
	GetHerd(ctx context.Context, userID string, id int64) (*models.Herd, error)
	FindHerdByClientRef(ctx context.Context, userID, clientRef string) (*models.Herd, error)
	CreateHerd(ctx context.Context, h *models.Herd) error
	UpdateHerd(ctx context.Context, h *models.Herd) error
	ListHerds(ctx context.Context, userID string, since *time.Time) ([]*models.Herd, error)

	GetBovine(ctx context.Context, userID string, id int64) (*models.Bovine, error)
	FindBovineByClientRef(ctx context.Context, userID, clientRef string) (*models.Bovine, error)
	CreateBovine(ctx context.Context, b *models.Bovine) error
	UpdateBovine(ctx context.Context, b *models.Bovine) error
	ListBovines(ctx context.Context, userID string, since *time.Time) ([]*models.Bovine, error)
}
