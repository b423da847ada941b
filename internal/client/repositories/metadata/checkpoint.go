package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/timex"
)

const (
	checkpointPrefix = "last_sync_"
	TokenKey         = "auth_token"
)

// CheckpointKey is the metadata key of an entity's pull checkpoint.
func CheckpointKey(e models.EntityType) string {
	return checkpointPrefix + string(e)
}

// GetCheckpoint returns the time of the last successful pull, or nil when
// the entity was never pulled.
func GetCheckpoint(ctx context.Context, r Repository, e models.EntityType) (*time.Time, error) {
	v, err := r.Get(ctx, CheckpointKey(e))
	if err != nil || v == nil {
		return nil, err
	}
	t, err := timex.ParseDB(string(v))
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", e, err)
	}
	return &t, nil
}

func SetCheckpoint(ctx context.Context, r Repository, e models.EntityType, t time.Time) error {
	return r.Set(ctx, CheckpointKey(e), []byte(timex.FormatDB(t)))
}

// ClearCheckpoints forgets every checkpoint, forcing full pulls.
func ClearCheckpoints(ctx context.Context, r Repository) error {
	return r.DeletePrefix(ctx, checkpointPrefix)
}
