package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
)

// PullResult is the raw answer to a pull. Data is a JSON array of remote
// records; ServerTime is zero when the remote did not report its clock.
type PullResult struct {
	Data       json.RawMessage
	ServerTime time.Time
}

type Client interface {
	Close() error
	SetToken(token string)
	Register(ctx context.Context, name, email, password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	Ping(ctx context.Context) error
	// Push sends one batch to the collection of its entity type.
	Push(ctx context.Context, batch models.Batch) (*models.Ack, error)
	// Pull returns the records changed since the given time, or all of them
	// when since is nil.
	Pull(ctx context.Context, entity models.EntityType, since *time.Time) (*PullResult, error)
}
