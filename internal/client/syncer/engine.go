// Package syncer runs the push-then-pull reconciliation cycle between the
// local store and the remote authority.
//
// Entity types are processed parents first. For each type the engine pushes
// every dirty record in one batch, merges the acknowledgement, then pulls
// the remote changes since the stored checkpoint and merges them through the
// identity mapper. Each merge phase commits in a single transaction guarded
// by the caller's session check, so a logout in the middle of a run cannot
// repopulate a cleared store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/logging"
)

// Transport is the part of client.Client the engine needs.
type Transport interface {
	Push(ctx context.Context, batch models.Batch) (*models.Ack, error)
	Pull(ctx context.Context, entity models.EntityType, since *time.Time) (*client.PullResult, error)
}

// EntityResult reports one entity type's part of a run.
type EntityResult struct {
	Entity   models.EntityType
	Pushed   int
	Deferred int
	Pulled   int
	FullPull bool
	Err      error
}

type Result struct {
	Entities []EntityResult
}

// Err joins the per-entity failures, or returns nil when every type synced.
func (r *Result) Err() error {
	var errs []error
	for _, e := range r.Entities {
		if e.Err != nil {
			errs = append(errs, e.Err)
		}
	}
	return errors.Join(errs...)
}

type Engine struct {
	store       *store.Store
	transport   Transport
	log         logging.Logger
	now         func() time.Time
	collections map[models.EntityType]collection
}

type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(s *store.Store, t Transport, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		transport: t,
		log:       log.With("module", "syncer"),
		now:       time.Now,
		collections: map[models.EntityType]collection{
			models.EntityHerds:   herdCollection{},
			models.EntityBovines: bovineCollection{},
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// fatal reports errors that end the whole run instead of one entity type.
func fatal(err error) bool {
	return errors.Is(err, client.ErrUnauthorized) || errors.Is(err, common.ErrSessionChanged) ||
		errors.Is(err, context.Canceled)
}

// Run performs one full sync pass. guard is evaluated before every commit;
// nil disables the check. A failure of one entity type is logged and
// recorded in the result while the next type still runs; authentication
// failures and session changes abort the run and are returned.
func (e *Engine) Run(ctx context.Context, guard func() error) (*Result, error) {
	res := &Result{}
	for _, ent := range models.SyncOrder {
		er := e.syncEntity(ctx, ent, guard)
		res.Entities = append(res.Entities, er)

		if er.Err == nil {
			e.log.Info(ctx, "entity synced", "entity", ent, "pushed", er.Pushed,
				"deferred", er.Deferred, "pulled", er.Pulled, "full", er.FullPull)
			continue
		}
		if fatal(er.Err) {
			e.log.Warn(ctx, "sync aborted", "entity", ent, "error", er.Err)
			return res, er.Err
		}
		e.log.Error(ctx, "entity sync failed", "entity", ent, "error", er.Err)
	}
	return res, nil
}

func (e *Engine) syncEntity(ctx context.Context, ent models.EntityType, guard func() error) EntityResult {
	res := EntityResult{Entity: ent}
	c, ok := e.collections[ent]
	if !ok {
		res.Err = models.ErrUnknownEntity
		return res
	}

	pushed, deferred, err := e.push(ctx, c, guard)
	res.Pushed, res.Deferred = pushed, deferred
	if err != nil {
		res.Err = fmt.Errorf("push %s: %w", ent, err)
		return res
	}

	pulled, full, err := e.pull(ctx, c, pushed > 0, guard)
	res.Pulled, res.FullPull = pulled, full
	if err != nil {
		res.Err = fmt.Errorf("pull %s: %w", ent, err)
	}
	return res
}

// push sends the dirty records of c and merges the acknowledgement. It
// returns how many records were sent and how many were held back.
func (e *Engine) push(ctx context.Context, c collection, guard func() error) (int, int, error) {
	var ready, deferred []models.Record
	err := e.store.WithTx(ctx, guard, func(ctx context.Context, tx *store.Tx) error {
		var err error
		ready, deferred, err = c.dirty(ctx, tx)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	if len(deferred) > 0 {
		e.log.Debug(ctx, "records deferred", "entity", c.entity(), "count", len(deferred))
	}
	if len(ready) == 0 {
		return 0, len(deferred), nil
	}

	ack, err := e.transport.Push(ctx, c.payload(ready))
	if err != nil {
		return 0, len(deferred), err
	}

	err = e.store.WithTx(ctx, guard, func(ctx context.Context, tx *store.Tx) error {
		return acknowledge(ctx, tx, c, ready, ack)
	})
	if err != nil {
		return 0, len(deferred), fmt.Errorf("merge ack: %w", err)
	}
	return len(ready), len(deferred), nil
}

// pull fetches remote changes and merges them. The stored checkpoint is
// ignored when the local collection is empty or when a dependent type just
// pushed.
func (e *Engine) pull(ctx context.Context, c collection, pushed bool, guard func() error) (int, bool, error) {
	count, err := c.count(ctx, e.store)
	if err != nil {
		return 0, false, err
	}
	full := count == 0 || (pushed && c.entity().Dependent())

	var since *time.Time
	if !full {
		since, err = metadata.GetCheckpoint(ctx, e.store.Metadata(), c.entity())
		if err != nil {
			return 0, false, err
		}
	}
	if since == nil {
		full = true
	}

	started := e.now().UTC()
	page, err := e.transport.Pull(ctx, c.entity(), since)
	if err != nil {
		return 0, full, err
	}

	checkpoint := started
	if !page.ServerTime.IsZero() {
		checkpoint = page.ServerTime.UTC()
	}

	var merged int
	err = e.store.WithTx(ctx, guard, func(ctx context.Context, tx *store.Tx) error {
		var err error
		if merged, err = c.merge(ctx, tx, page.Data); err != nil {
			return err
		}
		return metadata.SetCheckpoint(ctx, tx.Metadata, c.entity(), checkpoint)
	})
	if err != nil {
		return 0, full, err
	}
	return merged, full, nil
}
