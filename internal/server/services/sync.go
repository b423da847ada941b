package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/users"
	"github.com/go-playground/validator/v10"
)

// MaxBatchSize caps the records accepted by one push.
const MaxBatchSize = 1000

// PushResult acknowledges a push batch. Items follow the batch order.
type PushResult struct {
	Items      []models.AckItem
	ServerTime time.Time
}

// PullResult carries the changed records, a []*models.Herd or
// []*models.Bovine, and the clock reading taken before they were read.
type PullResult struct {
	Records    any
	Count      int
	ServerTime time.Time
}

// SyncService applies push batches and answers pulls, scoped per user.
type SyncService struct {
	repomanager repomanager.RepositoryManager
	validate    *validator.Validate
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewSyncService(m repomanager.RepositoryManager, mt *metrics.Metrics) *SyncService {
	return &SyncService{
		repomanager: m,
		validate:    newValidator(),
		metrics:     mt,
		now:         time.Now,
	}
}

// timestamp reads the clock at the precision Postgres stores.
func (s *SyncService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type pushCounts map[string]int

func (c pushCounts) add(active, created bool) {
	switch {
	case !active:
		c[metrics.OpDeleted]++
	case created:
		c[metrics.OpCreated]++
	default:
		c[metrics.OpUpdated]++
	}
}

// Push applies one batch in a single transaction: either every record is
// stored or none is. A record with an id updates that record; one without an
// id is matched by clientRef first, so a retried create does not duplicate,
// and created otherwise. Inactive records are kept as tombstones.
//
// The batch is stamped after the user's lock is taken, so no pull can report
// a server time past a write it has not seen.
func (s *SyncService) Push(ctx context.Context, userID string, entity models.Entity, data json.RawMessage) (*PushResult, error) {
	var apply func(ctx context.Context, repo records.Repository, now time.Time, counts pushCounts) ([]models.AckItem, error)
	switch entity {
	case models.EntityHerds:
		batch, err := decodeBatch[models.HerdInput](data, s.validate)
		if err != nil {
			return nil, err
		}
		apply = func(ctx context.Context, repo records.Repository, now time.Time, counts pushCounts) ([]models.AckItem, error) {
			return pushHerds(ctx, repo, userID, batch, now, counts)
		}
	case models.EntityBovines:
		batch, err := decodeBatch[models.BovineInput](data, s.validate)
		if err != nil {
			return nil, err
		}
		apply = func(ctx context.Context, repo records.Repository, now time.Time, counts pushCounts) ([]models.AckItem, error) {
			return pushBovines(ctx, repo, userID, batch, now, counts)
		}
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntity, entity)
	}

	var (
		items  []models.AckItem
		now    time.Time
		counts pushCounts
	)
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx repomanager.RepositoryManager) error {
		if err := tx.Users().Lock(ctx, userID, users.LockExclusive); err != nil {
			return err
		}
		now = s.timestamp()
		counts = pushCounts{}
		var err error
		items, err = apply(ctx, tx.Records(), now, counts)
		return err
	})
	if err != nil {
		return nil, err
	}

	for op, n := range counts {
		s.metrics.RecordPushed(string(entity), op, n)
	}
	return &PushResult{Items: items, ServerTime: now}, nil
}

// decodeBatch parses a JSON array and validates every element.
func decodeBatch[T any](data json.RawMessage, v *validator.Validate) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var batch []T
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds %d records", common.ErrorValidation, len(batch), MaxBatchSize)
	}
	for i := range batch {
		if err := v.Struct(&batch[i]); err != nil {
			return nil, validationError(fmt.Sprintf("record %d", i), err)
		}
	}
	return batch, nil
}

func recordNotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, common.ErrorNotFound)
}

func pushHerds(ctx context.Context, repo records.Repository, userID string, batch []models.HerdInput, now time.Time, counts pushCounts) ([]models.AckItem, error) {
	items := make([]models.AckItem, 0, len(batch))
	for _, in := range batch {
		var h *models.Herd
		var err error
		switch {
		case in.ID != nil:
			h, err = repo.GetHerd(ctx, userID, *in.ID)
			if errors.Is(err, common.ErrorNotFound) {
				return nil, recordNotFound("herd", *in.ID)
			}
		case in.ClientRef != "":
			h, err = repo.FindHerdByClientRef(ctx, userID, in.ClientRef)
			if errors.Is(err, common.ErrorNotFound) {
				h, err = nil, nil
			}
		}
		if err != nil {
			return nil, err
		}

		created := h == nil
		if created {
			h = &models.Herd{UserID: userID, ClientRef: in.ClientRef}
		} else if in.ClientRef != "" && h.ClientRef == "" {
			h.ClientRef = in.ClientRef
		}
		h.Name = strings.TrimSpace(in.Name)
		h.Active = in.Active
		h.UpdatedAt = now

		if created {
			err = repo.CreateHerd(ctx, h)
		} else {
			err = repo.UpdateHerd(ctx, h)
		}
		if err != nil {
			return nil, err
		}
		counts.add(h.Active, created)
		items = append(items, models.AckItem{ID: h.ID, ClientRef: h.ClientRef})
	}
	return items, nil
}

func pushBovines(ctx context.Context, repo records.Repository, userID string, batch []models.BovineInput, now time.Time, counts pushCounts) ([]models.AckItem, error) {
	items := make([]models.AckItem, 0, len(batch))
	for i, in := range batch {
		if in.HerdID != nil {
			if _, err := repo.GetHerd(ctx, userID, *in.HerdID); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return nil, fmt.Errorf("%w: record %d: herd %d does not exist", common.ErrorValidation, i, *in.HerdID)
				}
				return nil, err
			}
		}

		var b *models.Bovine
		var err error
		switch {
		case in.ID != nil:
			b, err = repo.GetBovine(ctx, userID, *in.ID)
			if errors.Is(err, common.ErrorNotFound) {
				return nil, recordNotFound("bovine", *in.ID)
			}
		case in.ClientRef != "":
			b, err = repo.FindBovineByClientRef(ctx, userID, in.ClientRef)
			if errors.Is(err, common.ErrorNotFound) {
				b, err = nil, nil
			}
		}
		if err != nil {
			return nil, err
		}

		created := b == nil
		if created {
			b = &models.Bovine{UserID: userID, ClientRef: in.ClientRef}
		} else if in.ClientRef != "" && b.ClientRef == "" {
			b.ClientRef = in.ClientRef
		}
		b.Name = strings.TrimSpace(in.Name)
		b.Status = in.Status
		b.Gender = in.Gender
		b.Breed = strings.TrimSpace(in.Breed)
		b.Weight = in.Weight
		b.BirthDate = in.BirthDate
		b.Description = in.Description
		b.HerdID = in.HerdID
		b.Active = in.Active
		b.UpdatedAt = now

		if created {
			err = repo.CreateBovine(ctx, b)
		} else {
			err = repo.UpdateBovine(ctx, b)
		}
		if err != nil {
			return nil, err
		}
		counts.add(b.Active, created)
		items = append(items, models.AckItem{ID: b.ID, ClientRef: b.ClientRef})
	}
	return items, nil
}

// Pull returns the user's records of the entity changed at or after since,
// tombstones included. It holds the user's lock shared, so pushes for the
// user are either fully visible or stamped after ServerTime.
func (s *SyncService) Pull(ctx context.Context, userID string, entity models.Entity, since *time.Time) (*PullResult, error) {
	if entity != models.EntityHerds && entity != models.EntityBovines {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntity, entity)
	}

	res := &PullResult{}
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx repomanager.RepositoryManager) error {
		if err := tx.Users().Lock(ctx, userID, users.LockShared); err != nil {
			return err
		}
		res.ServerTime = s.timestamp()
		repo := tx.Records()

		if entity == models.EntityHerds {
			list, err := repo.ListHerds(ctx, userID, since)
			if err != nil {
				return err
			}
			if list == nil {
				list = []*models.Herd{}
			}
			res.Records, res.Count = list, len(list)
			return nil
		}

		list, err := repo.ListBovines(ctx, userID, since)
		if err != nil {
			return err
		}
		if list == nil {
			list = []*models.Bovine{}
		}
		res.Records, res.Count = list, len(list)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPulled(string(entity), res.Count)
	return res, nil
}
