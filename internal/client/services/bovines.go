package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/client/tracker"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

// BovineInput carries the user-editable fields of a bovine.
type BovineInput struct {
	Name          string
	Status        models.Status
	Gender        models.Gender
	Breed         string
	Weight        *float64
	BirthDate     string
	Description   string
	HerdLocalID   int64
	MotherLocalID *int64
	FatherLocalID *int64
}

type BovineService interface {
	List(ctx context.Context, f bovines.Filter) ([]*models.Bovine, error)
	Get(ctx context.Context, localID int64) (*models.Bovine, error)
	// Save creates a bovine when localID is zero and updates it otherwise.
	Save(ctx context.Context, localID int64, in BovineInput) (*models.Bovine, error)
	Delete(ctx context.Context, localID int64) error
	// BatchMove reassigns bovines to another herd in one transaction.
	BatchMove(ctx context.Context, localIDs []int64, herdLocalID int64) error
	BatchDelete(ctx context.Context, localIDs []int64) error
	BatchUpdateStatus(ctx context.Context, localIDs []int64, status models.Status) error
}

type bovineService struct {
	store   *store.Store
	tracker *tracker.Tracker
	sync    SyncRequester
}

func NewBovineService(s *store.Store, t *tracker.Tracker, r SyncRequester) BovineService {
	return &bovineService{store: s, tracker: t, sync: requesterOrNoop(r)}
}

func (s *bovineService) List(ctx context.Context, f bovines.Filter) ([]*models.Bovine, error) {
	f.IncludeInactive = false
	return s.store.Bovines().List(ctx, f)
}

func (s *bovineService) Get(ctx context.Context, localID int64) (*models.Bovine, error) {
	return activeBovine(ctx, s.store.Bovines(), localID)
}

func activeBovine(ctx context.Context, repo bovines.Repository, localID int64) (*models.Bovine, error) {
	b, err := repo.Get(ctx, localID)
	if errors.Is(err, common.ErrorNotFound) || (err == nil && !b.Active) {
		return nil, fmt.Errorf("bovine %d: %w", localID, ErrNotFound)
	}
	return b, err
}

// assignHerd points b at the herd and mirrors the herd's remote id as known
// right now. A herd not yet synced leaves the mirror empty; the sync engine
// fills it in later.
func assignHerd(ctx context.Context, tx *store.Tx, b *models.Bovine, herdLocalID int64) error {
	h, err := activeHerd(ctx, tx.Herds.Get, herdLocalID)
	if err != nil {
		return err
	}
	id := h.LocalID
	b.HerdLocalID = &id
	b.HerdRemoteID = h.RemoteID
	return nil
}

func (s *bovineService) Save(ctx context.Context, localID int64, in BovineInput) (*models.Bovine, error) {
	var out *models.Bovine
	err := s.store.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
		b := &models.Bovine{}
		if localID != 0 {
			cur, err := activeBovine(ctx, tx.Bovines, localID)
			if err != nil {
				return err
			}
			b = cur
		}

		b.Name = strings.TrimSpace(in.Name)
		b.Status = in.Status
		b.Gender = in.Gender
		b.Breed = strings.TrimSpace(in.Breed)
		b.Weight = in.Weight
		b.BirthDate = strings.TrimSpace(in.BirthDate)
		b.Description = strings.TrimSpace(in.Description)
		b.MotherLocalID = in.MotherLocalID
		b.FatherLocalID = in.FatherLocalID
		if err := b.Validate(); err != nil {
			return err
		}
		if err := assignHerd(ctx, tx, b, in.HerdLocalID); err != nil {
			return err
		}

		if localID == 0 {
			s.tracker.Created(b)
			if err := tx.Bovines.Insert(ctx, b); err != nil {
				return err
			}
		} else {
			s.tracker.Updated(b)
			if err := tx.Bovines.Update(ctx, b); err != nil {
				return err
			}
		}
		out = b
		tx.Touch(models.EntityBovines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return out, nil
}

func (s *bovineService) Delete(ctx context.Context, localID int64) error {
	return s.BatchDelete(ctx, []int64{localID})
}

// batch applies fn to each listed active bovine in one transaction. An
// unknown id aborts the whole batch.
func (s *bovineService) batch(ctx context.Context, localIDs []int64, fn func(ctx context.Context, tx *store.Tx, b *models.Bovine) error) error {
	if len(localIDs) == 0 {
		return nil
	}
	err := s.store.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
		for _, id := range localIDs {
			b, err := activeBovine(ctx, tx.Bovines, id)
			if err != nil {
				return err
			}
			if err := fn(ctx, tx, b); err != nil {
				return err
			}
			if err := tx.Bovines.Update(ctx, b); err != nil {
				return err
			}
		}
		tx.Touch(models.EntityBovines)
		return nil
	})
	if err != nil {
		return err
	}
	s.sync.RequestSync()
	return nil
}

func (s *bovineService) BatchMove(ctx context.Context, localIDs []int64, herdLocalID int64) error {
	return s.batch(ctx, localIDs, func(ctx context.Context, tx *store.Tx, b *models.Bovine) error {
		if err := assignHerd(ctx, tx, b, herdLocalID); err != nil {
			return err
		}
		s.tracker.Updated(b)
		return nil
	})
}

func (s *bovineService) BatchDelete(ctx context.Context, localIDs []int64) error {
	return s.batch(ctx, localIDs, func(ctx context.Context, tx *store.Tx, b *models.Bovine) error {
		s.tracker.Deleted(b)
		return nil
	})
}

func (s *bovineService) BatchUpdateStatus(ctx context.Context, localIDs []int64, status models.Status) error {
	st, err := models.ParseStatus(string(status))
	if err != nil {
		return err
	}
	return s.batch(ctx, localIDs, func(ctx context.Context, tx *store.Tx, b *models.Bovine) error {
		b.Status = st
		s.tracker.Updated(b)
		return nil
	})
}
