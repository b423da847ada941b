package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/client/tracker"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

type HerdService interface {
	// List returns active herds ordered by name.
	List(ctx context.Context) ([]*models.Herd, error)
	Get(ctx context.Context, localID int64) (*models.Herd, error)
	// Save creates a herd when localID is zero and renames it otherwise.
	Save(ctx context.Context, localID int64, name string) (*models.Herd, error)
	Delete(ctx context.Context, localID int64) error
}

type herdService struct {
	store   *store.Store
	tracker *tracker.Tracker
	sync    SyncRequester
}

func NewHerdService(s *store.Store, t *tracker.Tracker, r SyncRequester) HerdService {
	return &herdService{store: s, tracker: t, sync: requesterOrNoop(r)}
}

func (s *herdService) List(ctx context.Context) ([]*models.Herd, error) {
	return s.store.Herds().List(ctx, false)
}

func (s *herdService) Get(ctx context.Context, localID int64) (*models.Herd, error) {
	return activeHerd(ctx, s.store.Herds().Get, localID)
}

func activeHerd(ctx context.Context, get func(context.Context, int64) (*models.Herd, error), localID int64) (*models.Herd, error) {
	h, err := get(ctx, localID)
	if errors.Is(err, common.ErrorNotFound) || (err == nil && !h.Active) {
		return nil, fmt.Errorf("herd %d: %w", localID, ErrNotFound)
	}
	return h, err
}

func (s *herdService) Save(ctx context.Context, localID int64, name string) (*models.Herd, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrNameRequired
	}

	var out *models.Herd
	err := s.store.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
		same, err := tx.Herds.FindActiveByName(ctx, name)
		if err != nil {
			return err
		}
		for _, h := range same {
			if h.LocalID != localID {
				return fmt.Errorf("%q: %w", name, ErrDuplicateName)
			}
		}

		if localID == 0 {
			h := &models.Herd{Name: name}
			s.tracker.Created(h)
			if err := tx.Herds.Insert(ctx, h); err != nil {
				return err
			}
			out = h
		} else {
			h, err := activeHerd(ctx, tx.Herds.Get, localID)
			if err != nil {
				return err
			}
			h.Name = name
			s.tracker.Updated(h)
			if err := tx.Herds.Update(ctx, h); err != nil {
				return err
			}
			out = h
		}
		tx.Touch(models.EntityHerds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return out, nil
}

func (s *herdService) Delete(ctx context.Context, localID int64) error {
	err := s.store.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
		h, err := activeHerd(ctx, tx.Herds.Get, localID)
		if err != nil {
			return err
		}
		s.tracker.Deleted(h)
		if err := tx.Herds.Update(ctx, h); err != nil {
			return err
		}
		tx.Touch(models.EntityHerds)
		return nil
	})
	if err != nil {
		return err
	}
	s.sync.RequestSync()
	return nil
}
