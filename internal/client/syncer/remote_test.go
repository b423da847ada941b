package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
)

// fakeRemote is an in-memory remote authority: it assigns ids, dedupes
// creates by client reference and serves deltas by update time.
type fakeRemote struct {
	mu sync.Mutex

	echoIDs  bool
	echoRefs bool
	clock    time.Time

	herds   []*models.HerdPull
	bovines []*models.BovinePull
	nextID  map[models.EntityType]int64

	pushes     map[models.EntityType][]json.RawMessage
	pulls      map[models.EntityType][]*time.Time
	serverTime map[models.EntityType]time.Time

	pushErr   map[models.EntityType]error
	pullErr   map[models.EntityType]error
	loseAck   map[models.EntityType]bool
	afterPush func(models.EntityType)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		echoIDs:    true,
		echoRefs:   true,
		nextID:     map[models.EntityType]int64{},
		pushes:     map[models.EntityType][]json.RawMessage{},
		pulls:      map[models.EntityType][]*time.Time{},
		serverTime: map[models.EntityType]time.Time{},
		pushErr:    map[models.EntityType]error{},
		pullErr:    map[models.EntityType]error{},
		loseAck:    map[models.EntityType]bool{},
	}
}

func (f *fakeRemote) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(f.clock) {
		now = f.clock.Add(time.Microsecond)
	}
	f.clock = now
	return now
}

func (f *fakeRemote) id(e models.EntityType) int64 {
	f.nextID[e]++
	return f.nextID[e]
}

func (f *fakeRemote) Push(ctx context.Context, batch models.Batch) (*models.Ack, error) {
	entity := batch.Entity()
	f.mu.Lock()
	if err := f.pushErr[entity]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	data, err := json.Marshal(batch)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}

	var items []models.AckItem
	switch in := batch.(type) {
	case models.HerdBatch:
		items, err = f.pushHerds(in)
	case models.BovineBatch:
		items, err = f.pushBovines(in)
	}
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.pushes[entity] = append(f.pushes[entity], data)
	lost := f.loseAck[entity]
	f.loseAck[entity] = false
	hook := f.afterPush
	f.mu.Unlock()

	if hook != nil {
		hook(entity)
	}
	if lost {
		return nil, client.ErrUnavailable
	}
	ack := &models.Ack{}
	if f.echoIDs {
		ack.Items = items
	}
	return ack, nil
}

func (f *fakeRemote) pushHerds(in []models.HerdPush) ([]models.AckItem, error) {
	var items []models.AckItem
	for _, h := range in {
		var rec *models.HerdPull
		switch {
		case h.ID != nil:
			for _, r := range f.herds {
				if r.ID == *h.ID {
					rec = r
				}
			}
			if rec == nil {
				return nil, fmt.Errorf("%w: herd %d", client.ErrRejected, *h.ID)
			}
		case h.ClientRef != "":
			for _, r := range f.herds {
				if r.ClientRef == h.ClientRef {
					rec = r
				}
			}
		}
		if rec == nil {
			rec = &models.HerdPull{ID: f.id(models.EntityHerds), ClientRef: h.ClientRef}
			f.herds = append(f.herds, rec)
		}
		rec.Name, rec.Active, rec.UpdatedAt = h.Name, h.Active, f.tick()
		items = append(items, models.AckItem{ID: rec.ID, ClientRef: h.ClientRef})
	}
	return items, nil
}

func (f *fakeRemote) pushBovines(in []models.BovinePush) ([]models.AckItem, error) {
	var items []models.AckItem
	for _, b := range in {
		if b.HerdID == nil {
			return nil, fmt.Errorf("%w: herdId required", client.ErrRejected)
		}
		var rec *models.BovinePull
		switch {
		case b.ID != nil:
			for _, r := range f.bovines {
				if r.ID == *b.ID {
					rec = r
				}
			}
			if rec == nil {
				return nil, fmt.Errorf("%w: bovine %d", client.ErrRejected, *b.ID)
			}
		case b.ClientRef != "":
			for _, r := range f.bovines {
				if r.ClientRef == b.ClientRef {
					rec = r
				}
			}
		}
		if rec == nil {
			rec = &models.BovinePull{ID: f.id(models.EntityBovines), ClientRef: b.ClientRef}
			f.bovines = append(f.bovines, rec)
		}
		rec.Name, rec.Status, rec.Gender, rec.Breed = b.Name, b.Status, b.Gender, b.Breed
		rec.Weight, rec.BirthDate, rec.Description = b.Weight, b.BirthDate, b.Description
		rec.HerdID, rec.Active, rec.UpdatedAt = b.HerdID, b.Active, f.tick()
		items = append(items, models.AckItem{ID: rec.ID, ClientRef: b.ClientRef})
	}
	return items, nil
}

func (f *fakeRemote) Pull(ctx context.Context, entity models.EntityType, since *time.Time) (*client.PullResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pulls[entity] = append(f.pulls[entity], since)
	if err := f.pullErr[entity]; err != nil {
		return nil, err
	}
	now := f.tick()
	f.serverTime[entity] = now

	changed := func(t time.Time) bool { return since == nil || !t.Before(*since) }

	var out any
	switch entity {
	case models.EntityHerds:
		list := []models.HerdPull{}
		for _, r := range f.herds {
			if changed(r.UpdatedAt) {
				c := *r
				if !f.echoRefs {
					c.ClientRef = ""
				}
				list = append(list, c)
			}
		}
		out = list
	case models.EntityBovines:
		list := []models.BovinePull{}
		for _, r := range f.bovines {
			if changed(r.UpdatedAt) {
				c := *r
				if !f.echoRefs {
					c.ClientRef = ""
				}
				list = append(list, c)
			}
		}
		out = list
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &client.PullResult{Data: data, ServerTime: now}, nil
}

func (f *fakeRemote) herd(id int64) *models.HerdPull {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.herds {
		if r.ID == id {
			return r
		}
	}
	return nil
}
