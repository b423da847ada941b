package services

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
)

// NewWindow is how far back a bovine counts as new.
const NewWindow = 30 * 24 * time.Hour

type HerdSize struct {
	Herd  string
	Count int
}

type Dashboard struct {
	TotalHerds   int
	TotalBovines int
	// NewBovines counts active bovines touched within NewWindow.
	NewBovines int
	// GrowthRate is NewBovines as a percentage of the older population.
	GrowthRate float64
	ByGender   map[models.Gender]int
	ByStatus   map[models.Status]int
	TopHerds   []HerdSize
	Pending    int
}

type DashboardService interface {
	Summary(ctx context.Context) (*Dashboard, error)
}

type dashboardService struct {
	store *store.Store
	now   func() time.Time
}

func NewDashboardService(s *store.Store) DashboardService {
	return &dashboardService{store: s, now: time.Now}
}

func (s *dashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	herds, err := s.store.Herds().List(ctx, false)
	if err != nil {
		return nil, err
	}
	list, err := s.store.Bovines().List(ctx, bovines.Filter{})
	if err != nil {
		return nil, err
	}
	pending, err := s.store.PendingCount(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalHerds:   len(herds),
		TotalBovines: len(list),
		ByGender:     map[models.Gender]int{},
		ByStatus:     map[models.Status]int{},
		Pending:      pending,
	}

	since := s.now().Add(-NewWindow)
	perHerd := map[int64]int{}
	for _, b := range list {
		d.ByGender[b.Gender]++
		d.ByStatus[b.Status]++
		if !b.UpdatedAt.Before(since) {
			d.NewBovines++
		}
		if b.HerdLocalID != nil {
			perHerd[*b.HerdLocalID]++
		}
	}
	if older := d.TotalBovines - d.NewBovines; older > 0 {
		d.GrowthRate = float64(d.NewBovines) / float64(older) * 100
	}

	for _, h := range herds {
		d.TopHerds = append(d.TopHerds, HerdSize{Herd: h.Name, Count: perHerd[h.LocalID]})
	}
	sort.SliceStable(d.TopHerds, func(i, j int) bool { return d.TopHerds[i].Count > d.TopHerds[j].Count })
	if len(d.TopHerds) > 5 {
		d.TopHerds = d.TopHerds[:5]
	}
	return d, nil
}
