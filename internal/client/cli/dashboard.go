package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/scheduler"
)

func (a *App) Dashboard(ctx context.Context) error {
	d, err := a.dashboard.Summary(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Herds\t%d\n", d.TotalHerds)
	fmt.Fprintf(tw, "Bovines\t%d\n", d.TotalBovines)
	fmt.Fprintf(tw, "New (30 days)\t%d (%.1f%%)\n", d.NewBovines, d.GrowthRate)
	fmt.Fprintf(tw, "Male / female\t%d / %d\n", d.ByGender[models.GenderMale], d.ByGender[models.GenderFemale])
	fmt.Fprintf(tw, "Alive / dead / sold\t%d / %d / %d\n",
		d.ByStatus[models.StatusAlive], d.ByStatus[models.StatusDead], d.ByStatus[models.StatusSold])
	fmt.Fprintf(tw, "Pending changes\t%d\n", d.Pending)
	if len(d.TopHerds) > 0 {
		fmt.Fprintln(tw, "Largest herds\t")
		for _, h := range d.TopHerds {
			fmt.Fprintf(tw, "  %s\t%d\n", h.Herd, h.Count)
		}
	}
	return tw.Flush()
}

// Sync runs a full sync now and reports the outcome.
func (a *App) Sync(ctx context.Context) error {
	err := a.sync.SyncNow(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "Sync complete")
		return nil
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Offline: changes are kept locally and will sync when the server is reachable")
		return nil
	case errors.Is(err, scheduler.ErrBusy):
		fmt.Fprintln(a.out, "A sync is already running")
		return nil
	}
	return err
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.sync.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sync status:", st)
	return nil
}
