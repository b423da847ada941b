package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (a *App) Herds(ctx context.Context) error {
	list, err := a.herds.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No herds")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSYNC")
	for _, h := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", h.LocalID, h.Name, h.SyncState)
	}
	return tw.Flush()
}

func (a *App) AddHerd(ctx context.Context) error {
	name, err := a.prompt("Herd name")
	if err != nil {
		return err
	}
	h, err := a.herds.Save(ctx, 0, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Herd %d created\n", h.LocalID)
	return nil
}

func (a *App) RenameHerd(ctx context.Context) error {
	raw, err := a.prompt("Herd ID")
	if err != nil {
		return err
	}
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	current, err := a.herds.Get(ctx, id)
	if err != nil {
		return err
	}

	name, err := a.prompt(fmt.Sprintf("New name [%s]", current.Name))
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	if _, err := a.herds.Save(ctx, id, name); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Herd renamed")
	return nil
}

// DeleteHerd removes a herd locally; the deletion reaches the server with
// the next sync.
func (a *App) DeleteHerd(ctx context.Context) error {
	raw, err := a.prompt("Herd ID")
	if err != nil {
		return err
	}
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	if err := a.herds.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Herd deleted")
	return nil
}
