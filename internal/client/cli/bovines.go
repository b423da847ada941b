package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/services"
)

// Bovines lists active bovines, optionally only those of the herd whose id
// is the first argument.
func (a *App) Bovines(ctx context.Context, args []string) error {
	var f bovines.Filter
	if len(args) > 0 {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		f.HerdLocalID = &id
	}

	list, err := a.bovines.List(ctx, f)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No bovines")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHERD\tGENDER\tSTATUS\tBREED\tWEIGHT\tBORN\tSYNC")
	for _, b := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.LocalID, b.Name, optionalID(b.HerdLocalID), b.Gender, b.Status,
			b.Breed, optionalFloat(b.Weight), b.BirthDate, b.SyncState)
	}
	return tw.Flush()
}

func (a *App) AddBovine(ctx context.Context) error {
	in, err := a.readBovine(services.BovineInput{Status: models.StatusAlive})
	if err != nil {
		return err
	}
	b, err := a.bovines.Save(ctx, 0, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bovine %d created\n", b.LocalID)
	return nil
}

// EditBovine prompts for every field, showing the current value. An empty
// answer keeps it.
func (a *App) EditBovine(ctx context.Context) error {
	raw, err := a.prompt("Bovine ID")
	if err != nil {
		return err
	}
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	b, err := a.bovines.Get(ctx, id)
	if err != nil {
		return err
	}

	cur := services.BovineInput{
		Name:          b.Name,
		Status:        b.Status,
		Gender:        b.Gender,
		Breed:         b.Breed,
		Weight:        b.Weight,
		BirthDate:     b.BirthDate,
		Description:   b.Description,
		MotherLocalID: b.MotherLocalID,
		FatherLocalID: b.FatherLocalID,
	}
	if b.HerdLocalID != nil {
		cur.HerdLocalID = *b.HerdLocalID
	}

	in, err := a.readBovine(cur)
	if err != nil {
		return err
	}
	if _, err := a.bovines.Save(ctx, id, in); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Bovine updated")
	return nil
}

// readBovine prompts for each field of a bovine, falling back to the value
// in cur when the answer is empty.
func (a *App) readBovine(cur services.BovineInput) (services.BovineInput, error) {
	in := cur
	var err error

	if in.Name, err = a.promptDefault("Name", cur.Name); err != nil {
		return in, err
	}

	herd := ""
	if cur.HerdLocalID != 0 {
		herd = strconv.FormatInt(cur.HerdLocalID, 10)
	}
	if herd, err = a.promptDefault("Herd ID", herd); err != nil {
		return in, err
	}
	if in.HerdLocalID, err = parseID(herd); err != nil {
		return in, err
	}

	gender, err := a.promptDefault("Gender (MALE/FEMALE)", string(cur.Gender))
	if err != nil {
		return in, err
	}
	if in.Gender, err = models.ParseGender(gender); err != nil {
		return in, err
	}

	status, err := a.promptDefault("Status (ALIVE/DEAD/SOLD)", string(cur.Status))
	if err != nil {
		return in, err
	}
	if in.Status, err = models.ParseStatus(status); err != nil {
		return in, err
	}

	if in.Breed, err = a.promptDefault("Breed", cur.Breed); err != nil {
		return in, err
	}

	weight, err := a.promptDefault("Weight", optionalFloat(cur.Weight))
	if err != nil {
		return in, err
	}
	if in.Weight, err = parseOptionalFloat(weight); err != nil {
		return in, err
	}

	if in.BirthDate, err = a.promptDefault("Birth date (YYYY-MM-DD)", cur.BirthDate); err != nil {
		return in, err
	}
	if in.Description, err = a.promptDefault("Description", cur.Description); err != nil {
		return in, err
	}

	mother, err := a.promptDefault("Mother ID", optionalID(cur.MotherLocalID))
	if err != nil {
		return in, err
	}
	if in.MotherLocalID, err = parseOptionalID(mother); err != nil {
		return in, err
	}

	father, err := a.promptDefault("Father ID", optionalID(cur.FatherLocalID))
	if err != nil {
		return in, err
	}
	if in.FatherLocalID, err = parseOptionalID(father); err != nil {
		return in, err
	}

	return in, nil
}

func (a *App) promptDefault(label, current string) (string, error) {
	text := label
	if current != "" {
		text = fmt.Sprintf("%s [%s]", label, current)
	}
	v, err := a.prompt(text)
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

func (a *App) MoveBovines(ctx context.Context) error {
	ids, err := a.promptIDs("Bovine IDs")
	if err != nil {
		return err
	}
	raw, err := a.prompt("Target herd ID")
	if err != nil {
		return err
	}
	herd, err := parseID(raw)
	if err != nil {
		return err
	}
	if err := a.bovines.BatchMove(ctx, ids, herd); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved %d bovine(s)\n", len(ids))
	return nil
}

func (a *App) SetBovineStatus(ctx context.Context) error {
	ids, err := a.promptIDs("Bovine IDs")
	if err != nil {
		return err
	}
	raw, err := a.prompt("Status (ALIVE/DEAD/SOLD)")
	if err != nil {
		return err
	}
	status, err := models.ParseStatus(raw)
	if err != nil {
		return err
	}
	if err := a.bovines.BatchUpdateStatus(ctx, ids, status); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %d bovine(s)\n", len(ids))
	return nil
}

func (a *App) DeleteBovines(ctx context.Context) error {
	ids, err := a.promptIDs("Bovine IDs")
	if err != nil {
		return err
	}
	if err := a.bovines.BatchDelete(ctx, ids); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d bovine(s)\n", len(ids))
	return nil
}

func (a *App) promptIDs(label string) ([]int64, error) {
	raw, err := a.prompt(label + " (comma separated)")
	if err != nil {
		return nil, err
	}
	return parseIDs(raw)
}

func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
