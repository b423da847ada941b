package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

// Register prompts for a display name, email and password and creates an
// account. On success the new session starts with an empty local store.
func (a *App) Register(ctx context.Context) error {
	name, err := a.prompt("Enter your name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, name, email, string(password)); err != nil {
		return authError(err)
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login authenticates against the server. Login needs the server: there is
// no offline login, but data created while offline in an existing session
// stays available.
func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, email, string(password)); err != nil {
		return authError(err)
	}

	a.log.Info(ctx, "logged in")
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout ends the session and wipes the local store, including changes that
// were never pushed.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func authError(err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return errors.New("server unavailable, try again when online")
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("invalid email or password")
	}
	return err
}
