package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Herds(ctx context.Context) error
	AddHerd(ctx context.Context) error
	RenameHerd(ctx context.Context) error
	DeleteHerd(ctx context.Context) error

	Bovines(ctx context.Context, args []string) error
	AddBovine(ctx context.Context) error
	EditBovine(ctx context.Context) error
	MoveBovines(ctx context.Context) error
	SetBovineStatus(ctx context.Context) error
	DeleteBovines(ctx context.Context) error

	Dashboard(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: herds, addherd, renameherd, delherd, " +
		"(b)ovines [herd id], addbovine, editbovine, movebovines, setstatus, delbovines, " +
		"dashboard, sync, status, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the herdsync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit". Data commands are refused until
// the user logs in.
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("herdsync %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if !a.isLoggedIn() {
				if isDataCommand(cmd) {
					printlnFn("Please log in first")
				} else {
					printlnFn("Unknown command:", cmd)
				}
				continue
			}
			err = dispatch(ctx, a, cmd, args)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

var dataCommands = map[string]bool{
	"herds": true, "addherd": true, "renameherd": true, "delherd": true,
	"b": true, "bovines": true, "addbovine": true, "editbovine": true,
	"movebovines": true, "setstatus": true, "delbovines": true,
	"dashboard": true, "sync": true, "status": true, "logout": true,
}

func isDataCommand(cmd string) bool {
	return dataCommands[cmd]
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "herds":
		return a.Herds(ctx)
	case "addherd":
		return a.AddHerd(ctx)
	case "renameherd":
		return a.RenameHerd(ctx)
	case "delherd":
		return a.DeleteHerd(ctx)
	case "b", "bovines":
		return a.Bovines(ctx, args)
	case "addbovine":
		return a.AddBovine(ctx)
	case "editbovine":
		return a.EditBovine(ctx)
	case "movebovines":
		return a.MoveBovines(ctx)
	case "setstatus":
		return a.SetBovineStatus(ctx)
	case "delbovines":
		return a.DeleteBovines(ctx)
	case "dashboard":
		return a.Dashboard(ctx)
	case "sync":
		return a.Sync(ctx)
	case "status":
		return a.Status(ctx)
	case "logout":
		return a.Logout(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
