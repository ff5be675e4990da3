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
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Logout(ctx context.Context) error
	Open(ctx context.Context, path string) error
	Dashboard(ctx context.Context) error
	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Chat(ctx context.Context) error
	Settings(ctx context.Context) error
	SetFont(ctx context.Context, size string) error
	ResetFont(ctx context.Context) error
	About(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the thyroscope CLI.
//
// It reads a line from the provided reader, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           - show available commands
//	  - signup         - create an account
//	  - login          - authenticate
//	  - open <path>    - go to a view by path
//	  - exit | quit    - leave the program
//
//	Logged in:
//	  - help           - show available commands
//	  - dashboard      - landing view
//	  - profile        - show the profile
//	  - edit-profile   - change profile fields and image
//	  - password       - change the password
//	  - delete-account - permanently delete the account
//	  - chat           - talk to the assistant
//	  - settings       - show display settings
//	  - font <size>    - set the font size (small, medium, large)
//	  - reset-font     - restore the default font size
//	  - about          - about this app
//	  - open <path>    - go to a view by path
//	  - logout         - log out
//	  - exit | quit    - leave the program
//
// Errors returned by command handlers are printed and the loop continues.
//
// Commands that prompt for more input read from the same reader, so the loop
// never reads ahead of the current line.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("thyroscope %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		err = nil
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: dashboard, profile, edit-profile, password, delete-account, chat, settings, font, reset-font, about, open, logout, exit")
			} else {
				printlnFn("Available commands: signup, login, open, exit")
			}

		case "signup", "register":
			err = a.Signup(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "open":
			if len(args) == 0 {
				printlnFn("Usage: open <path>")
				continue
			}
			err = a.Open(ctx, args[0])

		case "dashboard":
			err = a.Dashboard(ctx)

		case "profile":
			err = a.Profile(ctx)

		case "edit-profile":
			err = a.EditProfile(ctx)

		case "password":
			err = a.ChangePassword(ctx)

		case "delete-account":
			err = a.DeleteAccount(ctx)

		case "chat":
			err = a.Chat(ctx)

		case "settings":
			err = a.Settings(ctx)

		case "font":
			if len(args) == 0 {
				printlnFn("Usage: font <small|medium|large>")
				continue
			}
			err = a.SetFont(ctx, args[0])

		case "reset-font":
			err = a.ResetFont(ctx)

		case "about":
			err = a.About(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
