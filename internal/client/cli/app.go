package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/thyroscope/internal/client/chat"
	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
	"github.com/dmitrijs2005/thyroscope/internal/client/models"
	"github.com/dmitrijs2005/thyroscope/internal/client/preferences"
	"github.com/dmitrijs2005/thyroscope/internal/client/services"
	"github.com/dmitrijs2005/thyroscope/internal/client/session"
	"github.com/dmitrijs2005/thyroscope/internal/logging"
)

// getSimpleText, getPassword and confirm are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	confirm       = Confirm
)

// Deps are the collaborators an App composes.
type Deps struct {
	Store       *session.Store
	Preferences *preferences.Service
	Chat        *chat.Client
	Log         logging.Logger

	// AssetBase resolves profile image references.
	AssetBase string
	// DBPath, when set, is watched for changes made by other processes.
	DBPath string
}

type App struct {
	store     *session.Store
	auth      services.AuthService
	prefs     *preferences.Service
	chat      *chat.Client
	log       logging.Logger
	assetBase string
	dbPath    string

	reader *bufio.Reader
	out    io.Writer

	mu   sync.Mutex
	view guard.View
}

// NewApp builds the app around api. The auth service is created here so the
// app can act as its navigator.
func NewApp(api client.AuthAPI, d Deps, in io.Reader, out io.Writer) *App {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	a := &App{
		store:     d.Store,
		prefs:     d.Preferences,
		chat:      d.Chat,
		log:       d.Log,
		assetBase: d.AssetBase,
		dbPath:    d.DBPath,
		reader:    bufio.NewReader(in),
		out:       out,
		view:      guard.ViewAuth,
	}
	a.auth = services.NewAuthService(api, d.Store, a, d.Log)
	return a
}

// Navigate switches the current view. It implements services.Navigator.
func (a *App) Navigate(v guard.View) {
	a.mu.Lock()
	changed := a.view != v
	a.view = v
	a.mu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "-> %s\n", v)
	}
}

func (a *App) View() guard.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *App) isLoggedIn() bool {
	return a.store.State() == session.Authenticated
}

// Run reconciles the stored session, starts the storage watcher and blocks
// in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := a.store.Subscribe(a.onSessionChange)
	defer unsubscribe()

	state, err := a.store.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile session: %w", err)
	}
	if state == session.Authenticated {
		a.open(ctx, guard.ViewDashboard)
	}

	if a.dbPath != "" {
		if err := a.store.Watch(ctx, a.dbPath); err != nil {
			a.log.Warn(ctx, "storage watcher not started", "error", err)
		}
	}

	fmt.Fprintln(a.out, "Welcome to thyroscope (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// onSessionChange sends the user back to the auth view when the session
// ends while a protected view is shown.
func (a *App) onSessionChange(s session.State) {
	if s == session.Unauthenticated && guard.Protected(a.View()) {
		a.Navigate(guard.ViewAuth)
	}
}

func (a *App) getStatus() string {
	s := string(a.View())
	if cur := a.store.Current(); cur.User != nil {
		s = cur.User.Email + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// pinnedSession answers the guard with one in-memory read, so a view renders
// the session the guard approved even if the watcher changes memory meanwhile.
type pinnedSession struct {
	*session.Store
	mem models.Session
}

func (p pinnedSession) Current() models.Session {
	return p.mem
}

// open routes to path through the guard and reports whether the view is now
// shown.
func (a *App) open(ctx context.Context, path guard.View) bool {
	_, ok := a.openAs(ctx, path)
	return ok
}

// openAs is open that also returns the session the view was approved for.
// For a protected view its user is never nil.
func (a *App) openAs(ctx context.Context, path guard.View) (models.Session, bool) {
	src := pinnedSession{Store: a.store, mem: a.store.Current()}
	d, err := guard.Evaluate(ctx, src, string(path))
	if err != nil {
		a.log.Error(ctx, "route guard could not read session", "error", err)
	}

	switch d.Outcome {
	case guard.Render:
		a.Navigate(d.View)
		return src.mem, true
	case guard.Redirect:
		if guard.Protected(path) {
			fmt.Fprintln(a.out, "Please log in first.")
		}
		a.Navigate(d.View)
		return models.Session{}, false
	default:
		fmt.Fprintln(a.out, "404 - Not Found")
		return models.Session{}, false
	}
}

func (a *App) Open(ctx context.Context, path string) error {
	a.open(ctx, guard.View(path))
	return nil
}

func (a *App) Dashboard(ctx context.Context) error {
	cur, ok := a.openAs(ctx, guard.ViewDashboard)
	if !ok {
		return nil
	}
	fmt.Fprintf(a.out, "Hello, %s %s!\n", cur.User.FirstName, cur.User.LastName)

	var views []string
	for _, v := range guard.Views() {
		if v != guard.ViewDashboard {
			views = append(views, strings.TrimPrefix(string(v), "/"))
		}
	}
	fmt.Fprintf(a.out, "Views: %s\n", strings.Join(views, ", "))
	return nil
}

func (a *App) About(ctx context.Context) error {
	if !a.open(ctx, guard.ViewAbout) {
		return nil
	}
	fmt.Fprintln(a.out, "thyroscope: thyroid health dashboard client with an AI assistant.")
	fmt.Fprintln(a.out, "Chat answers are informational and not a medical diagnosis.")
	return nil
}
