// Package guard decides which view a path resolves to for a given session
// state. It reads session state but never changes it.
package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
)

type View string

const (
	ViewRoot      View = "/"
	ViewAuth      View = "/auth"
	ViewDashboard View = "/dashboard"
	ViewProfile   View = "/profile"
	ViewChat      View = "/chat"
	ViewSettings  View = "/settings"
	ViewAbout     View = "/about"
)

var protected = map[View]bool{
	ViewDashboard: true,
	ViewProfile:   true,
	ViewChat:      true,
	ViewSettings:  true,
	ViewAbout:     true,
}

// Protected reports whether v requires a valid session.
func Protected(v View) bool {
	return protected[v]
}

// Views lists the protected views in menu order.
func Views() []View {
	return []View{ViewDashboard, ViewProfile, ViewChat, ViewSettings, ViewAbout}
}

type Outcome int

const (
	Render Outcome = iota
	Redirect
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "not found"
	}
}

// Decision is the result of routing a path. View is the view to render or
// the redirect target; it is empty for NotFound.
type Decision struct {
	Outcome Outcome
	View    View
}

// Snapshot records which halves of the session are present in each layer.
type Snapshot struct {
	MemoryUser   bool
	MemoryToken  bool
	DurableUser  bool
	DurableToken bool
}

// Allow reports whether a protected view may render. Memory and durable
// layers must both hold a user and a token.
func Allow(s Snapshot) bool {
	return s.MemoryUser && s.MemoryToken && s.DurableUser && s.DurableToken
}

// Decide routes path against s.
func Decide(s Snapshot, path string) Decision {
	v := normalize(path)

	switch {
	case v == ViewRoot:
		return Decision{Outcome: Redirect, View: ViewAuth}
	case v == ViewAuth:
		return Decision{Outcome: Render, View: ViewAuth}
	case Protected(v):
		if !Allow(s) {
			return Decision{Outcome: Redirect, View: ViewAuth}
		}
		return Decision{Outcome: Render, View: v}
	default:
		return Decision{Outcome: NotFound}
	}
}

func normalize(path string) View {
	path = strings.TrimSpace(path)
	if path == "" {
		return ViewRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return View(path)
}

// SessionSource exposes both session layers. *session.Store implements it.
type SessionSource interface {
	Current() models.Session
	Load(ctx context.Context) (models.Session, error)
}

// Take builds a Snapshot from src. A durable layer that cannot be read
// counts as absent and the read error is returned alongside.
func Take(ctx context.Context, src SessionSource) (Snapshot, error) {
	mem := src.Current()
	snap := Snapshot{
		MemoryUser:  mem.User != nil,
		MemoryToken: mem.Token != "",
	}

	durable, err := src.Load(ctx)
	if err != nil {
		return snap, fmt.Errorf("read durable session: %w", err)
	}
	snap.DurableUser = durable.User != nil
	snap.DurableToken = durable.Token != ""
	return snap, nil
}

// Evaluate routes path against the live state of src. Public paths do not
// touch storage. When storage cannot be read a protected path redirects and
// the error is returned for logging.
func Evaluate(ctx context.Context, src SessionSource, path string) (Decision, error) {
	if !Protected(normalize(path)) {
		return Decide(Snapshot{}, path), nil
	}
	snap, err := Take(ctx, src)
	return Decide(snap, path), err
}
