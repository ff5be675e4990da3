// Package cli provides the interactive thyroscope command-line client.
//
// It wires the session store, the auth service, the chat client and the
// local preferences into a REPL that stands in for the dashboard UI. The
// current view is tracked the way a router would track it: every protected
// view is entered through the route guard, and the app moves back to the auth
// view whenever the session ends.
//
// Views and their commands:
//   - auth: login, signup
//   - dashboard: the landing view after login
//   - profile: profile, edit-profile, password, delete-account
//   - chat: an interactive chat with the assistant (/back to leave)
//   - settings: font, reset-font
//   - about
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
