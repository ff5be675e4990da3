// Package client talks to the remote identity and chat service.
//
// # Overview
//
// The package provides:
//  1. Transport-agnostic contracts: AuthAPI (login, signup, profile update,
//     password change, account deletion) and ChatAPI (one chat turn).
//  2. HTTPClient, a REST implementation that attaches the current bearer
//     token from a TokenSource, tags every request with an X-Request-ID, and
//     maps HTTP status codes to sentinel errors.
//
// # Error Handling
//
// Non-success responses become *APIError carrying the server message
// verbatim. APIError unwraps to ErrUnauthorized for 401/403 and to
// ErrUnavailable for 5xx, so callers can match with errors.Is. Network
// failures also match ErrUnavailable.
//
// A missing token is not an error here: the request simply goes out
// unauthenticated and the server decides.
package client
