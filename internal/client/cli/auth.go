package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
	"github.com/dmitrijs2005/thyroscope/internal/client/services"
)

// Login prompts for credentials and authenticates. Rejections are shown to
// the user; only input errors are returned.
func (a *App) Login(ctx context.Context) error {
	a.Navigate(guard.ViewAuth)

	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}

	if _, err := a.auth.Login(ctx, email, password); err != nil {
		fmt.Fprintln(a.out, describe(err, "Login failed"))
		return nil
	}
	return a.Dashboard(ctx)
}

// Signup collects the profile and creates the account. The user logs in
// separately afterwards.
func (a *App) Signup(ctx context.Context) error {
	a.Navigate(guard.ViewAuth)

	var form services.SignupForm
	var err error

	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"First name", &form.FirstName},
		{"Last name", &form.LastName},
		{"Email", &form.Email},
		{"Gender (optional)", &form.Gender},
		{"Phone (optional)", &form.Phone},
	} {
		if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	if form.Password, err = getPassword("Password", a.out); err != nil {
		return err
	}
	if form.ConfirmPassword, err = getPassword("Confirm password", a.out); err != nil {
		return err
	}

	image, closeImage, err := a.askImage()
	if err != nil {
		fmt.Fprintln(a.out, err)
		return nil
	}
	defer closeImage()
	form.Image = image

	if err := a.auth.Signup(ctx, form); err != nil {
		fmt.Fprintln(a.out, describe(err, "Signup failed"))
		return nil
	}
	fmt.Fprintln(a.out, "Account created. Please log in.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// askImage prompts for an optional image path. The returned func closes the
// file, if one was opened.
func (a *App) askImage() (*client.Upload, func(), error) {
	noop := func() {}

	path, err := getSimpleText(a.reader, "Profile image path (optional)", a.out)
	if err != nil || path == "" {
		return nil, noop, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, noop, fmt.Errorf("cannot open image: %w", err)
	}
	return &client.Upload{Filename: filepath.Base(path), Content: f}, func() { _ = f.Close() }, nil
}

// describe turns a service error into a line for the user.
func describe(err error, fallback string) string {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "Please check the form:"
		for _, f := range verr.Fields {
			msg += fmt.Sprintf("\n  %s %s", f.Field, f.Message)
		}
		return msg
	case errors.Is(err, services.ErrInvalidCredentials):
		return client.Message(err, "Invalid credentials")
	case errors.Is(err, services.ErrLoginInProgress):
		return "A login is already in progress."
	case errors.Is(err, services.ErrNotAuthenticated), errors.Is(err, client.ErrUnauthorized):
		return "Your session has ended. Please log in again."
	case errors.Is(err, client.ErrUnavailable):
		return "Server unavailable. Please try again later."
	default:
		return client.Message(err, fallback)
	}
}
