// Package services contains the application services of the client. This
// file defines the authentication service: login, signup, logout, profile
// and password updates, and account deletion, each reconciled into the
// session store.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
	"github.com/dmitrijs2005/thyroscope/internal/client/models"
	"github.com/dmitrijs2005/thyroscope/internal/logging"
	"github.com/go-playground/validator/v10"
)

// AuthService defines the identity operations available to the UI.
//
// Contract:
//   - Login: authenticate, persist the session, navigate to the dashboard.
//     A second call while one is pending fails with ErrLoginInProgress.
//   - Signup: validate locally, create the account, return to the auth view.
//     No session is established.
//   - Logout: clear the session and navigate to the auth view. Never fails.
//   - UpdateProfile: send the changed fields and merge the reply into the
//     stored user.
//   - ChangePassword: rotate the password. The session token is kept.
//   - DeleteAccount: remove the account, wipe local state, navigate away.
//
// An authorized call rejected with client.ErrUnauthorized ends the session.
type AuthService interface {
	Login(ctx context.Context, email, password string) (models.Session, error)
	Signup(ctx context.Context, form SignupForm) error
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, update client.ProfileUpdate) (models.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error
	DeleteAccount(ctx context.Context) error
}

// Navigator switches the visible view.
type Navigator interface {
	Navigate(v guard.View)
}

// SessionStore is the part of session.Store the service writes through.
type SessionStore interface {
	Current() models.Session
	Save(ctx context.Context, user models.User, token string) error
	Clear(ctx context.Context) error
	Wipe(ctx context.Context) error
}

type authService struct {
	api      client.AuthAPI
	store    SessionStore
	nav      Navigator
	log      logging.Logger
	validate *validator.Validate

	loginInFlight atomic.Bool
}

func NewAuthService(api client.AuthAPI, store SessionStore, nav Navigator, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &authService{
		api:      api,
		store:    store,
		nav:      nav,
		log:      log,
		validate: newValidator(),
	}
}

func (a *authService) Login(ctx context.Context, email, password string) (models.Session, error) {
	if !a.loginInFlight.CompareAndSwap(false, true) {
		return models.Session{}, ErrLoginInProgress
	}
	defer a.loginInFlight.Store(false)

	email = strings.TrimSpace(email)
	if err := validate(a.validate, credentials{Email: email, Password: password}); err != nil {
		return models.Session{}, err
	}

	user, token, err := a.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return models.Session{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return models.Session{}, fmt.Errorf("login error: %w", err)
	}

	if err := a.store.Save(ctx, *user, token); err != nil {
		return models.Session{}, fmt.Errorf("session saving error: %w", err)
	}
	a.log.Info(ctx, "logged in", "email", user.Email)

	a.nav.Navigate(guard.ViewDashboard)
	return models.Session{User: user, Token: token}, nil
}

func (a *authService) Signup(ctx context.Context, form SignupForm) error {
	form.Email = strings.TrimSpace(form.Email)
	if err := validate(a.validate, form); err != nil {
		return err
	}

	err := a.api.Signup(ctx, client.SignupRequest{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Password:  form.Password,
		Gender:    form.Gender,
		Phone:     form.Phone,
		Image:     form.Image,
	})
	if err != nil {
		return fmt.Errorf("signup error: %w", err)
	}
	a.log.Info(ctx, "account created", "email", form.Email)

	a.nav.Navigate(guard.ViewAuth)
	return nil
}

// Logout is local. A storage failure is logged, not returned.
func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		a.log.Error(ctx, "failed to clear stored session on logout", "error", err)
	}
	a.nav.Navigate(guard.ViewAuth)
	return nil
}

func (a *authService) UpdateProfile(ctx context.Context, update client.ProfileUpdate) (models.User, error) {
	cur := a.store.Current()
	if !cur.Complete() {
		return models.User{}, ErrNotAuthenticated
	}

	returned, err := a.api.UpdateProfile(ctx, update)
	if err != nil {
		return models.User{}, a.authorizedFailure(ctx, "update profile", err)
	}

	merged := cur.User.Merge(*returned)
	if err := a.store.Save(ctx, merged, cur.Token); err != nil {
		return models.User{}, fmt.Errorf("session saving error: %w", err)
	}
	return merged, nil
}

func (a *authService) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	err := validate(a.validate, passwordChange{
		OldPassword:     oldPassword,
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}

	if err := a.api.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return a.authorizedFailure(ctx, "change password", err)
	}
	return nil
}

func (a *authService) DeleteAccount(ctx context.Context) error {
	if err := a.api.DeleteAccount(ctx); err != nil {
		return a.authorizedFailure(ctx, "delete account", err)
	}

	err := a.store.Wipe(ctx)
	a.nav.Navigate(guard.ViewAuth)
	if err != nil {
		return fmt.Errorf("account deleted but local state was not wiped: %w", err)
	}
	return nil
}

// authorizedFailure ends the session when the server no longer accepts the
// credential, then returns err wrapped with op.
func (a *authService) authorizedFailure(ctx context.Context, op string, err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		a.log.Info(ctx, "credential rejected, ending session", "op", op)
		if cerr := a.store.Clear(ctx); cerr != nil {
			a.log.Error(ctx, "failed to clear stored session", "error", cerr)
		}
		a.nav.Navigate(guard.ViewAuth)
	}
	return fmt.Errorf("%s error: %w", op, err)
}
