package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
	"github.com/dmitrijs2005/thyroscope/internal/client/models"
	"github.com/dmitrijs2005/thyroscope/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/thyroscope/internal/client/session"
	"github.com/dmitrijs2005/thyroscope/internal/client/storage"
	"github.com/dmitrijs2005/thyroscope/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

type fakeNav struct {
	mu    sync.Mutex
	views []guard.View
}

func (n *fakeNav) Navigate(v guard.View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views = append(n.views, v)
}

func (n *fakeNav) last() guard.View {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.views) == 0 {
		return ""
	}
	return n.views[len(n.views)-1]
}

// fakeAPI implements client.AuthAPI for unit tests.
type fakeAPI struct {
	LoginUser  *models.User
	LoginToken string
	LoginErr   error
	LoginGate  chan struct{}
	LoginCalls int

	SignupErr   error
	SignupCalls int
	LastSignup  client.SignupRequest

	UpdateRet   *models.User
	UpdateErr   error
	LastUpdate  client.ProfileUpdate
	UpdateCalls int

	ChangeErr   error
	ChangeCalls int

	DeleteErr   error
	DeleteCalls int

	mu sync.Mutex
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	f.mu.Lock()
	f.LoginCalls++
	f.mu.Unlock()
	if f.LoginGate != nil {
		<-f.LoginGate
	}
	return f.LoginUser, f.LoginToken, f.LoginErr
}

func (f *fakeAPI) Signup(ctx context.Context, req client.SignupRequest) error {
	f.SignupCalls++
	f.LastSignup = req
	return f.SignupErr
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, req client.ProfileUpdate) (*models.User, error) {
	f.UpdateCalls++
	f.LastUpdate = req
	return f.UpdateRet, f.UpdateErr
}

func (f *fakeAPI) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	f.ChangeCalls++
	return f.ChangeErr
}

func (f *fakeAPI) DeleteAccount(ctx context.Context) error {
	f.DeleteCalls++
	return f.DeleteErr
}

type fixture struct {
	api   *fakeAPI
	store *session.Store
	repo  *metadata.SQLiteRepository
	nav   *fakeNav
	svc   AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		api:   &fakeAPI{},
		store: session.NewStore(db, nil),
		repo:  metadata.NewSQLiteRepository(db),
		nav:   &fakeNav{},
	}
	f.svc = NewAuthService(f.api, f.store, f.nav, nil)
	return f
}

func (f *fixture) signIn(t *testing.T, u models.User) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), u, "tok"))
}

func validForm() SignupForm {
	return SignupForm{
		FirstName:       "Ann",
		LastName:        "Lee",
		Email:           "ann@example.com",
		Password:        "StrongPass!1",
		ConfirmPassword: "StrongPass!1",
	}
}

var ann = models.User{ID: "1", Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", Phone: "111"}

// ---- Login ----

func TestLogin_SavesSessionThenNavigates(t *testing.T) {
	f := newFixture(t)
	u := ann
	f.api.LoginUser, f.api.LoginToken = &u, "tok-1"

	var stateAtNav session.State
	f.store.Subscribe(func(s session.State) { stateAtNav = s })

	sess, err := f.svc.Login(context.Background(), " ann@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, session.Authenticated, stateAtNav)
	assert.Equal(t, guard.ViewDashboard, f.nav.last())

	durable, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, durable.Complete())
}

func TestLogin_RejectedCredentials(t *testing.T) {
	f := newFixture(t)
	f.api.LoginErr = &client.APIError{StatusCode: 401, Message: "Invalid credentials"}

	_, err := f.svc.Login(context.Background(), "ann@example.com", "bad")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid credentials", client.Message(err, ""))
	assert.Equal(t, session.Unauthenticated, f.store.State())
	assert.Empty(t, f.nav.views)
}

func TestLogin_ServiceError(t *testing.T) {
	f := newFixture(t)
	f.api.LoginErr = client.ErrUnavailable

	_, err := f.svc.Login(context.Background(), "ann@example.com", "pw")
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_EmptyFieldsAreValidationErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "  ", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Field("Email"))
	assert.NotEmpty(t, verr.Field("Password"))
	assert.Zero(t, f.api.LoginCalls)
}

func TestLogin_SingleInFlight(t *testing.T) {
	f := newFixture(t)
	u := ann
	f.api.LoginUser, f.api.LoginToken = &u, "tok"
	f.api.LoginGate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Login(context.Background(), "ann@example.com", "pw")
		done <- err
	}()

	require.Eventually(t, func() bool {
		f.api.mu.Lock()
		defer f.api.mu.Unlock()
		return f.api.LoginCalls == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.svc.Login(context.Background(), "ann@example.com", "pw")
	require.ErrorIs(t, err, ErrLoginInProgress)

	close(f.api.LoginGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.api.LoginCalls)

	// the slot is free again
	_, err = f.svc.Login(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)
}

// ---- Signup ----

func TestStrongPassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"StrongPass!1", true},
		{"weak", false},
		{"NoSpecial1A", false},
		{"nouppercase1!", false},
		{"NOLOWER1!", false},
		{"NoDigits!!", false},
		{"Sh0rt!", false},
		{"Under_score1A", false},
		{"With space1A", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StrongPassword(tt.in))
		})
	}
}

func TestSignup_DoesNotEstablishSession(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Signup(context.Background(), validForm()))

	assert.Equal(t, 1, f.api.SignupCalls)
	assert.Equal(t, "StrongPass!1", f.api.LastSignup.Password)
	assert.Equal(t, models.Session{}, f.store.Current())
	durable, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Session{}, durable)
	assert.Equal(t, guard.ViewAuth, f.nav.last())
}

func TestSignup_KeepsExistingSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	before := f.store.Current()

	require.NoError(t, f.svc.Signup(context.Background(), validForm()))
	assert.Equal(t, before, f.store.Current())
}

func TestSignup_ValidationFailsFast(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*SignupForm)
		field string
	}{
		{"weak password", func(s *SignupForm) { s.Password, s.ConfirmPassword = "weak", "weak" }, "Password"},
		{"mismatch", func(s *SignupForm) { s.ConfirmPassword = "StrongPass!2" }, "ConfirmPassword"},
		{"bad email", func(s *SignupForm) { s.Email = "not-an-email" }, "Email"},
		{"missing first name", func(s *SignupForm) { s.FirstName = "" }, "FirstName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			form := validForm()
			tt.edit(&form)

			err := f.svc.Signup(context.Background(), form)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Field(tt.field))
			assert.Zero(t, f.api.SignupCalls)
		})
	}
}

func TestSignup_ServerMessageSurfaces(t *testing.T) {
	f := newFixture(t)
	f.api.SignupErr = &client.APIError{StatusCode: 400, Message: "Email already exists"}

	err := f.svc.Signup(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, "Email already exists", client.Message(err, ""))
	assert.Empty(t, f.nav.views)
}

// ---- Logout ----

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	require.NoError(t, f.repo.Set(context.Background(), "font_size", []byte("large")))

	require.NoError(t, f.svc.Logout(context.Background()))
	require.NoError(t, f.svc.Logout(context.Background()))

	assert.Equal(t, session.Unauthenticated, f.store.State())
	durable, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Session{}, durable)
	assert.Equal(t, []guard.View{guard.ViewAuth, guard.ViewAuth}, f.nav.views)

	v, err := f.repo.Get(context.Background(), "font_size")
	require.NoError(t, err)
	assert.Equal(t, []byte("large"), v)
}

// ---- UpdateProfile ----

func TestUpdateProfile_MergesOnlyReturnedFields(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	f.api.UpdateRet = &models.User{Email: "other@example.com", Phone: "222"}

	got, err := f.svc.UpdateProfile(context.Background(), client.ProfileUpdate{Phone: "222"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)
	assert.Equal(t, "222", got.Phone)
	assert.Equal(t, "ann@example.com", got.Email)

	durable, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, *durable.User)
	assert.Equal(t, "tok", durable.Token)
}

func TestUpdateProfile_RequiresSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), client.ProfileUpdate{Phone: "1"})
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, f.api.UpdateCalls)
}

func TestUpdateProfile_UnauthorizedEndsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	f.api.UpdateErr = &client.APIError{StatusCode: 401, Message: "Invalid or expired token"}

	_, err := f.svc.UpdateProfile(context.Background(), client.ProfileUpdate{Phone: "1"})
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, session.Unauthenticated, f.store.State())
	assert.Equal(t, guard.ViewAuth, f.nav.last())
}

func TestUpdateProfile_OtherFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	f.api.UpdateErr = &client.APIError{StatusCode: 500}

	_, err := f.svc.UpdateProfile(context.Background(), client.ProfileUpdate{Phone: "1"})
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, session.Authenticated, f.store.State())
	assert.Equal(t, "111", f.store.Current().User.Phone)
}

// ---- ChangePassword ----

func TestChangePassword_MismatchNoRequest(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)

	err := f.svc.ChangePassword(context.Background(), "old", "NewPass!1", "NewPass!2")
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.api.ChangeCalls)
}

func TestChangePassword_KeepsToken(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)

	require.NoError(t, f.svc.ChangePassword(context.Background(), "old", "NewPass!1", "NewPass!1"))
	assert.Equal(t, 1, f.api.ChangeCalls)
	assert.Equal(t, "tok", f.store.Token())
}

func TestChangePassword_ForbiddenEndsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	f.api.ChangeErr = &client.APIError{StatusCode: 403}

	err := f.svc.ChangePassword(context.Background(), "old", "n", "n")
	require.Error(t, err)
	assert.Equal(t, session.Unauthenticated, f.store.State())
}

// ---- DeleteAccount ----

func TestDeleteAccount_WipesEverything(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	require.NoError(t, f.repo.Set(context.Background(), "font_size", []byte("large")))

	require.NoError(t, f.svc.DeleteAccount(context.Background()))

	all, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, session.Unauthenticated, f.store.State())
	assert.Equal(t, guard.ViewAuth, f.nav.last())
}

func TestDeleteAccount_FailureLeavesSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, ann)
	f.api.DeleteErr = errors.New("boom")

	err := f.svc.DeleteAccount(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.Authenticated, f.store.State())
	assert.Empty(t, f.nav.views)
}

// ---- against the fake server ----

func TestAuthFlow_AgainstServer(t *testing.T) {
	ctx := context.Background()
	srv := testserver.New(t)

	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := session.NewStore(db, nil)
	nav := &fakeNav{}
	svc := NewAuthService(client.NewHTTPClient(srv.BaseURL(), store), store, nav, nil)

	require.NoError(t, svc.Signup(ctx, validForm()))
	assert.Equal(t, session.Unauthenticated, store.State())

	_, err = svc.Login(ctx, "ann@example.com", "StrongPass!1")
	require.NoError(t, err)

	u, err := svc.UpdateProfile(ctx, client.ProfileUpdate{Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Equal(t, "555", u.Phone)

	require.NoError(t, svc.ChangePassword(ctx, "StrongPass!1", "Newer#Pass2", "Newer#Pass2"))
	assert.True(t, srv.CheckPassword("ann@example.com", "Newer#Pass2"))

	srv.RevokeTokens()
	_, err = svc.UpdateProfile(ctx, client.ProfileUpdate{Phone: "666"})
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, session.Unauthenticated, store.State())

	_, err = svc.Login(ctx, "ann@example.com", "Newer#Pass2")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx))
	_, ok := srv.User("ann@example.com")
	assert.False(t, ok)
	assert.Equal(t, guard.ViewAuth, nav.last())
}
