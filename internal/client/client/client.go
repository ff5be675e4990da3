package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
)

// TokenSource yields the credential to attach to outgoing requests. An empty
// string means "no credential".
type TokenSource interface {
	Token() string
}

// Upload is an optional file attached to a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

type SignupRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Gender    string
	Phone     string
	Image     *Upload
}

// ProfileUpdate holds the fields to change. Empty fields are not sent.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Gender    string
	Phone     string
	Image     *Upload
}

// ChatResponse is an open reply body. Streaming is true when the body length
// is not known up front and fragments arrive as the server produces them.
// The caller must close Body.
type ChatResponse struct {
	Body      io.ReadCloser
	Streaming bool
}

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Signup(ctx context.Context, req SignupRequest) error
	UpdateProfile(ctx context.Context, req ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context) error
}

type ChatAPI interface {
	Chat(ctx context.Context, message string) (*ChatResponse, error)
}

type Client interface {
	AuthAPI
	ChatAPI
}
