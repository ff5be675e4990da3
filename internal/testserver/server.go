// Package testserver is an in-process stand-in for the remote identity and
// chat service. Tests point the real HTTP client at it.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel is appended to every streamed chat reply.
const Sentinel = "[END]"

type account struct {
	user models.User
	hash []byte
}

type failure struct {
	status  int
	message string
}

// Server exposes the endpoints under /api.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	images   map[string][]byte
	secret   []byte
	hits     map[string]int
	failures map[string]failure

	// ChatFragments produces the reply for a message. Defaults to an echo.
	ChatFragments func(message string) []string
	// ChatBuffered sends the whole reply with a Content-Length instead of
	// streaming it.
	ChatBuffered bool
	// ChatAbortAfter, when > 0, drops the connection after that many
	// fragments have been flushed.
	ChatAbortAfter int
	// ChatHold, when set, blocks the chat handler until it is closed.
	ChatHold chan struct{}
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts: map[string]*account{},
		images:   map[string][]byte{},
		secret:   []byte(uuid.NewString()),
		hits:     map[string]int{},
		failures: map[string]failure{},
		ChatFragments: func(message string) []string {
			return []string{"You asked: ", message}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", s.count(s.handleSignup))
	mux.HandleFunc("POST /api/auth/login", s.count(s.handleLogin))
	mux.HandleFunc("POST /api/auth/update-profile", s.count(s.authorized(s.handleUpdateProfile)))
	mux.HandleFunc("POST /api/auth/change-password", s.count(s.authorized(s.handleChangePassword)))
	mux.HandleFunc("DELETE /api/auth/delete-account", s.count(s.authorized(s.handleDeleteAccount)))
	mux.HandleFunc("POST /api/chat", s.count(s.handleChat))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root to hand to the client.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// AddUser registers an account directly.
func (s *Server) AddUser(u models.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Email] = &account{user: u, hash: hash}
}

// User returns the stored profile for email.
func (s *Server) User(email string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return models.User{}, false
	}
	return a.user, true
}

// CheckPassword reports whether password is the current password of email.
func (s *Server) CheckPassword(email, password string) bool {
	s.mu.Lock()
	a, ok := s.accounts[email]
	s.mu.Unlock()
	return ok && bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// Token mints a valid credential for email.
func (s *Server) Token(email string) string {
	tok, err := issueToken(email, s.secret, time.Hour)
	if err != nil {
		panic(err)
	}
	return tok
}

// RevokeTokens invalidates every credential issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = []byte(uuid.NewString())
}

// FailNext makes the next call to path (e.g. "/auth/login") answer with
// status and {"message": message}.
func (s *Server) FailNext(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures["/api"+path] = failure{status: status, message: message}
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits["/api"+path]
}

func (s *Server) count(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		f, failing := s.failures[r.URL.Path]
		delete(s.failures, r.URL.Path)
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		next(w, r)
	}
}

func (s *Server) authorized(next func(w http.ResponseWriter, r *http.Request, email string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tok == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}

		s.mu.Lock()
		secret := s.secret
		s.mu.Unlock()

		email, err := emailFromToken(tok, secret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
			return
		}
		next(w, r, email)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid form"})
		return
	}

	u := models.User{
		ID:        uuid.NewString(),
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Email:     r.FormValue("email"),
		Gender:    r.FormValue("gender"),
		Phone:     r.FormValue("phone"),
	}
	password := r.FormValue("password")
	if u.FirstName == "" || u.LastName == "" || u.Email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "All required fields must be filled"})
		return
	}

	if ref, ok := s.saveImage(r); ok {
		u.ProfileImage = ref
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[u.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email already exists"})
		return
	}
	s.accounts[u.Email] = &account{user: u, hash: hash}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "token": s.Token(u.Email)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}

	if !s.CheckPassword(body.Email, body.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	u, _ := s.User(body.Email)
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "token": s.Token(u.Email)})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, email string) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid form"})
		return
	}
	ref, hasImage := s.saveImage(r)

	s.mu.Lock()
	a, ok := s.accounts[email]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	a.user = a.user.Merge(models.User{
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Gender:    r.FormValue("gender"),
		Phone:     r.FormValue("phone"),
	})
	if hasImage {
		a.user.ProfileImage = ref
	}
	u := a.user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully!", "user": u})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, email string) {
	var body struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}
	if !s.CheckPassword(email, body.OldPassword) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}
	s.mu.Lock()
	s.accounts[email].hash = hash
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	_, ok := s.accounts[email]
	delete(s.accounts, email)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "Please enter a question.")
		return
	}

	if s.ChatHold != nil {
		select {
		case <-s.ChatHold:
		case <-r.Context().Done():
			return
		}
	}

	fragments := s.ChatFragments(msg)
	w.Header().Set("Content-Type", "text/plain")

	if s.ChatBuffered {
		full := strings.Join(fragments, "")
		w.Header().Set("Content-Length", fmt.Sprint(len(full)))
		_, _ = io.WriteString(w, full)
		return
	}

	flusher, _ := w.(http.Flusher)
	for i, f := range fragments {
		if s.ChatAbortAfter > 0 && i == s.ChatAbortAfter {
			panic(http.ErrAbortHandler)
		}
		_, _ = io.WriteString(w, f)
		if flusher != nil {
			flusher.Flush()
		}
	}
	if s.ChatAbortAfter > 0 && len(fragments) <= s.ChatAbortAfter {
		panic(http.ErrAbortHandler)
	}
	_, _ = io.WriteString(w, Sentinel)
}

func (s *Server) saveImage(r *http.Request) (string, bool) {
	file, header, err := r.FormFile("profileImage")
	if err != nil {
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", false
	}
	ref := fmt.Sprintf("/uploads/profiles/%s_%s", strings.ReplaceAll(uuid.NewString(), "-", ""), header.Filename)

	s.mu.Lock()
	s.images[ref] = data
	s.mu.Unlock()
	return ref, true
}

// Image returns the bytes uploaded under ref.
func (s *Server) Image(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.images[ref]
	return b, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
