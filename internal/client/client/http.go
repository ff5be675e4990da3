package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
	"github.com/dmitrijs2005/thyroscope/internal/logging"
	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerRequestID     = "X-Request-ID"
	contentTypeJSON     = "application/json"
)

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
	log     logging.Logger
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithTimeout bounds every non-streaming call. Chat replies are bounded only
// by the caller's context, since a stream may legitimately run long.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) { h.log = l }
}

func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{},
		tokens:  tokens,
		timeout: 30 * time.Second,
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, "", err
	}
	if resp.User == nil || resp.Token == "" {
		return nil, "", fmt.Errorf("login response is missing user or token")
	}
	return resp.User, resp.Token, nil
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) error {
	fields := map[string]string{
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"email":     req.Email,
		"password":  req.Password,
		"gender":    req.Gender,
		"phone":     req.Phone,
	}
	return c.doMultipart(ctx, "/auth/signup", fields, req.Image, nil)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, req ProfileUpdate) (*models.User, error) {
	fields := map[string]string{}
	for k, v := range map[string]string{
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"gender":    req.Gender,
		"phone":     req.Phone,
	} {
		if v != "" {
			fields[k] = v
		}
	}

	var resp userResponse
	if err := c.doMultipart(ctx, "/auth/update-profile", fields, req.Image, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("update-profile response is missing user")
	}
	return resp.User, nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return c.doJSON(ctx, http.MethodPost, "/auth/change-password", body, nil)
}

func (c *HTTPClient) DeleteAccount(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/auth/delete-account", nil, nil)
}

// Chat opens one chat turn. On success the body is left open for the caller
// to consume incrementally.
func (c *HTTPClient) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat", bytes.NewReader(payload), contentTypeJSON)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerAccept, "text/plain")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, parseError(resp.StatusCode, b)
	}

	return &ChatResponse{Body: resp.Body, Streaming: resp.ContentLength < 0}, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
		contentType = contentTypeJSON
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, reader, contentType)
	if err != nil {
		return err
	}
	return c.roundTrip(req, result)
}

func (c *HTTPClient) doMultipart(ctx context.Context, path string, fields map[string]string, image *Upload, result any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("profileImage", image.Filename)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, image.Content); err != nil {
			return fmt.Errorf("failed to copy image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	return c.roundTrip(req, result)
}

func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerRequestID, uuid.Must(uuid.NewV7()).String())
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set(headerAuthorization, "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *HTTPClient) send(req *http.Request) (*http.Response, error) {
	c.log.Debug(req.Context(), "request", "method", req.Method, "path", req.URL.Path,
		"request_id", req.Header.Get(headerRequestID))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, ErrUnavailable, err)
	}
	return resp, nil
}

func (c *HTTPClient) roundTrip(req *http.Request, result any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
