package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/engine"
)

// TokenSource supplies the bearer token for sync calls. Returning an error
// or an empty token makes the client fail closed before touching the wire.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource wraps a pre-issued token (useful for tests and kiosks
// provisioned out of band).
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) { return string(s), nil }

// PinTokenSource logs in with the device's phone + PIN and caches the access
// token until shortly before expiry.
type PinTokenSource struct {
	BaseURL string
	Phone   string
	PIN     string
	HTTP    *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewPinTokenSource(baseURL, phone, pin string) *PinTokenSource {
	return &PinTokenSource{
		BaseURL: baseURL,
		Phone:   phone,
		PIN:     pin,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *PinTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires) {
		return s.token, nil
	}

	body, _ := json.Marshal(dto.LoginRequest{Phone: s.Phone, PIN: s.PIN})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", &engine.NetworkError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", &engine.NetworkError{Op: "login", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &engine.AuthError{Reason: "login rejected"}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &engine.NetworkError{Op: "login", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var lr dto.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", &engine.NetworkError{Op: "login", Err: err}
	}

	s.token = lr.AccessToken
	// Refresh one minute early so an in-flight cycle never straddles expiry.
	s.expires = time.Now().Add(time.Duration(lr.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}

// SyncClient is the device-side HTTP client for the server's sync endpoints.
// All calls go through the circuit breaker: while the server is unreachable
// the breaker fast-fails and sync cycles end immediately with a NetworkError,
// leaving every row pending.
type SyncClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewSyncClient(baseURL string, tokens TokenSource) *SyncClient {
	return &SyncClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cb:         NewCircuitBreaker(DefaultCBConfig()),
	}
}

// Breaker exposes the circuit breaker state for health reporting.
func (c *SyncClient) Breaker() *CircuitBreaker { return c.cb }

// Push submits a batch of pending entities.
func (c *SyncClient) Push(ctx context.Context, req dto.PushRequest) (*dto.PushResponse, error) {
	var out dto.PushResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync/push", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pull requests every server-side change since the watermark. A zero since
// requests the full dataset.
func (c *SyncClient) Pull(ctx context.Context, since time.Time) (*dto.PullResponse, error) {
	path := "/api/sync/pull"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var out dto.PullResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SyncClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	// Fail closed: no credential, no network call.
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return &engine.AuthError{Reason: "not authenticated"}
	}

	err = c.cb.Execute(func() error {
		var body *bytes.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return &engine.NetworkError{Op: path, Err: fmt.Errorf("marshal request: %w", err)}
			}
			body = bytes.NewReader(data)
		} else {
			body = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return &engine.NetworkError{Op: path, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &engine.NetworkError{Op: path, Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &engine.AuthError{Reason: fmt.Sprintf("server returned %d", resp.StatusCode)}
		case resp.StatusCode != http.StatusOK:
			return &engine.NetworkError{Op: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &engine.NetworkError{Op: path, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
	if errors.Is(err, ErrCircuitOpen) {
		return &engine.NetworkError{Op: path, Err: err}
	}
	return err
}
