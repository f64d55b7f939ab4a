package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	gatewayerrors "github.com/adultna/go-session-gateway/internal/errors"
)

// User is the identity returned by the who-am-i endpoint.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RefreshResult carries the renewed credential pair.
type RefreshResult struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// Service is the gateway's view of the external identity service. The
// service is opaque: it owns credential verification and authorization,
// the gateway only relays.
type Service interface {
	// Me resolves the current user for an access token. A nil error implies
	// a non-nil user.
	Me(ctx context.Context, accessToken string) (*User, error)
	// Refresh exchanges a refresh token for a renewed credential pair.
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
}

// Client talks to the identity service over plain HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client (primarily for testing)
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each call to the identity service.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

const defaultTimeout = 15 * time.Second

var _ Service = (*Client)(nil)

// NewClient creates a Client for the identity service at baseURL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type meResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// Me calls the who-am-i endpoint with the access token as a bearer
// credential. A 401 whose message mentions deactivation surfaces as
// ErrUserDeactivated so the UI can show the distinct condition.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Me] NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(gatewayerrors.ErrIdentityService, err.Error())
	}
	defer resp.Body.Close()

	var body meResponse
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, errors.Wrap(err, "[Client.Me] decode response")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if strings.Contains(strings.ToLower(body.Message), "deactivated") {
			return nil, gatewayerrors.ErrUserDeactivated
		}
		return nil, gatewayerrors.ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("[Client.Me] unexpected status %d", resp.StatusCode)
	}

	// A 200 with a malformed or empty payload counts as failure.
	if !body.Success || body.User == nil || body.User.ID == "" {
		return nil, gatewayerrors.ErrUnauthenticated
	}

	return body.User, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Success               bool      `json:"success"`
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// Refresh exchanges the refresh token. An expired or unknown refresh token
// comes back as ErrInvalidRefreshToken; callers clear both cookies on it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh] NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(gatewayerrors.ErrIdentityService, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, gatewayerrors.ErrInvalidRefreshToken
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("[Client.Refresh] unexpected status %d", resp.StatusCode)
	}

	var body refreshResponse
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh] decode response")
	}
	if !body.Success || body.AccessToken == "" {
		return nil, gatewayerrors.ErrInvalidRefreshToken
	}

	return &RefreshResult{
		AccessToken:           body.AccessToken,
		RefreshToken:          body.RefreshToken,
		AccessTokenExpiresAt:  body.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: body.RefreshTokenExpiresAt,
	}, nil
}

func decodeJSON(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, v), "unmarshal body")
}
