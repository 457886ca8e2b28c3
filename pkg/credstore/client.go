// Package credstore talks to the hosted credential store that owns user
// accounts and SSO sessions. Only the two calls the login flow needs are
// exposed: creating a password account and starting SP-initiated SSO for a
// domain.
package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

// Store is the credential store as seen by the routing controller
type Store interface {
	// SignUp creates a password account for email
	SignUp(ctx context.Context, email, password string) error
	// SignInWithSSO starts SP-initiated SSO for domain and returns the URL the
	// browser should visit. redirectTo is where the IdP sends the user back.
	SignInWithSSO(ctx context.Context, domain, redirectTo string) (string, error)
}

// Operation names used in metrics
const (
	OpSignUp        = "signup"
	OpSignInWithSSO = "sso"
)

const maxErrorBody = 64 << 10

// Error is a non-2xx answer from the credential store
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("credential store returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("credential store returned %d: %s", e.Status, e.Message)
}

// ErrEmptySSOURL is returned when the SSO endpoint answers 2xx without a URL
var ErrEmptySSOURL = errors.New("credential store returned no SSO url")

// Config configures Client
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.example.co
	BaseURL string
	// APIKey is sent in the apikey header on every request
	APIKey string
	// AccessToken is sent as the bearer token; defaults to APIKey
	AccessToken string
	// HTTPClient is the base client; defaults to an otelhttp-instrumented
	// client
	HTTPClient *http.Client
}

// Client is an HTTP client for the credential store's auth API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *observability.Metrics
}

// NewClient creates a client. Timeouts are left to the caller's context.
func NewClient(cfg Config, metrics *observability.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("credential store base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("credential store API key is required")
	}

	token := cfg.AccessToken
	if token == "" {
		token = cfg.APIKey
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		metrics: metrics,
	}, nil
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ssoRequest struct {
	Domain           string `json:"domain"`
	RedirectTo       string `json:"redirect_to,omitempty"`
	SkipHTTPRedirect bool   `json:"skip_http_redirect"`
}

type ssoResponse struct {
	URL string `json:"url"`
}

// SignUp creates a password account
func (c *Client) SignUp(ctx context.Context, email, password string) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordCredentialStoreCall(OpSignUp, err, time.Since(start)) }()

	return c.post(ctx, "/auth/v1/signup", signUpRequest{Email: email, Password: password}, nil)
}

// SignInWithSSO starts SP-initiated SSO for domain
func (c *Client) SignInWithSSO(ctx context.Context, domain, redirectTo string) (url string, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordCredentialStoreCall(OpSignInWithSSO, err, time.Since(start)) }()

	var resp ssoResponse
	if err := c.post(ctx, "/auth/v1/sso", ssoRequest{
		Domain:           domain,
		RedirectTo:       redirectTo,
		SkipHTTPRedirect: true,
	}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", ErrEmptySSOURL
	}
	return resp.URL, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("credential store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorBody covers the error shapes the auth API emits
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func parseError(resp *http.Response) *Error {
	e := &Error{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return e
	}

	e.Code = firstNonEmpty(body.ErrorCode, body.Error)
	e.Message = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription, body.Error, http.StatusText(resp.StatusCode))
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsError reports whether err is (or wraps) a credential store *Error
func IsError(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr)
}
