// Package httpclient wraps http.Client with an ordered interceptor
// chain covering CSRF header injection, request validation, payload
// sanitization, and login throttling. Interceptors are explicit and
// composable rather than hidden behind a patched transport.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/securedbank/sentinel/internal/security"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
)

// Next advances the interceptor chain. The final Next performs the
// actual round trip.
type Next func(*http.Request) (*http.Response, error)

// Interceptor wraps a request on its way out and the response on its
// way back. An interceptor may short-circuit by returning without
// calling next.
type Interceptor func(*http.Request, Next) (*http.Response, error)

// TokenSource supplies the current bearer token and performs a refresh
// when the server rejects it.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// Config tunes the client. Zero values take the defaults.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	CleanupInterval time.Duration
}

// Client is an HTTP client with a security interceptor pipeline.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	tokens     TokenSource
	security   *security.Services

	mu           sync.RWMutex
	interceptors []Interceptor

	cleanupStop chan struct{}
}

// New builds a client with the standard pipeline: login throttling,
// CSRF header injection, preflight validation, and payload
// sanitization, in that order.
func New(config Config, services *security.Services, tokens TokenSource) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		timeout:    config.Timeout,
		tokens:     tokens,
		security:   services,
	}
	c.interceptors = []Interceptor{
		LoginThrottleInterceptor(services.Throttle),
		CSRFInterceptor(services.CSRF),
		ValidateInterceptor(services),
		SanitizeInterceptor(),
	}

	interval := config.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	c.cleanupStop = make(chan struct{})
	go c.cleanupLoop(interval)

	return c
}

// Use appends an interceptor to the end of the pipeline. Safe to call
// while requests are in flight; those requests keep the chain they
// started with.
func (c *Client) Use(interceptor Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, interceptor)
}

// chain returns a snapshot of the pipeline for a single request.
func (c *Client) chain() []Interceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interceptors[:len(c.interceptors):len(c.interceptors)]
}

// Do sends the request through the pipeline. Every request runs under
// the configured wall-clock timeout. A TOKEN_EXPIRED result triggers
// exactly one token refresh and retry before the error is returned.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}

	secErr, ok := AsSecurityError(err)
	if !ok || secErr.Code != CodeTokenExpired || c.tokens == nil {
		return nil, err
	}

	token, refreshErr := c.tokens.Refresh(ctx)
	if refreshErr != nil {
		return nil, secErr
	}

	retry, cloneErr := cloneRequest(req)
	if cloneErr != nil {
		return nil, secErr
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	return c.send(ctx, retry)
}

// Get issues a GET request through the pipeline.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, normalizeError(err)
	}
	return c.Do(ctx, req)
}

// Post issues a POST request with a JSON body through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, normalizeError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(ctx, req)
}

// Close stops the background cleanup loop.
func (c *Client) Close() {
	select {
	case <-c.cleanupStop:
	default:
		close(c.cleanupStop)
	}
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req = req.WithContext(ctx)
	if c.tokens != nil && req.Header.Get("Authorization") == "" {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	interceptors := c.chain()
	next := c.transport(cancel)
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		inner := next
		next = func(r *http.Request) (*http.Response, error) {
			return interceptor(r, inner)
		}
	}

	resp, err := next(req)
	if err != nil {
		cancel()
		return nil, normalizeError(err)
	}
	return resp, nil
}

// transport is the innermost Next: the real round trip plus status
// classification. The context cancel func is tied to body close so the
// caller can stream the response.
func (c *Client) transport(cancel context.CancelFunc) Next {
	return func(req *http.Request) (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, normalizeError(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			secErr := statusError(resp)
			resp.Body.Close()
			return nil, secErr
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
}

func (c *Client) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.cleanupStop:
			return
		case <-ticker.C:
			c.security.Cleanup(nil)
		}
	}
}

// cloneRequest duplicates a request including its body so it can be
// replayed after a token refresh.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
