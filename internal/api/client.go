package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joltcab/console/internal/logger"
	"github.com/joltcab/console/internal/metrics"
)

// TokenSource supplies the bearer token at request-build time.
type TokenSource interface {
	Token() string
}

// Options configures a Client.
type Options struct {
	// BaseURL is prepended verbatim to every request path.
	BaseURL string

	// Timeout bounds one round trip. Zero means 30 seconds.
	Timeout time.Duration

	// RateLimit enables a client-side limiter (requests per second) when
	// positive. Burst defaults to 1.
	RateLimit float64
	Burst     int

	// HTTPClient replaces the default http.Client. Timeout is ignored
	// when set.
	HTTPClient *http.Client

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Client is the HTTP request executor for the JoltCab backend. It builds
// one authenticated JSON request per call and normalizes the response
// envelope. It never changes the session token itself.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new executor. tokens may be nil for an
// unauthenticated client.
func NewClient(opts Options, tokens TokenSource) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    limiter,
		log:        log.WithComponent("api"),
		metrics:    opts.Metrics,
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption customizes a single request.
type RequestOption func(*http.Request)

// WithHeader sets a header on the request, overriding the defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(params Params) RequestOption {
	return func(r *http.Request) {
		if len(params) == 0 {
			return
		}
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Params are query string parameters for list endpoints.
type Params map[string]string

// Get performs an HTTP GET request.
func (c *Client) Get(
	ctx context.Context,
	path string,
	opts ...RequestOption,
) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs an HTTP POST request with a JSON body.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	opts ...RequestOption,
) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

// Put performs an HTTP PUT request with a JSON body.
func (c *Client) Put(
	ctx context.Context,
	path string,
	body interface{},
	opts ...RequestOption,
) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

// Patch performs an HTTP PATCH request with a JSON body.
func (c *Client) Patch(
	ctx context.Context,
	path string,
	body interface{},
	opts ...RequestOption,
) (*Envelope, error) {
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(
	ctx context.Context,
	path string,
	opts ...RequestOption,
) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Do is the core method: it builds the request, attaches the default
// headers and the bearer token, parses the JSON body and maps non-2xx
// statuses to *Error. A 2xx envelope with success=false is returned as
// is; interpreting it is the caller's job.
func (c *Client) Do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	opts ...RequestOption,
) (*Envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for _, opt := range opts {
		opt(req)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		c.log.Error("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.log.Debug("request completed",
		slog.String("method", method),
		slog.String("path", redactQuery(req.URL)),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var env Envelope
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			if !ok {
				// An HTML error page from a proxy still is an HTTP failure.
				return nil, &Error{
					StatusCode: resp.StatusCode,
					Method:     method,
					Path:       path,
					Message:    defaultErrorMessage,
				}
			}
			c.log.Error("malformed response",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
	}

	if !ok {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    env.failureMessage(),
		}
	}

	return &env, nil
}

// redactQuery drops the query string from logged paths; it may carry
// search terms or reset tokens.
func redactQuery(u *url.URL) string {
	return u.Path
}
