package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"animap/internal/services"
)

const (
	defaultHTTPTimeout    = 20 * time.Second
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	maxErrorBody          = 512
)

// Client is a rate-limited JSON HTTP client shared by every gateway of one
// catalog. Only HTTP 429 responses are retried; every other failure is
// returned to the caller as-is.
type Client struct {
	name           string
	httpClient     *http.Client
	limiter        *rate.Limiter
	userAgent      string
	headers        http.Header
	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
	now            func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithLimiter injects the catalog's request budget.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRetry overrides how many times a 429 response is retried and the base
// backoff used when the server gives no hint.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.retryBaseDelay = baseDelay
		}
	}
}

// WithSleeper replaces the backoff sleep, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewLimiter converts a requests-per-second budget into a limiter. A
// non-positive budget disables limiting.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// New constructs a client for the named catalog.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:           name,
		httpClient:     &http.Client{Timeout: defaultHTTPTimeout},
		headers:        http.Header{},
		maxRetries:     3,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the catalog this client talks to.
func (c *Client) Name() string {
	return c.name
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON encodes body as JSON, posts it to url and decodes the reply into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPost, url, body, out)
}

// GetText fetches url and returns the raw body.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, url, nil, nil, "")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetJSONWithHeader is GetJSON plus headers for this request only, such as a
// short-lived bearer token.
func (c *Client) GetJSONWithHeader(ctx context.Context, url string, header http.Header, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, header, nil, out)
}

// DoJSON performs a request with an optional JSON body and decodes a JSON reply.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) error {
	return c.doJSON(ctx, method, url, nil, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, header http.Header, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, c.name, "encode request", "", err)
		}
	}
	data, err := c.do(ctx, method, url, header, encoded, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrTransient, c.name, "decode response", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, header http.Header, body []byte, accept string) ([]byte, error) {
	attempts := c.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := c.once(ctx, method, url, header, body, accept)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests || attempt == attempts {
			break
		}
		delay := statusErr.RetryAfter
		if delay <= 0 {
			delay = c.backoffDelay(attempt)
		}
		if err := c.sleep(ctx, c.capDelay(delay)); err != nil {
			return nil, services.Wrap(services.ErrTimeout, c.name, "rate limit backoff", url, err)
		}
	}
	return nil, classify(c.name, url, lastErr)
}

func (c *Client) once(ctx context.Context, method, url string, header http.Header, body []byte, accept string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" && req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body (latency=%v): %w", latency, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       snippet,
			RetryAfter: c.retryAfter(resp.Header),
		}
	}
	return data, nil
}

func classify(name, url string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, name, "request", url, err)
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return services.Wrap(services.ErrRateLimited, name, "request", url, err)
		case statusErr.StatusCode == http.StatusUnauthorized, statusErr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, name, "request", url, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, name, "request", url, err)
	}
	return services.Wrap(services.ErrTransient, name, "request", url, err)
}

// retryAfter reads Retry-After (seconds or HTTP date) and falls back to
// X-RateLimit-Reset (unix seconds).
func (c *Client) retryAfter(header http.Header) time.Duration {
	if delay, ok := parseRetryAfter(header.Get("Retry-After"), c.now()); ok {
		return delay
	}
	if reset := strings.TrimSpace(header.Get("X-RateLimit-Reset")); reset != "" {
		if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if delay := time.Unix(unix, 0).Sub(c.now()); delay > 0 {
				return delay
			}
		}
	}
	return 0
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := when.Sub(now)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// backoffDelay doubles from the base delay: attempt 1 -> base, 2 -> base*2, ...
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > c.retryMaxDelay/2 {
			return c.retryMaxDelay
		}
		delay *= 2
	}
	return delay
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
