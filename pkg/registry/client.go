// Package registry fetches published package versions from the npm
// registry. It backs the upgrade detector, which reports how far the
// workspace's external dependencies lag behind their registries. The
// planner never consults the registry; plans are computed purely from
// the workspace and its changesets.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/cascade/pkg/cache"
)

const (
	httpTimeout = 10 * time.Second

	// DefaultTTL is how long registry responses stay cached.
	DefaultTTL = 6 * time.Hour
)

var (
	// ErrNotFound is returned when a package does not exist in the registry.
	ErrNotFound = errors.New("package not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses) that survived retrying.
	ErrNetwork = errors.New("network error")
)

// RetryableError marks an error as transient so [retry] attempts it again.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// retry runs fn up to attempts times, doubling the delay between tries.
// Only errors wrapped in [RetryableError] are retried.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var rerr *RetryableError
		if !errors.As(err, &rerr) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// Client is a caching HTTP client for a single npm-compatible registry.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	baseURL string
	ttl     time.Duration
}

// Config configures a [Client]. Zero values pick sensible defaults:
// the public npm registry, a 10s HTTP timeout, no caching.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      cache.Cache
	TTL        time.Duration
}

// NewClient builds a client from the config.
func NewClient(cfg Config) *Client {
	c := &Client{
		http:    cfg.HTTPClient,
		cache:   cfg.Cache,
		baseURL: cfg.BaseURL,
		ttl:     cfg.TTL,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: httpTimeout}
	}
	if c.cache == nil {
		c.cache = cache.NullCache{}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultURL
	}
	if c.ttl == 0 {
		c.ttl = DefaultTTL
	}
	return c
}

// cached decodes the value for key from the cache, or runs fetch and
// stores the raw bytes before decoding.
func (c *Client) cached(ctx context.Context, key string, v any, fetch func() ([]byte, error)) error {
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if json.Unmarshal(data, v) == nil {
			return nil
		}
		// Undecodable cache entry: refetch below.
	}

	data, err := fetch()
	if err != nil {
		return err
	}
	// A cache write failure degrades to uncached operation.
	_ = c.cache.Set(ctx, key, data, c.ttl)
	return json.Unmarshal(data, v)
}

// get performs a GET with retries and returns the response body.
func (c *Client) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var body []byte
	err := retry(ctx, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
		defer resp.Body.Close()

		if err := checkStatus(resp.StatusCode, url); err != nil {
			return err
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
		}
		return nil
	})
	return body, err
}

func checkStatus(status int, url string) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	case status == http.StatusTooManyRequests || status >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: %s returned %d", ErrNetwork, url, status)}
	default:
		return fmt.Errorf("%s returned unexpected status %d", url, status)
	}
}
