// Package hub talks to the remote package index ("the hub").
//
// The client layers, outside-in: a concurrency ceiling (so background
// status evaluation leaves headroom for user-triggered requests), a
// circuit breaker guarding a flapping hub, exponential-backoff retries
// for transient failures, a response cache, and an HTTP transport with a
// DNS-cached dialer.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenk/backoff"
	"github.com/charmbracelet/log"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"
	"golang.org/x/sync/semaphore"

	"github.com/rednhax/varman/pkg/cache"
	verrors "github.com/rednhax/varman/pkg/errors"
	"github.com/rednhax/varman/pkg/observability"
)

// maxOutbound is the hub client's outbound concurrency ceiling. The
// status scheduler runs below this so interactive requests never queue
// behind background evaluation.
const maxOutbound = 4

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 15 * time.Minute
	userAgent       = "varman/1.0"
)

// Client is a hub API client. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	cache   cache.Cache
	breaker *circuit.Breaker
	sem     *semaphore.Weighted
	logger  *log.Logger
	ttl     time.Duration

	index *indexState
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the response cache. Defaults to a null cache.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// WithLogger sets the logger used for retry and cache diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithCacheTTL overrides the response cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cl *Client) { cl.ttl = ttl }
}

// NewClient creates a hub client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	// Trip after 5 consecutive failures; recovery probes back off
	// exponentially so a down hub isn't hammered.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 30 * time.Second
	bo.MaxInterval = 5 * time.Minute
	bo.Reset()

	c := &Client{
		baseURL: baseURL,
		http:    newHTTPClient(),
		cache:   cache.NewNullCache(),
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    bo,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		}),
		sem:   semaphore.NewWeighted(maxOutbound),
		ttl:   defaultCacheTTL,
		index: newIndexState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient builds the transport with a DNS-cached dialer, so bursts
// of per-resource detail fetches don't re-resolve the hub host.
func newHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: defaultTimeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("dial %s: no resolved address reachable", host)
			},
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: maxOutbound,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// getJSON fetches path into out, consulting the response cache first.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	key := "hub:" + path

	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal(data, out); err == nil {
			observability.Cache().OnCacheHit(ctx, "hub")
			return nil
		}
		// Corrupt entry: drop and refetch.
		_ = c.cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "hub")

	data, err := c.fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return verrors.Wrap(verrors.ErrCodeInternal, err, "decode hub response for %s", path)
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logf("cache write failed for %s: %v", key, err)
	} else {
		observability.Cache().OnCacheSet(ctx, "hub", len(data))
	}
	return nil
}

// fetch performs the request under the concurrency ceiling, the circuit
// breaker, and retry with exponential backoff.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	if !c.breaker.Ready() {
		return nil, verrors.New(verrors.ErrCodeHubDown, "circuit open for %s", c.baseURL)
	}

	var body []byte
	var definitive error
	err := c.breaker.Call(func() error {
		op := func() error {
			data, err := c.doGet(ctx, path)
			if err != nil {
				// Not-found and rate-limit responses are definitive;
				// retrying won't change them.
				if verrors.Is(err, verrors.ErrCodeResourceNotFound) || verrors.Is(err, verrors.ErrCodeRateLimited) {
					return backoff.Permanent(err)
				}
				c.logf("hub request failed, retrying: %s: %v", path, err)
				return err
			}
			body = data
			return nil
		}
		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		err := backoff.Retry(op, backoff.WithContext(bo, ctx))
		// A definitive response is a healthy hub; don't count it as a
		// breaker failure.
		if verrors.Is(err, verrors.ErrCodeResourceNotFound) || verrors.Is(err, verrors.ErrCodeRateLimited) {
			definitive = err
			return nil
		}
		return err
	}, 0)

	if err != nil {
		return nil, err
	}
	if definitive != nil {
		return nil, definitive
	}
	return body, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	observability.HTTP().OnRequest(ctx, http.MethodGet, path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, path, err)
		return nil, verrors.Wrap(verrors.ErrCodeNetwork, err, "GET %s", path)
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodGet, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return nil, verrors.New(verrors.ErrCodeResourceNotFound, "%s", path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, verrors.New(verrors.ErrCodeRateLimited, "%s", path)
	case resp.StatusCode >= 500:
		return nil, verrors.New(verrors.ErrCodeHubDown, "%s: status %d", path, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, verrors.New(verrors.ErrCodeNetwork, "%s: status %d: %s", path, resp.StatusCode, body)
	}
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
