// Package fetcher builds the shared HTTP client used against government
// data APIs: per-host rate limiting, retry with backoff, a stable
// User-Agent.
package fetcher

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the shared HTTP client.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the default per-host rate limiters. The
// public gov APIs are unauthenticated for the most part; stay polite.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"comtradeapi.un.org":      rate.NewLimiter(2, 2),
		"www.federalregister.gov": rate.NewLimiter(2, 2),
		"api.stlouisfed.org":      rate.NewLimiter(5, 5),
	}
}

// NewClient builds an *http.Client whose transport rate-limits per host,
// retries transient failures, and stamps the User-Agent. Safe to share
// across the source clients.
func NewClient(opts Options) *http.Client {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tariff-radar/1.0"
	}
	if opts.RateLimiters == nil {
		opts.RateLimiters = DefaultRateLimiters()
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
			opts: opts,
		},
	}
}

// retryTransport applies rate limiting and retry around a base transport.
// Requests here are all GETs, so replaying an attempt is safe.
type retryTransport struct {
	base http.RoundTripper
	opts Options
}

func (t *retryTransport) limiterFor(host string) *rate.Limiter {
	if lim, ok := t.opts.RateLimiters[host]; ok {
		return lim
	}
	return nil
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var lastErr error
	for attempt := range t.opts.MaxRetries {
		if lim := t.limiterFor(req.URL.Host); lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "fetcher: rate limiter wait")
			}
		}

		cloned := req.Clone(ctx)
		cloned.Header.Set("User-Agent", t.opts.UserAgent)

		resp, err := t.base.RoundTrip(cloned)
		if err != nil {
			lastErr = err
			zap.L().Warn("fetcher: request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if !t.backoff(ctx, attempt) {
				return nil, lastErr
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetcher: http %d from %s", resp.StatusCode, req.URL.Host)
			zap.L().Warn("fetcher: transient status, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			if !t.backoff(ctx, attempt) {
				return nil, lastErr
			}
			continue
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "fetcher: all retries exhausted")
}

// backoff sleeps with exponential backoff plus jitter. Returns false if the
// context was cancelled while waiting.
func (t *retryTransport) backoff(ctx context.Context, attempt int) bool {
	base := 500 * time.Millisecond
	maxBackoff := 10 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
