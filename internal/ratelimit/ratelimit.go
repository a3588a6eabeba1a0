package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// HostLimiter enforces a minimum delay between requests to the same host.
// Limiters are created lazily per host so every job board gets its own budget.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

// NewHostLimiter creates a limiter that allows one request per minDelay for
// each host. A zero or negative minDelay disables limiting.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	r := rate.Inf
	if minDelay > 0 {
		r = rate.Every(minDelay)
	}
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: r,
		b: 1,
	}
}

func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[host]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.m[host] = lim
	}
	return lim
}

// Wait blocks until the host's limiter allows another request.
// Returns an error if the context is cancelled while waiting.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if err := l.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// WaitURL extracts the host from rawURL and waits on its limiter.
// Unparseable URLs fall back to the raw string as the key.
func (l *HostLimiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return l.Wait(ctx, rawURL)
	}
	return l.Wait(ctx, u.Host)
}

// RateLimitedSource is a decorator that enforces host-level rate limiting
// before delegating to the wrapped PostingSource.
type RateLimitedSource struct {
	inner   model.PostingSource
	limiter *HostLimiter
	url     string
}

// NewRateLimitedSource wraps a PostingSource with host-level rate limiting.
// All sources should share the same limiter instance so sources on the same
// host queue behind each other.
func NewRateLimitedSource(inner model.PostingSource, limiter *HostLimiter, url string) *RateLimitedSource {
	return &RateLimitedSource{
		inner:   inner,
		limiter: limiter,
		url:     url,
	}
}

// Name returns the wrapped source's name.
func (s *RateLimitedSource) Name() string {
	return s.inner.Name()
}

// Fetch waits for the rate limiter to allow a request, then delegates to
// the wrapped source.
func (s *RateLimitedSource) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	if err := s.limiter.WaitURL(ctx, s.url); err != nil {
		return nil, err
	}
	return s.inner.Fetch(ctx)
}
