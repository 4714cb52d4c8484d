package crawl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/benjaminestes/robots"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RobotsChecker answers robots.txt queries, fetching each host's file once. A robots.txt
// that cannot be fetched or parsed allows everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
	limiter   *rate.Limiter

	mu    sync.Mutex
	cache map[string]*robots.Robots
}

// RobotsOption configures a RobotsChecker.
type RobotsOption func(*RobotsChecker)

// WithRobotsLimiter makes robots.txt requests wait on l, normally the page fetcher's limiter.
func WithRobotsLimiter(l *rate.Limiter) RobotsOption {
	return func(c *RobotsChecker) { c.limiter = l }
}

// NewRobotsChecker creates a checker that identifies itself as userAgent.
func NewRobotsChecker(client *http.Client, userAgent string, logger *zap.Logger, opts ...RobotsOption) *RobotsChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robots.Robots),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allowed reports whether rawURL may be fetched.
func (c *RobotsChecker) Allowed(ctx context.Context, rawURL string) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("robots.txt check panicked, assuming allowed", zap.String("url", rawURL), zap.Any("panic", r))
			allowed = true
		}
	}()

	robotsURL, err := robots.Locate(rawURL)
	if err != nil {
		return true
	}

	c.mu.Lock()
	r, ok := c.cache[robotsURL]
	c.mu.Unlock()
	if !ok {
		// not cached: the crawl is stopping or out of time
		if c.limiter != nil && c.limiter.Wait(ctx) != nil {
			return true
		}
		r, err = c.fetch(ctx, robotsURL)
		if err != nil && ctx.Err() != nil {
			return true
		}
		if err != nil {
			c.logger.Warn("failed to fetch robots.txt", zap.String("url", robotsURL), zap.Error(err))
			r = nil
		}
		c.mu.Lock()
		c.cache[robotsURL] = r
		c.mu.Unlock()
	}
	if r == nil {
		return true
	}
	return r.Test(c.userAgent, rawURL)
}

func (c *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robots.Robots, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, err
	}
	return robots.From(resp.StatusCode, bytes.NewReader(body))
}
