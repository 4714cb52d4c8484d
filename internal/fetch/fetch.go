// Package fetch retrieves raw bytes over HTTP with pacing between requests.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "yomu/1.0 (+https://github.com/hyperjump/yomu)"

// Response is a successful (2xx) fetch.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher performs paced HTTP GETs. Every call waits on the limiter first, whatever the
// outcome of the previous call.
type Fetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher builds a fetcher from the crawl settings. A delay of zero disables pacing.
func NewFetcher(cfg *config.CrawlConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{Timeout: cfg.GetTimeout()},
		limiter:      NewLimiter(cfg.GetDelay()),
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewLimiter returns a limiter allowing one event per delay.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Limiter returns the limiter every Fetch waits on. Other requests to crawled hosts share it.
func (f *Fetcher) Limiter() *rate.Limiter {
	return f.limiter
}

// UserAgent returns the User-Agent header value sent with every request.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Fetch GETs url. Transport errors, non-2xx statuses and read errors wrap models.ErrFetchFailure.
// Bodies longer than the configured maximum are truncated.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrFetchFailure, url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", models.ErrFetchFailure, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrFetchFailure, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("%w: HTTP %d for %s", models.ErrFetchFailure, resp.StatusCode, url)
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %w", models.ErrFetchFailure, url, err)
	}

	if f.logger != nil {
		f.logger.Debug("fetched",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Int("bytes", len(data)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
