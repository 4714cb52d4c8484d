// Package crawl discovers pages and linked documents breadth-first from a seed URL.
package crawl

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/fetch"
	"github.com/hyperjump/yomu/internal/models"
	"go.uber.org/zap"
)

// Fetcher retrieves raw bytes for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Extractor turns raw bytes into text, title and links.
type Extractor interface {
	Extract(raw []byte, contentType, url string) (*extract.Document, error)
}

// Failure is a URL that could not be fetched.
type Failure struct {
	URL   string
	Depth int
	Err   error
}

// EventFunc observes crawl progress: kind is one of the models.Event* constants.
type EventFunc func(kind, url, detail string)

// VisitFunc receives each candidate as soon as it is fetched and extracted. Returning an
// error stops the crawl.
type VisitFunc func(ctx context.Context, c *models.Candidate) error

// Stats summarizes one crawl.
type Stats struct {
	Pages     int
	Documents int
	Failures  []Failure
}

// Crawler walks a site from a seed URL.
type Crawler struct {
	fetcher            Fetcher
	extractor          Extractor
	allowKeywords      []string
	documentExtensions []string
	robots             *RobotsChecker
	onEvent            EventFunc
	logger             *zap.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets a logger for crawl progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithEvents sets a callback for scan_page, found_document and fetch_failed events.
func WithEvents(fn EventFunc) Option {
	return func(c *Crawler) { c.onEvent = fn }
}

// WithRobots enables robots.txt checks.
func WithRobots(r *RobotsChecker) Option {
	return func(c *Crawler) { c.robots = r }
}

// NewCrawler creates a crawler using the crawl settings for link filtering.
func NewCrawler(f Fetcher, e Extractor, cfg *config.CrawlConfig, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:            f,
		extractor:          e,
		allowKeywords:      cfg.AllowKeywords,
		documentExtensions: cfg.DocumentExtensions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Walk crawls breadth-first from seed and calls visit for every page and document fetched.
//
// Pages at depth < maxDepth have their same-host links queued at depth+1: document links
// always, page links only when the URL contains an allow-list keyword. Documents are never
// followed and do not count against maxPages. Fetch failures are reported in Stats and
// events but do not stop the crawl. Cancelling ctx stops the crawl between fetches.
func (c *Crawler) Walk(ctx context.Context, seed string, maxDepth, maxPages int, visit VisitFunc) (Stats, error) {
	var stats Stats
	start, err := Normalize(seed)
	if err != nil {
		return stats, fmt.Errorf("%w: invalid seed url %q: %w", models.ErrConfiguration, seed, err)
	}
	seedURL, err := url.Parse(start)
	if err != nil || seedURL.Host == "" {
		return stats, fmt.Errorf("%w: invalid seed url %q", models.ErrConfiguration, seed)
	}
	host := HostKey(seedURL)

	frontier := NewFrontier()
	frontier.Push(start, 0)
	for maxPages <= 0 || stats.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		entry, ok := frontier.Pop()
		if !ok {
			break
		}
		if c.robots != nil && !c.robots.Allowed(ctx, entry.URL) {
			c.debug("robots.txt disallowed", zap.String("url", entry.URL))
			continue
		}

		isDoc := HasExtension(entry.URL, c.documentExtensions)
		resp, err := c.fetcher.Fetch(ctx, entry.URL)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failures = append(stats.Failures, Failure{URL: entry.URL, Depth: entry.Depth, Err: err})
			c.emit(models.EventFetchFailed, entry.URL, err.Error())
			if c.logger != nil {
				c.logger.Warn("fetch failed", zap.String("url", entry.URL), zap.Int("depth", entry.Depth), zap.Error(err))
			}
			continue
		}
		if final, err := Normalize(resp.URL); err == nil && final != entry.URL {
			frontier.MarkVisited(final)
		}

		cand := &models.Candidate{
			URL:         entry.URL,
			Kind:        models.KindPage,
			Depth:       entry.Depth,
			ContentType: resp.ContentType,
			Raw:         resp.Body,
		}
		if isDoc {
			cand.Kind = models.KindDocument
		}
		doc, err := c.extractor.Extract(resp.Body, resp.ContentType, resp.URL)
		if err != nil {
			cand.ExtractErr = err
			cand.Title = extract.TitleFromURL(entry.URL)
		} else {
			cand.Title, cand.Text = doc.Title, doc.Text
			if !isDoc {
				cand.Links = doc.Links
			}
		}

		if isDoc {
			stats.Documents++
			c.emit(models.EventFoundDocument, entry.URL, fmt.Sprintf("depth=%d", entry.Depth))
		} else {
			stats.Pages++
			c.emit(models.EventScanPage, entry.URL, fmt.Sprintf("depth=%d links=%d", entry.Depth, len(cand.Links)))
			if entry.Depth < maxDepth {
				c.enqueueLinks(frontier, cand.Links, host, entry.Depth+1)
			}
		}
		c.debug("crawled",
			zap.String("url", entry.URL),
			zap.String("kind", string(cand.Kind)),
			zap.Int("depth", entry.Depth),
			zap.Int("bytes", len(resp.Body)),
		)

		if err := visit(ctx, cand); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Discover crawls like Walk and returns every candidate plus the URLs that failed to fetch.
func (c *Crawler) Discover(ctx context.Context, seed string, maxDepth, maxPages int) ([]*models.Candidate, []Failure, error) {
	var candidates []*models.Candidate
	stats, err := c.Walk(ctx, seed, maxDepth, maxPages, func(_ context.Context, cand *models.Candidate) error {
		candidates = append(candidates, cand)
		return nil
	})
	return candidates, stats.Failures, err
}

func (c *Crawler) enqueueLinks(frontier *Frontier, links []string, host string, depth int) {
	for _, link := range links {
		norm, err := Normalize(link)
		if err != nil || !SameHost(norm, host) || frontier.Visited(norm) {
			continue
		}
		if HasExtension(norm, c.documentExtensions) || ContainsKeyword(norm, c.allowKeywords) {
			frontier.Push(norm, depth)
		}
	}
}

func (c *Crawler) emit(kind, url, detail string) {
	if c.onEvent != nil {
		c.onEvent(kind, url, detail)
	}
}

func (c *Crawler) debug(msg string, fields ...zap.Field) {
	if c.logger != nil {
		c.logger.Debug(msg, fields...)
	}
}
