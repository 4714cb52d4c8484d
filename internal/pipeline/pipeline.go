// Package pipeline runs ingestion: crawl, change gate, chunk and index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/changes"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/crawl"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
)

// Report summarizes one ingestion run.
type Report struct {
	RunID       string        `json:"run_id"`
	Seed        string        `json:"seed"`
	Pages       int           `json:"pages"`
	Documents   int           `json:"documents"`
	FetchFailed int           `json:"fetch_failed"`
	Processed   int           `json:"processed"`
	Unchanged   int           `json:"unchanged"`
	Failed      int           `json:"failed"`
	Chunks      int           `json:"chunks"`
	Duration    time.Duration `json:"duration_ns"`
}

// Pipeline owns one ingestion path. Runs are synchronous; callers serialize them.
type Pipeline struct {
	store      storage.Storage
	tracker    *changes.Tracker
	indexer    *indexer.Indexer
	fetcher    crawl.Fetcher
	extractor  crawl.Extractor
	cfg        config.CrawlConfig
	robots     *crawl.RobotsChecker
	vectors    vector.VectorIndex
	vectorPath string
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRobots checks robots.txt before each fetch.
func WithRobots(r *crawl.RobotsChecker) Option {
	return func(p *Pipeline) { p.robots = r }
}

// WithVectorFile saves index to path at the end of every run.
func WithVectorFile(index vector.VectorIndex, path string) Option {
	return func(p *Pipeline) {
		p.vectors = index
		p.vectorPath = path
	}
}

// New creates a pipeline.
func New(
	store storage.Storage,
	tracker *changes.Tracker,
	idx *indexer.Indexer,
	fetcher crawl.Fetcher,
	extractor crawl.Extractor,
	cfg *config.CrawlConfig,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		store:     store,
		tracker:   tracker,
		indexer:   idx,
		fetcher:   fetcher,
		extractor: extractor,
		cfg:       *cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run crawls from the seed and indexes every new or changed source. Per-source failures are
// counted in the report and logged; only cancellation, an invalid seed or a failed reset
// end the run with an error. The partial report is returned with the error.
func (p *Pipeline) Run(ctx context.Context, req *models.IngestRequest) (*Report, error) {
	if req == nil {
		req = &models.IngestRequest{}
	}
	seed := req.SeedURL
	if seed == "" {
		seed = p.cfg.SeedURL
	}
	if seed == "" {
		return nil, fmt.Errorf("%w: no seed URL configured", models.ErrConfiguration)
	}
	maxDepth := p.cfg.MaxDepth
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}
	maxPages := p.cfg.MaxPages
	if req.MaxPages > 0 {
		maxPages = req.MaxPages
	}

	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Seed: seed}
	run := &run{Pipeline: p, ctx: ctx, report: report}

	if req.FullReset {
		if err := p.reset(ctx); err != nil {
			return report, err
		}
		run.record(models.EventReset, seed, "full reset")
	}
	run.record(models.EventStartIngest, seed, fmt.Sprintf("depth=%d max_pages=%d", maxDepth, maxPages))
	p.logger.Info("Ingestion started",
		zap.String("run_id", report.RunID),
		zap.String("seed", seed),
		zap.Int("max_depth", maxDepth),
		zap.Int("max_pages", maxPages),
		zap.Bool("full_reset", req.FullReset))

	opts := []crawl.Option{crawl.WithLogger(p.logger), crawl.WithEvents(run.record)}
	if p.robots != nil {
		opts = append(opts, crawl.WithRobots(p.robots))
	}
	crawler := crawl.NewCrawler(p.fetcher, p.extractor, &p.cfg, opts...)
	stats, walkErr := crawler.Walk(ctx, seed, maxDepth, maxPages, run.visit)
	report.Pages = stats.Pages
	report.Documents = stats.Documents
	report.FetchFailed = len(stats.Failures)

	if err := p.saveVectors(); err != nil {
		p.logger.Error("Failed to save vector index", zap.Error(err))
		if walkErr == nil {
			walkErr = err
		}
	}
	report.Duration = time.Since(start)

	fields := []zap.Field{
		zap.String("run_id", report.RunID),
		zap.Int("pages", report.Pages),
		zap.Int("documents", report.Documents),
		zap.Int("processed", report.Processed),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
		zap.Int("fetch_failed", report.FetchFailed),
		zap.Int("chunks", report.Chunks),
		zap.Duration("duration", report.Duration),
	}
	if walkErr != nil {
		p.logger.Warn("Ingestion stopped", append(fields, zap.Error(walkErr))...)
		return report, walkErr
	}
	p.logger.Info("Ingestion finished", fields...)
	return report, nil
}

func (p *Pipeline) reset(ctx context.Context) error {
	if err := p.tracker.Reset(ctx); err != nil {
		return fmt.Errorf("full reset failed: %w", err)
	}
	if err := p.indexer.Reset(ctx); err != nil {
		return fmt.Errorf("full reset failed: %w", err)
	}
	return nil
}

func (p *Pipeline) saveVectors() error {
	if p.vectors == nil || p.vectorPath == "" {
		return nil
	}
	if err := p.vectors.Save(p.vectorPath); err != nil {
		return fmt.Errorf("%w: failed to save vector index: %w", models.ErrIndexFailure, err)
	}
	return nil
}

// run carries per-run state through crawl callbacks.
type run struct {
	*Pipeline
	ctx    context.Context
	report *Report
}

func (r *run) record(kind, url, detail string) {
	ev := &models.Event{
		RunID:     r.report.RunID,
		SourceURL: url,
		Kind:      kind,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	// A cancelled run still records what it did.
	ctx := context.WithoutCancel(r.ctx)
	if err := r.store.AppendEvent(ctx, ev); err != nil {
		r.logger.Warn("Failed to append ingest event", zap.String("event", kind), zap.String("url", url), zap.Error(err))
	}
}

func (r *run) visit(ctx context.Context, cand *models.Candidate) error {
	changed, _, err := r.tracker.ShouldProcess(ctx, cand)
	if err != nil {
		return r.fail(ctx, cand, err)
	}
	if !changed {
		r.report.Unchanged++
		r.record(models.EventUnchangedSkip, cand.URL, "")
		return nil
	}
	r.record(models.EventChangedOrNew, cand.URL, string(cand.Kind))

	if cand.ExtractErr != nil {
		r.logger.Warn("Extraction failed, indexing as empty",
			zap.String("url", cand.URL), zap.Error(cand.ExtractErr))
		r.record(models.EventExtractFailed, cand.URL, cand.ExtractErr.Error())
	}

	src := &models.Source{URL: cand.URL, Kind: cand.Kind, Title: cand.Title}
	n, err := r.indexer.Upsert(ctx, src, cand.Text)
	if err != nil {
		if markErr := r.tracker.MarkFailed(context.WithoutCancel(ctx), cand); markErr != nil {
			r.logger.Error("Failed to mark source failed", zap.String("url", cand.URL), zap.Error(markErr))
		}
		return r.fail(ctx, cand, err)
	}
	r.report.Processed++
	r.report.Chunks += n
	r.record(models.EventIngestedChunks, cand.URL, fmt.Sprintf("chunks=%d", n))
	return nil
}

// fail counts a per-source failure. Cancellation is returned to stop the crawl.
func (r *run) fail(ctx context.Context, cand *models.Candidate, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	r.report.Failed++
	r.logger.Error("Failed to index source", zap.String("url", cand.URL), zap.Error(err))
	r.record(models.EventIndexFailed, cand.URL, err.Error())
	return nil
}
