package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/model"
)

// CrawlStep explores the seed's host with the crawl engine and stores the
// resulting page map and counters in the report.
type CrawlStep struct {
	// crawler is the configured crawl engine.
	crawler *crawler.Crawler

	// pageLimit caps the number of dispatched fetches; negative means unlimited.
	pageLimit int

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlPageLimit sets the page limit passed to the crawler.
// Zero is ignored; the crawler would reject it.
func WithCrawlPageLimit(limit int) CrawlStepOption {
	return func(s *CrawlStep) {
		if limit != 0 {
			s.pageLimit = limit
		}
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCrawlStep creates a new crawl step around a configured crawler.
func NewCrawlStep(c *crawler.Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler:   c,
		pageLimit: config.DefaultPageLimit,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
//
// Design decision: A cancelled crawl still fills the report with the pages
// fetched so far because:
// 1. The user interrupted a long crawl and wants to see what was found
// 2. The crawler guarantees the partial result is consistent
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	report.PageLimit = s.pageLimit
	report.Workers = s.crawler.Workers()

	result, err := s.crawler.Crawl(ctx, report.Seed, s.pageLimit)
	report.FinishedAt = time.Now()

	if result != nil {
		report.Seed = result.Seed
		report.Pages = result.Pages
		report.Stats = result.Stats
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.Cancelled = true
		}
		return fmt.Errorf("failed to crawl %s: %w", report.Seed, err)
	}

	s.logger.Info("crawl finished",
		"seed", report.Seed,
		"pages", report.Pages.Len(),
		"failed", report.Stats.Failed,
		"elapsed", report.Stats.Elapsed,
	)
	return nil
}

// DigestStep fingerprints the crawled link graph so that runs can be
// compared in the crawl history.
type DigestStep struct{}

// NewDigestStep creates a new digest step.
func NewDigestStep() *DigestStep {
	return &DigestStep{}
}

// Name returns the step name.
func (s *DigestStep) Name() string {
	return "digest"
}

// Final lets the digest run for partial crawls.
func (s *DigestStep) Final() {}

// Do executes the digest step.
func (s *DigestStep) Do(_ context.Context, report *model.CrawlReport) error {
	report.ComputeDigest()
	return nil
}

// ReportStore persists crawl reports. *database.CrawlDB satisfies it.
type ReportStore interface {
	SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error)
}

// PersistStep saves the report to the crawl history database.
// With a nil store the step does nothing, which is how --no-save works.
type PersistStep struct {
	store  ReportStore
	logger *slog.Logger
}

// NewPersistStep creates a new persist step.
func NewPersistStep(store ReportStore, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Final lets an interrupted or failed crawl be saved too.
func (s *PersistStep) Final() {}

// Do executes the persist step.
func (s *PersistStep) Do(ctx context.Context, report *model.CrawlReport) error {
	if s.store == nil {
		return nil
	}

	// The crawl may have been interrupted; saving still has to finish.
	id, err := s.store.SaveCrawlReport(context.WithoutCancel(ctx), report)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	s.logger.Debug("crawl report saved", "seed", report.Seed, "run_id", id)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// PageLimit is the maximum number of dispatched fetches (-1 = unlimited).
	PageLimit int

	// Workers is the size of the crawl worker pool.
	Workers int

	// DrainTimeout bounds the wait for in-flight fetches at shutdown.
	DrainTimeout time.Duration

	// IgnorePatterns are URL path patterns that are never followed.
	IgnorePatterns []string

	// FollowPatterns, if set, restrict crawling to matching paths.
	FollowPatterns []string
}

// DefaultPipelineOption configures DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelinePageLimit sets the crawl page limit.
func WithPipelinePageLimit(limit int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.PageLimit = limit
	}
}

// WithPipelineWorkers sets the crawl worker count.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Workers = n
	}
}

// WithPipelineDrainTimeout sets the shutdown grace period of the crawler.
func WithPipelineDrainTimeout(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DrainTimeout = d
	}
}

// WithPipelineIgnorePatterns sets URL path patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL path patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// DefaultPipeline creates the standard crawl pipeline: crawl, digest and
// persist, in that order.
//
// Design decision: We provide a default pipeline because:
// 1. Every crawl needs the same steps in the same order
// 2. Reduces boilerplate in CLI
//
// The fetcher carries the transport (proxy, cookies, headers). store may be
// nil to skip persistence. An invalid path pattern returns an error.
func DefaultPipeline(
	fetcher crawler.PageFetcher,
	store ReportStore,
	pipelineOpts []Option,
	configOpts ...DefaultPipelineOption,
) (*Pipeline, error) {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		PageLimit:    config.DefaultPageLimit,
		Workers:      config.DefaultWorkerCount,
		DrainTimeout: config.DefaultDrainTimeout,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	scope, err := crawler.NewPathScope(cfg.IgnorePatterns, cfg.FollowPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build path scope: %w", err)
	}

	c := crawler.New(fetcher,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithDrainTimeout(cfg.DrainTimeout),
		crawler.WithPathScope(scope),
		crawler.WithLogger(p.logger),
	)

	p.AddSteps(
		NewCrawlStep(c,
			WithCrawlPageLimit(cfg.PageLimit),
			WithCrawlLogger(p.logger),
		),
		NewDigestStep(),
		NewPersistStep(store, p.logger),
	)

	return p, nil
}
