package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// Factory creates the pipeline for one seed.
// Each seed may carry its own cookie, headers and path patterns, so the
// pipeline is built per seed rather than shared.
type Factory func(seed string) (*Pipeline, error)

// BatchProcessor handles concurrent crawling of multiple seeds.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-seed execution
// 2. Concurrency across seeds is independent of the worker pool inside a crawl
type BatchProcessor struct {
	// factory creates a new pipeline for each seed.
	factory Factory

	// concurrency is the maximum number of seeds crawled at the same time.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of seeds crawled concurrently.
// Default is config.DefaultBatchSize if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: config.DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured number of concurrent seeds.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// ProcessBatch crawls multiple seeds concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
//
// The returned slice has one entry per seed in input order, even for seeds
// that failed. Seeds that never started because ctx was cancelled are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own index, so no lock is needed.
	results := make([]*model.CrawlReport, len(seeds))

	err := bp.run(ctx, seeds, func(report *model.CrawlReport, index int) {
		results[index] = report
	})

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback crawls multiple seeds and calls a callback
// for each completed crawl. This is useful for streaming results.
//
// The callback receives the report and the index of the seed in the
// original slice. The callback is called from the goroutine that completed
// the crawl, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, seeds, callback)
}

func (bp *BatchProcessor) run(
	ctx context.Context,
	seeds []string,
	done func(report *model.CrawlReport, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			report := model.NewCrawlReport(seed)

			p, err := bp.factory(seed)
			if err != nil {
				report.SetError(err)
				report.FinishedAt = time.Now()
				bp.logger.Warn("failed to build pipeline", "seed", seed, "error", err)
				done(report, i)
				return nil
			}

			// The error is stored in the report; other seeds keep going.
			if err := p.Execute(ctx, report); err != nil {
				bp.logger.Warn("crawl failed",
					"seed", seed,
					"error", err,
				)
			} else {
				bp.logger.Info("crawl completed",
					"seed", seed,
					"pages", report.PagesCrawled(),
				)
			}

			done(report, i)
			return nil
		})
	}

	return g.Wait()
}
