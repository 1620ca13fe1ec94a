package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

const (
	// DefaultWorkers is the number of concurrent fetches when none is configured.
	DefaultWorkers = 10

	// DefaultDrainTimeout is how long in-flight fetches may run after the
	// crawl has decided to stop.
	DefaultDrainTimeout = 5 * time.Second

	// Unlimited disables the page limit. Any negative value does the same.
	Unlimited = -1
)

// errNoPage is reported when a fetcher returns neither a page nor an error.
var errNoPage = errors.New("fetcher returned no page")

// Crawler explores a single host, starting from a seed URL, with a bounded
// pool of concurrent fetches.
//
// A Crawler holds configuration only. Every call to Crawl builds its own
// frontier and result map, so one Crawler may run several crawls, even
// concurrently.
type Crawler struct {
	// fetcher retrieves pages. It is shared by all workers.
	fetcher PageFetcher

	// workers is the maximum number of concurrent fetches.
	workers int

	// drainTimeout bounds the wait for in-flight fetches at shutdown.
	drainTimeout time.Duration

	// scope optionally narrows which same-host paths are followed.
	scope *PathScope

	// logger is used for crawl-level logging.
	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of concurrent fetches.
// Values below one are ignored.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithDrainTimeout sets the grace period for in-flight fetches at shutdown.
// Non-positive values are ignored.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.drainTimeout = d
		}
	}
}

// WithPathScope restricts the crawl to the paths allowed by scope.
func WithPathScope(scope *PathScope) Option {
	return func(c *Crawler) {
		c.scope = scope
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler that fetches pages with fetcher.
func New(fetcher PageFetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:      fetcher,
		workers:      DefaultWorkers,
		drainTimeout: DefaultDrainTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Workers returns the configured number of concurrent fetches.
func (c *Crawler) Workers() int {
	return c.workers
}

// Result is the outcome of one crawl.
type Result struct {
	// Seed is the normalized seed URL.
	Seed string

	// Pages maps every successfully fetched URL to the links found on it.
	// The links are not filtered; they may point to any host.
	Pages model.ResultMap

	// Stats contains the counters collected during the crawl.
	Stats model.CrawlStats
}

// Crawl explores the host of seed and returns the links found on every page
// it fetched.
//
// pageLimit caps the number of pages dispatched for fetching. A negative
// value (see Unlimited) means no cap; zero is rejected with
// ErrInvalidArgument. The seed must be an absolute URL with a host.
//
// Page-level failures never abort the crawl; the failed page is simply
// missing from the result. If ctx is cancelled the crawl stops dispatching,
// drains what is in flight, and returns the partial result together with
// ctx.Err().
//
// Design decision: We return one ResultMap rather than streaming pages
// because:
//  1. Each URL appears at most once, so the map is the natural result
//  2. The coordinator already owns the map and needs no extra locking
//  3. Reports and persistence both work on the complete crawl
func (c *Crawler) Crawl(ctx context.Context, seed string, pageLimit int) (*Result, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("%w: no page fetcher configured", ErrInvalidArgument)
	}
	if pageLimit == 0 {
		return nil, fmt.Errorf("%w: page limit must not be zero (use a negative value for no limit)", ErrInvalidArgument)
	}

	normalized := NormalizeURL(strings.TrimSpace(seed))
	seedURL, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid seed URL %q: %v", ErrInvalidArgument, seed, err)
	}
	if seedURL.Hostname() == "" {
		return nil, fmt.Errorf("%w: seed URL %q has no host", ErrInvalidArgument, seed)
	}

	r := c.newRun(seedURL, normalized, pageLimit)
	return r.execute(ctx)
}

// completion is sent by a worker when its fetch has finished.
type completion struct {
	url  string
	page *Page
	err  error
}

// run is the state of one crawl. Every field is owned by the coordinator
// goroutine; workers only read the immutable configuration and send on
// events.
type run struct {
	c         *Crawler
	filter    *DomainFilter
	seedURL   *url.URL
	seed      string
	pageLimit int

	frontier *Frontier
	results  model.ResultMap
	stats    model.CrawlStats

	inFlight     int
	pagesCrawled int

	pool   *errgroup.Group
	events chan completion
}

func (c *Crawler) newRun(seedURL *url.URL, seed string, pageLimit int) *run {
	pool := new(errgroup.Group)
	pool.SetLimit(c.workers)
	return &run{
		c:         c,
		filter:    NewDomainFilter(c.logger),
		seedURL:   seedURL,
		seed:      seed,
		pageLimit: pageLimit,
		frontier:  NewFrontier(),
		results:   model.NewResultMap(),
		pool:      pool,
		// Buffered to the worker count: at most that many tasks are in
		// flight, so a worker's send never blocks.
		events: make(chan completion, c.workers),
	}
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	logger := r.c.logger
	start := time.Now()

	logger.Info("crawl started",
		"seed", r.seed,
		"page_limit", r.pageLimit,
		"workers", r.c.workers,
	)

	poolCtx, cancelPool := context.WithCancel(ctx)
	defer cancelPool()

	r.frontier.Offer(r.seed)

loop:
	for {
		r.dispatch(poolCtx)

		if r.inFlight == 0 {
			// Frontier exhausted (or nothing more may be dispatched) and no
			// task can add new work.
			break
		}
		if r.stats.LimitReached {
			break
		}

		select {
		case ev := <-r.events:
			r.complete(ev)
		case <-ctx.Done():
			logger.Info("crawl cancelled", "seed", r.seed, "error", ctx.Err())
			break loop
		}
	}

	r.shutdown(cancelPool)

	r.stats.Duplicates = r.frontier.Duplicates()
	r.stats.Elapsed = time.Since(start)
	r.frontier.Reset()

	logger.Info("crawl finished",
		"seed", r.seed,
		"pages", r.results.Len(),
		"succeeded", r.stats.Succeeded,
		"failed", r.stats.Failed,
		"limit_reached", r.stats.LimitReached,
		"elapsed", r.stats.Elapsed,
	)

	result := &Result{
		Seed:  r.seed,
		Pages: r.results,
		Stats: r.stats,
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// dispatch hands frontier URLs to the pool until the pool is full, the
// frontier runs dry, the page limit is hit, or ctx is done.
func (r *run) dispatch(ctx context.Context) {
	for r.inFlight < r.c.workers && ctx.Err() == nil {
		if r.frontier.IsEmpty() {
			return
		}
		if r.pageLimit > 0 && r.pagesCrawled >= r.pageLimit {
			// Only a page that would really have been fetched counts as
			// being cut off by the limit.
			if r.frontier.HasFresh() {
				r.stats.LimitReached = true
			}
			return
		}

		u, ok := r.frontier.Next()
		if !ok {
			return
		}

		if r.pageLimit > 0 {
			r.pagesCrawled++
		}
		r.inFlight++
		r.stats.Dispatched++
		r.c.logger.Debug("dispatching page", "url", u, "in_flight", r.inFlight)

		r.pool.Go(func() error {
			page, err := r.fetch(ctx, u)
			r.events <- completion{url: u, page: page, err: err}
			return nil
		})
	}
}

// fetch calls the fetcher and turns a panic into an error so that a
// misbehaving fetcher cannot take the coordinator down with it.
func (r *run) fetch(ctx context.Context, u string) (page *Page, err error) {
	defer func() {
		if p := recover(); p != nil {
			page = nil
			err = &FetchError{URL: u, Err: fmt.Errorf("fetcher panic: %v", p)}
		}
	}()
	return r.c.fetcher.Fetch(ctx, u)
}

// complete records one finished task and feeds same-host links back into
// the frontier.
func (r *run) complete(ev completion) {
	r.inFlight--

	if ev.err == nil && ev.page == nil {
		ev.err = &FetchError{URL: ev.url, Err: errNoPage}
	}
	if ev.err != nil {
		r.stats.Failed++
		r.c.logger.Warn("fetch failed", "url", ev.url, "error", ev.err)
		return
	}

	r.stats.Succeeded++
	links := ev.page.Links
	if links == nil {
		links = model.NewLinkSet()
	}
	r.results.Put(ev.url, links)

	if links.Len() == 0 {
		return
	}

	outcome := r.filter.Apply(r.seedURL, links)
	r.stats.LinksRejected += outcome.Rejected
	r.stats.Malformed += len(outcome.Malformed)

	accepted := outcome.Accepted
	if !r.c.scope.IsZero() {
		scoped := model.NewLinkSet()
		for _, link := range accepted.Sorted() {
			if r.c.scope.Allows(link) {
				scoped.Add(link)
			} else {
				r.stats.LinksExcluded++
			}
		}
		accepted = scoped
	}

	r.stats.LinksAccepted += accepted.Len()
	r.frontier.OfferAll(accepted)
}

// shutdown waits for in-flight tasks, at most for the drain timeout.
// Tasks still running after that are abandoned: their context is cancelled
// and their results are discarded.
func (r *run) shutdown(cancelPool context.CancelFunc) {
	logger := r.c.logger

	if r.inFlight > 0 {
		timer := time.NewTimer(r.c.drainTimeout)
		defer timer.Stop()

		for r.inFlight > 0 {
			select {
			case ev := <-r.events:
				r.complete(ev)
			case <-timer.C:
				r.stats.Discarded = r.inFlight
				r.stats.DrainTimedOut = true
				logger.Warn("forcing crawler shutdown",
					"error", ErrShutdownTimeout,
					"discarded", r.inFlight,
					"drain_timeout", r.c.drainTimeout,
				)
				cancelPool()
				// Abandoned workers still hold a buffered slot in events,
				// so they finish without anyone waiting for them.
				return
			}
		}
	}

	// Every task has reported; the goroutines are returning.
	_ = r.pool.Wait() //nolint:errcheck // workers always return nil
	logger.Info("crawler shutdown successful", "seed", r.seed)
}
