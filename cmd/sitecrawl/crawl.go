package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gocolly/colly/v2"
	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/pipeline"
	"github.com/nao1215/sitecrawl/internal/report"
	"github.com/nao1215/sitecrawl/internal/transport"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]...",
		Short: "Crawl websites and list the links on every page",
		Long: `Crawl starts at each seed URL, follows every link that stays on the seed's
host, and prints the links found on each fetched page.

Links to other hosts are reported but never followed. A URL without a scheme
is crawled over http.

Examples:
  # Crawl a site with the default 10 workers and no page limit
  sitecrawl crawl https://example.com

  # Crawl at most 100 pages with 20 workers
  sitecrawl crawl -w 20 -l 100 https://example.com

  # Crawl several sites, two at a time, and write a Markdown report
  sitecrawl crawl -b 2 -m -o report.md example.com example.org

  # Route requests through a SOCKS5 proxy
  sitecrawl crawl --proxy 127.0.0.1:9050 http://example.onion

  # Start an embedded Tor daemon for the crawl
  sitecrawl crawl --tor http://example.onion

Configuration file (.sitecrawl) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      pageLimit: 50
      ignorePatterns:
        - "/logout"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkerCount,
		"Number of pages fetched concurrently")
	cmd.Flags().IntP("page-limit", "l", config.DefaultPageLimit,
		"Maximum number of pages fetched per site (-1 for no limit)")
	cmd.Flags().Duration("drain-timeout", config.DefaultDrainTimeout,
		"How long in-flight fetches may finish when a crawl stops")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")
	cmd.Flags().String("fetcher", config.FetcherHTTP,
		"Page fetcher implementation (http or colly)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification")

	// Connection flags
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Storage flags
	cmd.Flags().Bool("no-save", false,
		"Do not save crawl results to the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.WorkerCount, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.PageLimit, err = flags.GetInt("page-limit"); err != nil {
		return nil, err
	}
	if cfg.DrainTimeout, err = flags.GetDuration("drain-timeout"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Fetcher, err = flags.GetString("fetcher"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.InsecureSkipVerify, err = flags.GetBool("insecure"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	cfg.DBDir = config.XDGDataDir()
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// A file given with --config must exist; the default locations are optional.
	if err := cfg.LoadSiteConfigs(); err != nil {
		return nil, err
	}

	cfg.Seeds = make([]string, 0, len(args))
	for _, arg := range args {
		seed, err := config.NormalizeSeed(arg)
		if err != nil {
			return nil, err
		}
		cfg.Seeds = append(cfg.Seeds, seed)
	}

	return cfg, nil
}

// runCrawl crawls every seed and writes one report per seed to out (or to
// the configured report file).
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"workers", cfg.WorkerCount,
		"page_limit", cfg.PageLimit,
		"batch", cfg.BatchSize,
		"fetcher", cfg.Fetcher,
	)

	// A nil *CrawlDB must not end up inside the interface, or the persist
	// step would call it.
	var store pipeline.ReportStore
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		store = db
		logger.Debug("database opened", "path", db.Path())
	}

	client, cleanup, err := newTransport(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer cleanup()

	output, closeOutput, err := openOutput(cfg, out)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	factory := func(seed string) (*pipeline.Pipeline, error) {
		site := cfg.SiteFor(seed)
		fetcher := newFetcher(cfg, client.HTTPClient(site.Cookie, site.Headers))
		return pipeline.DefaultPipeline(fetcher, store,
			[]pipeline.Option{pipeline.WithLogger(logger)},
			pipeline.WithPipelinePageLimit(site.PageLimit),
			pipeline.WithPipelineWorkers(site.Workers),
			pipeline.WithPipelineDrainTimeout(cfg.DrainTimeout),
			pipeline.WithPipelineIgnorePatterns(site.IgnorePatterns),
			pipeline.WithPipelineFollowPatterns(site.FollowPatterns),
		)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(r *model.CrawlReport, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if r.ErrorMessage != "" && !r.Cancelled {
			failed++
			logger.Warn("crawl failed", "seed", r.Seed, "error", r.ErrorMessage)
		}
		if _, err := writer.Write(r); err != nil {
			logger.Error("report failed", "seed", r.Seed, "error", err)
		}
	})

	if ctx.Err() != nil {
		return fmt.Errorf("crawl interrupted: %w", ctx.Err())
	}
	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(cfg.Seeds))
	}
	return nil
}

// newTransport builds the connection layer: direct, through a SOCKS5 proxy,
// or through an embedded Tor daemon. The returned cleanup stops Tor.
func newTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*transport.Client, func(), error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithMaxConnsPerHost(maxSiteWorkers(cfg)),
		transport.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
	}
	noop := func() {}

	if cfg.UseTor {
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		embedded := transport.NewEmbeddedTor(
			transport.WithStartupTimeout(cfg.TorStartupTimeout),
			transport.WithTorLogger(logger),
		)
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stopTor := func() {
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		client, err := embedded.Client(opts...)
		if err != nil {
			stopTor()
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if err := client.CheckProxy(ctx).Error(); err != nil {
			stopTor()
			return nil, noop, fmt.Errorf("embedded Tor proxy check failed: %w", err)
		}
		fmt.Fprintf(out, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", embedded.SocksAddr())
		return client, stopTor, nil
	}

	if cfg.ProxyAddress != "" {
		opts = append(opts, transport.WithProxy(cfg.ProxyAddress))
	}
	client, err := transport.NewClient(opts...)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if err := client.CheckProxy(ctx).Error(); err != nil {
		return nil, noop, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, err)
	}
	return client, noop, nil
}

// maxSiteWorkers returns the largest worker count any seed will crawl with.
// Every site gets its own host, so this bounds connections per host without
// throttling a site whose config file entry raises its worker count.
func maxSiteWorkers(cfg *config.Config) int {
	n := cfg.WorkerCount
	for _, seed := range cfg.Seeds {
		n = max(n, cfg.SiteFor(seed).Workers)
	}
	return n
}

// newFetcher returns the configured PageFetcher around an HTTP client.
func newFetcher(cfg *config.Config, client *http.Client) crawler.PageFetcher {
	maxBodySize := cfg.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = config.DefaultMaxBodySize
	}

	if cfg.Fetcher == config.FetcherColly {
		return crawler.NewCollyFetcher(client,
			colly.UserAgent(cfg.UserAgent),
			colly.MaxBodySize(int(maxBodySize)),
		)
	}
	return crawler.NewHTTPFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(maxBodySize),
	)
}

// openOutput returns the report destination. With a report file, parent
// directories are created and the file is truncated once for the whole run.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can contain URLs of private pages, so only the owner may read them.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
