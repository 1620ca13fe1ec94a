package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultWorkerCount is the number of pages fetched concurrently per crawl.
	DefaultWorkerCount = 10

	// DefaultPageLimit of -1 crawls until the site is exhausted.
	DefaultPageLimit = -1

	// DefaultDrainTimeout is how long in-flight fetches may finish after the
	// crawl stops dispatching. After that they are abandoned.
	DefaultDrainTimeout = 5 * time.Second

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize of 1 crawls seeds one after another. Each crawl is
	// already concurrent internally.
	DefaultBatchSize = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultUserAgent identifies sitecrawl in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify crawler traffic in their logs.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// FetcherHTTP selects the net/http based page fetcher.
	FetcherHTTP = "http"

	// FetcherColly selects the colly based page fetcher.
	FetcherColly = "colly"
)

// Config holds all configuration options for sitecrawl.
// This struct is populated from CLI flags and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Seeds are the start URLs. Each seed is crawled separately and only
	// pages on the seed's own host are followed.
	Seeds []string

	// WorkerCount is the number of concurrent fetches per crawl.
	WorkerCount int

	// PageLimit caps the pages fetched per crawl. Negative means unlimited;
	// zero is invalid.
	PageLimit int

	// DrainTimeout bounds the wait for in-flight fetches when a crawl stops.
	DrainTimeout time.Duration

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .sitecrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to XDG data directory (~/.local/share/sitecrawl on Linux).
	DBDir string

	// SaveToDB indicates whether to save crawl results to the database.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Fetcher selects the page fetcher implementation ("http" or "colly").
	Fetcher string

	// InsecureSkipVerify disables TLS certificate verification, for sites
	// with self-signed certificates.
	InsecureSkipVerify bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., worker count,
// page limit). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		WorkerCount:       DefaultWorkerCount,
		PageLimit:         DefaultPageLimit,
		DrainTimeout:      DefaultDrainTimeout,
		Timeout:           DefaultTimeout,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		Fetcher:           FetcherHTTP,
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %LOCALAPPDATA%\sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for sitecrawl.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	// Zero would mean "crawl nothing", which is always a mistake
	if c.PageLimit == 0 {
		return ErrInvalidPageLimit
	}

	if c.WorkerCount <= 0 {
		return ErrInvalidWorkerCount
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.DrainTimeout <= 0 {
		return ErrInvalidDrainTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Fetcher != FetcherHTTP && c.Fetcher != FetcherColly {
		return ErrUnknownFetcher
	}

	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingProxy
	}

	return nil
}

// NormalizeSeed turns user input into a seed URL.
// A missing scheme defaults to http, matching what people type into a
// browser address bar. The result must have a host.
func NormalizeSeed(raw string) (string, error) {
	seed := strings.TrimSpace(raw)
	if seed == "" {
		return "", ErrInvalidSeed
	}
	if !strings.Contains(seed, "://") {
		seed = "http://" + seed
	}

	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidSeed, raw, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeed, raw)
	}
	return seed, nil
}
