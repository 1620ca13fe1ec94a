package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and NormalizeSeed() and
// provide specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeed is returned when no seed URL is specified.
	ErrNoSeed = errors.New("no seed specified: provide at least one URL to crawl")

	// ErrInvalidSeed is returned when a seed cannot be turned into an
	// absolute URL with a host.
	ErrInvalidSeed = errors.New("invalid seed: must be a URL with a host")

	// ErrInvalidPageLimit is returned when the page limit is zero.
	// Use a negative value for an unlimited crawl.
	ErrInvalidPageLimit = errors.New("invalid page limit: must not be zero (use -1 for unlimited)")

	// ErrInvalidWorkerCount is returned when the worker count is not positive.
	ErrInvalidWorkerCount = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate connection failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDrainTimeout is returned when the drain timeout is not positive.
	ErrInvalidDrainTimeout = errors.New("invalid drain timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownFetcher is returned when the fetcher name is not supported.
	ErrUnknownFetcher = errors.New("unknown fetcher: must be \"http\" or \"colly\"")

	// ErrConflictingProxy is returned when both --proxy and --tor are given.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")
)
