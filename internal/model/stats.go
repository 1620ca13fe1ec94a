package model

import "time"

// CrawlStats contains counters collected while a crawl runs.
// All counters are owned by the crawl coordinator and are only read once the
// crawl has returned.
type CrawlStats struct {
	// Dispatched is the number of fetch tasks handed to the worker pool.
	Dispatched int `json:"dispatched"`

	// Succeeded is the number of tasks whose page fetch returned links.
	Succeeded int `json:"succeeded"`

	// Failed is the number of tasks whose page fetch returned an error.
	Failed int `json:"failed"`

	// Discarded is the number of in-flight tasks abandoned because the
	// worker pool did not drain within the grace period.
	Discarded int `json:"discarded"`

	// Duplicates is the number of frontier entries dropped at dispatch time
	// because the URL had already been dispatched.
	Duplicates int `json:"duplicates"`

	// LinksAccepted is the number of discovered links that passed the
	// domain filter and were offered back to the frontier.
	LinksAccepted int `json:"links_accepted"`

	// LinksRejected is the number of discovered links that pointed outside
	// the seed host.
	LinksRejected int `json:"links_rejected"`

	// LinksExcluded is the number of same-host links dropped by the
	// configured ignore and follow path patterns.
	LinksExcluded int `json:"links_excluded"`

	// Malformed is the number of discovered links that could not be parsed.
	Malformed int `json:"malformed"`

	// LimitReached is true if dispatching stopped because of the page limit.
	LimitReached bool `json:"limit_reached"`

	// DrainTimedOut is true if the worker pool was shut down forcibly.
	DrainTimedOut bool `json:"drain_timed_out"`

	// Elapsed is the wall-clock duration of the crawl.
	Elapsed time.Duration `json:"elapsed"`
}
