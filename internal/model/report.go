package model

import (
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// CrawlReport is the complete result of crawling one seed URL.
// It is what the pipeline fills in, the database stores, and the report
// writers render.
//
// Design decision: We keep the raw ResultMap alongside derived data rather
// than flattening pages into rows because:
//  1. The map is the natural output of the crawl engine
//  2. JSON output stays close to what callers of the engine receive
//  3. Derived values (digest, counts) can always be recomputed
type CrawlReport struct {
	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// Host is the host component of the seed. Only links on this host
	// are followed.
	Host string `json:"host"`

	// PageLimit is the maximum number of dispatched fetches, -1 for unlimited.
	PageLimit int `json:"page_limit"`

	// Workers is the size of the worker pool used for the crawl.
	Workers int `json:"workers"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl returned.
	FinishedAt time.Time `json:"finished_at"`

	// Pages maps every successfully fetched page to its links.
	Pages ResultMap `json:"pages"`

	// Stats contains the crawl engine counters.
	Stats CrawlStats `json:"stats"`

	// Digest is the SHA3-256 fingerprint of Pages.
	// Two crawls with the same digest discovered exactly the same link graph.
	Digest string `json:"digest,omitempty"`

	// PerformedSteps lists the pipeline steps that ran for this report.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error holds the error that stopped the pipeline, if any.
	// It is not serialized; ErrorMessage carries the text instead.
	Error error `json:"-"`

	// ErrorMessage is the text of Error.
	ErrorMessage string `json:"error,omitempty"`

	// Cancelled is true if the crawl was interrupted before it finished.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewCrawlReport creates an empty report for the given seed.
// The host is derived from the seed; an unparseable seed leaves it empty.
func NewCrawlReport(seed string) *CrawlReport {
	r := &CrawlReport{
		Seed:      seed,
		PageLimit: -1,
		StartedAt: time.Now(),
		Pages:     make(ResultMap),
	}
	if u, err := url.Parse(seed); err == nil {
		r.Host = u.Hostname()
	}
	return r
}

// ComputeDigest fingerprints the link graph and stores it in Digest.
// Pages and links are visited in sorted order so the digest does not depend
// on completion order.
func (r *CrawlReport) ComputeDigest() string {
	h := sha3.New256()
	for _, page := range r.Pages.URLs() {
		h.Write([]byte(page))
		h.Write([]byte{0})
		for _, link := range r.Pages[page].Sorted() {
			h.Write([]byte(link))
			h.Write([]byte{'\n'})
		}
		h.Write([]byte{0})
	}
	r.Digest = hex.EncodeToString(h.Sum(nil))
	return r.Digest
}

// PagesCrawled returns the number of pages with results.
func (r *CrawlReport) PagesCrawled() int {
	return r.Pages.Len()
}

// InternalLinkCount returns how many discovered links point at the seed host.
// Links are counted once per page they appear on.
func (r *CrawlReport) InternalLinkCount() int {
	count := 0
	for _, links := range r.Pages {
		for link := range links {
			if r.IsInternal(link) {
				count++
			}
		}
	}
	return count
}

// ExternalLinkCount returns how many discovered links point elsewhere.
func (r *CrawlReport) ExternalLinkCount() int {
	return r.Pages.LinkCount() - r.InternalLinkCount()
}

// DeadEnds returns the pages that have no links at all, in sorted order.
func (r *CrawlReport) DeadEnds() []string {
	out := make([]string, 0)
	for _, page := range r.Pages.URLs() {
		if r.Pages[page].Len() == 0 {
			out = append(out, page)
		}
	}
	return out
}

// IsInternal reports whether a link shares the seed host.
func (r *CrawlReport) IsInternal(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return r.Host != "" && strings.EqualFold(u.Hostname(), r.Host)
}

// Duration returns how long the crawl took.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return r.Stats.Elapsed
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SetError records a pipeline error on the report.
func (r *CrawlReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
