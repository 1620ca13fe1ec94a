package crawler

import (
	"context"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Page is what a PageFetcher returns for one URL.
type Page struct {
	// URL is the address the page was fetched from. It is recorded in the
	// result exactly as given to Fetch; redirects do not change it.
	URL string

	// Links contains every absolute link found on the page, on any host.
	// Each link has been normalized with NormalizeURL.
	Links model.LinkSet
}

// PageFetcher retrieves the page at a URL and extracts its links.
//
// Design decision: The crawler depends on this interface instead of an HTTP
// client because:
//  1. Tests can drive the crawl with in-memory site graphs
//  2. Transport choices (plain HTTP, colly, Tor) stay outside the engine
//  3. The engine's concurrency does not depend on how pages are retrieved
//
// Implementations must be safe for concurrent use by multiple goroutines
// and should return promptly once ctx is cancelled.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// FetcherFunc adapts an ordinary function to the PageFetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Page, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Page, error) {
	return f(ctx, url)
}
