// Package crawler provides the concurrent crawl engine of sitecrawl.
//
// # Architecture
//
// The package is designed around the Crawler type, which explores a single
// host starting from a seed URL and returns, for every page it fetched, the
// set of links found on that page.
//
// A crawl is run by one coordinator goroutine (the goroutine that called
// Crawl) and a bounded pool of fetch goroutines. The coordinator is the only
// owner of the mutable crawl state:
//   - Frontier: the queue of URLs waiting for dispatch plus the visited set
//   - in-flight and pages-crawled counters
//   - the ResultMap being built
//
// Fetch goroutines never touch that state. They call the PageFetcher and
// report back over a channel. Every completion wakes the coordinator, which
// records the result, feeds internal links back into the Frontier, and
// dispatches more work. The crawl is complete when the Frontier is empty and
// nothing is in flight, or when the page limit stops further dispatching.
//
// Design decision: We use message passing to a single owner rather than
// locks around shared collections because:
//  1. Dispatch (pop, visited check, mark visited) is indivisible by construction
//  2. The termination condition is evaluated on a consistent snapshot
//  3. The coordinator blocks on a channel instead of polling
//
// # Components
//
//   - Crawler: The controller that composes the components below
//   - Frontier: Work queue with dispatch-time deduplication
//   - DomainFilter: Keeps links whose host equals the seed host
//   - PageFetcher: The capability that fetches a page and extracts its links
//   - HTTPFetcher, CollyFetcher: PageFetcher implementations
//   - Parser: HTML link extraction
//
// # Usage
//
//	c := crawler.New(crawler.NewHTTPFetcher(http.DefaultClient), crawler.WithWorkers(20))
//	result, err := c.Crawl(ctx, "https://example.com", crawler.Unlimited)
//
// # Scope
//
// Only links whose host exactly equals the seed host are followed. Other
// subdomains of the seed are different hosts and are not crawled.
package crawler
