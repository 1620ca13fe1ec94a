package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/nao1215/sitecrawl/internal/model"
)

// CollyFetcher is a PageFetcher backed by a gocolly collector.
//
// Design decision: We use colly only as a single-page fetcher and keep
// frontier, deduplication and concurrency in the crawl engine because:
//  1. colly's own visited tracking cannot enforce the page limit exactly
//  2. The coordinator must observe every completion to detect termination
//  3. Both fetchers then produce identical results for the same site
//
// Every Fetch runs on its own collector, so callbacks of concurrent fetches
// never see each other's pages. All collectors share one HTTP client.
type CollyFetcher struct {
	client *http.Client
	opts   []colly.CollectorOption
}

// NewCollyFetcher creates a CollyFetcher. The client, if not nil, replaces
// colly's default HTTP client so that proxy and timeout settings apply.
// Additional collector options (colly.UserAgent, colly.MaxBodySize, ...) are
// applied after the defaults.
func NewCollyFetcher(client *http.Client, opts ...colly.CollectorOption) *CollyFetcher {
	// colly reports every status above 202 as an error on its own;
	// ParseHTTPErrorResponse hands all responses to OnResponse, which applies
	// the same 2xx rule as HTTPFetcher.
	defaults := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.UserAgent(DefaultUserAgent),
		colly.MaxBodySize(int(DefaultMaxBodySize)),
	}
	if client == nil {
		client = &http.Client{}
	}
	return &CollyFetcher{
		client: client,
		opts:   append(defaults, opts...),
	}
}

// Fetch implements PageFetcher.
func (f *CollyFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	opts := make([]colly.CollectorOption, 0, len(f.opts)+1)
	opts = append(opts, f.opts...)
	opts = append(opts, colly.StdlibContext(ctx))
	c := colly.NewCollector(opts...)
	c.SetClient(f.client)

	links := model.NewLinkSet()
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode > 299 {
			fetchErr = &FetchError{
				URL:        pageURL,
				StatusCode: r.StatusCode,
				Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, http.StatusText(r.StatusCode)),
			}
			return
		}
		ct := r.Headers.Get("Content-Type")
		if ct != "" && !isHTML(ct) {
			fetchErr = &FetchError{
				URL:        pageURL,
				StatusCode: r.StatusCode,
				Err:        fmt.Errorf("%w: %s", ErrUnsupportedContentType, ct),
			}
		}
	})

	// Callbacks run in registration order, so base is known before the
	// anchors are visited.
	var base *url.URL
	c.OnHTML("base[href]", func(e *colly.HTMLElement) {
		if base != nil {
			return
		}
		if u, err := e.Request.URL.Parse(strings.TrimSpace(e.Attr("href"))); err == nil {
			base = u
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		b := base
		if b == nil {
			b = e.Request.URL
		}
		if resolved := resolveLink(b, e.Attr("href")); resolved != "" {
			links.Add(NormalizeURL(resolved))
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &FetchError{URL: pageURL, StatusCode: r.StatusCode, Err: fmt.Errorf("%w: %v", ErrUnexpectedStatus, err)}
			return
		}
		fetchErr = &FetchError{URL: pageURL, Err: err}
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: pageURL, Err: err}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return &Page{URL: pageURL, Links: links}, nil
}
