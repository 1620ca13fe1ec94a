package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/sitecrawl/internal/model"
)

// errFixture is returned by siteGraph for URLs it does not know.
var errFixture = errors.New("no such page")

// siteGraph is an in-memory site used as a PageFetcher.
// It records how often each URL was fetched.
type siteGraph struct {
	pages map[string][]string

	mu    sync.Mutex
	calls map[string]int
}

func newSiteGraph(pages map[string][]string) *siteGraph {
	return &siteGraph{pages: pages, calls: make(map[string]int)}
}

func (g *siteGraph) Fetch(_ context.Context, url string) (*Page, error) {
	g.mu.Lock()
	g.calls[url]++
	g.mu.Unlock()

	links, ok := g.pages[url]
	if !ok {
		return nil, &FetchError{URL: url, Err: errFixture}
	}
	return &Page{URL: url, Links: model.NewLinkSet(links...)}, nil
}

func (g *siteGraph) fetchCount(url string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[url]
}

func (g *siteGraph) totalFetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}

// scenarioSite is the three page site used by the acceptance scenarios.
func scenarioSite() *siteGraph {
	return newSiteGraph(map[string][]string{
		"http://a.com":   {"http://a.com", "http://a.com/b", "http://a.com/c"},
		"http://a.com/b": {"http://a.com/b", "http://a.com/c", "http://b.com"},
		"http://a.com/c": {},
	})
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
