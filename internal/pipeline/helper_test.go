package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// siteFetcher serves a fixed link graph. Unknown URLs fail.
func siteFetcher(site map[string][]string) crawler.PageFetcher {
	return crawler.FetcherFunc(func(_ context.Context, u string) (*crawler.Page, error) {
		links, ok := site[u]
		if !ok {
			return nil, &crawler.FetchError{URL: u, StatusCode: 404, Err: crawler.ErrUnexpectedStatus}
		}
		return &crawler.Page{URL: u, Links: model.NewLinkSet(links...)}, nil
	})
}

// scenarioSite is the a.com graph: the seed links to itself, /b and /c;
// /b links to /c and an external host; /c is a dead end.
func scenarioSite() map[string][]string {
	return map[string][]string{
		"http://a.com":   {"http://a.com", "http://a.com/b", "http://a.com/c"},
		"http://a.com/b": {"http://a.com/c", "http://b.com"},
		"http://a.com/c": {},
	}
}

// memoryStore records saved reports.
type memoryStore struct {
	mu      sync.Mutex
	reports []*model.CrawlReport
	err     error
}

func (s *memoryStore) SaveCrawlReport(_ context.Context, report *model.CrawlReport) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.reports = append(s.reports, report)
	return int64(len(s.reports)), nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// factoryFor builds a batch Factory over a set of sites keyed by seed.
func factoryFor(sites map[string]map[string][]string, store ReportStore) Factory {
	return func(seed string) (*Pipeline, error) {
		site, ok := sites[seed]
		if !ok {
			return nil, fmt.Errorf("no site for %s", seed)
		}
		return DefaultPipeline(siteFetcher(site), store, []Option{WithLogger(discardLogger())},
			WithPipelineWorkers(2))
	}
}
