package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/sitecrawl/internal/model"
)

// TestNewBatchProcessor tests construction defaults.
func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("defaults to one seed at a time", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(nil)
		if bp.Concurrency() != 1 {
			t.Errorf("expected concurrency 1, got %d", bp.Concurrency())
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(nil, WithConcurrency(4), WithConcurrency(0))
		if bp.Concurrency() != 4 {
			t.Errorf("expected concurrency 4, got %d", bp.Concurrency())
		}
	})
}

// TestProcessBatch tests crawling several seeds.
func TestProcessBatch(t *testing.T) {
	t.Parallel()

	sites := map[string]map[string][]string{
		"http://a.com": scenarioSite(),
		"http://x.com": {"http://x.com": {"http://x.com/1"}, "http://x.com/1": {}},
	}

	t.Run("returns reports in seed order", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		bp := NewBatchProcessor(factoryFor(sites, store), WithConcurrency(2), WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"http://x.com", "http://a.com"})
		if err != nil {
			t.Fatal(err)
		}
		if len(reports) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(reports))
		}
		if reports[0].Seed != "http://x.com" || reports[0].Pages.Len() != 2 {
			t.Errorf("unexpected first report %s with %d pages", reports[0].Seed, reports[0].Pages.Len())
		}
		if reports[1].Seed != "http://a.com" || reports[1].Pages.Len() != 3 {
			t.Errorf("unexpected second report %s with %d pages", reports[1].Seed, reports[1].Pages.Len())
		}
		if store.count() != 2 {
			t.Errorf("expected 2 saved reports, got %d", store.count())
		}
	})

	t.Run("factory failure is recorded and others continue", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factoryFor(sites, nil), WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"http://missing.com", "http://a.com"})
		if err != nil {
			t.Fatal(err)
		}
		if reports[0].ErrorMessage == "" {
			t.Error("expected factory error in first report")
		}
		if reports[1].Pages.Len() != 3 {
			t.Errorf("expected second seed to be crawled, got %d pages", reports[1].Pages.Len())
		}
	})

	t.Run("crawl failure is recorded", func(t *testing.T) {
		t.Parallel()

		factory := func(string) (*Pipeline, error) {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "fail", doFunc: func(context.Context, *model.CrawlReport) error {
				return errors.New("unreachable")
			}})
			return p, nil
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"http://a.com"})
		if err != nil {
			t.Fatal(err)
		}
		if reports[0].ErrorMessage != "unreachable" {
			t.Errorf("expected recorded error, got %q", reports[0].ErrorMessage)
		}
	})

	t.Run("cancelled context skips seeds", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(factoryFor(sites, nil), WithBatchLogger(discardLogger()))
		reports, err := bp.ProcessBatch(ctx, []string{"http://a.com"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if reports[0] != nil {
			t.Error("expected no report for a skipped seed")
		}
	})
}

// TestProcessBatchWithCallback tests streaming results.
func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	sites := map[string]map[string][]string{"http://a.com": scenarioSite()}
	bp := NewBatchProcessor(factoryFor(sites, nil), WithConcurrency(3), WithBatchLogger(discardLogger()))

	var (
		mu    sync.Mutex
		seen  = make(map[int]string)
		seeds = []string{"http://a.com", "http://a.com", "http://a.com"}
	)
	err := bp.ProcessBatchWithCallback(context.Background(), seeds, func(report *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = report.Seed
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(seen))
	}
}
