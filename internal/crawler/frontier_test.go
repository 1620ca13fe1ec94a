package crawler

import (
	"testing"

	"github.com/nao1215/sitecrawl/internal/model"
)

func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("new frontier is empty", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		if !f.IsEmpty() {
			t.Error("expected empty frontier")
		}
		if _, ok := f.TryDispatch(); ok {
			t.Error("expected TryDispatch on empty frontier to fail")
		}
		if _, ok := f.Next(); ok {
			t.Error("expected Next on empty frontier to fail")
		}
	})

	t.Run("offer admits duplicates and dispatch removes them", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("http://a.com")
		f.Offer("http://a.com")
		if f.Len() != 2 {
			t.Fatalf("expected 2 pending entries, got %d", f.Len())
		}

		u, ok := f.TryDispatch()
		if !ok || u != "http://a.com" {
			t.Fatalf("expected first dispatch to win, got %q %v", u, ok)
		}
		if !f.Visited("http://a.com") {
			t.Error("dispatched URL must be marked visited")
		}

		if _, ok := f.TryDispatch(); ok {
			t.Error("second dispatch of the same URL must fail")
		}
		if !f.IsEmpty() {
			t.Error("duplicate should have been discarded")
		}
		if f.Duplicates() != 1 {
			t.Errorf("expected 1 duplicate, got %d", f.Duplicates())
		}
	})

	t.Run("next skips visited entries in order", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.OfferAll(model.NewLinkSet("http://a.com/b", "http://a.com/a"))
		f.Offer("http://a.com/a")
		f.Offer("http://a.com/c")

		var got []string
		for {
			u, ok := f.Next()
			if !ok {
				break
			}
			got = append(got, u)
		}

		want := []string{"http://a.com/a", "http://a.com/b", "http://a.com/c"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
			}
		}
		if f.VisitedCount() != 3 {
			t.Errorf("expected 3 visited, got %d", f.VisitedCount())
		}
	})

	t.Run("reset clears queue and visited set", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("http://a.com")
		f.Offer("http://a.com/b")
		f.Next()
		f.Reset()

		if !f.IsEmpty() || f.VisitedCount() != 0 || f.Duplicates() != 0 {
			t.Error("expected reset frontier to be empty")
		}
		f.Offer("http://a.com")
		if _, ok := f.TryDispatch(); !ok {
			t.Error("URL must be dispatchable again after reset")
		}
	})
	t.Run("has fresh skips dispatched entries", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("http://a.com")
		f.Next()
		f.Offer("http://a.com")
		f.Offer("http://a.com")
		if f.HasFresh() {
			t.Error("only dispatched URLs are queued")
		}
		if !f.IsEmpty() || f.Duplicates() != 2 {
			t.Errorf("expected duplicates dropped, len=%d duplicates=%d", f.Len(), f.Duplicates())
		}

		f.Offer("http://a.com")
		f.Offer("http://a.com/b")
		if !f.HasFresh() {
			t.Error("expected a fresh URL behind the duplicate")
		}
		if f.Len() != 1 {
			t.Errorf("expected the fresh URL to stay queued, got %d entries", f.Len())
		}
		if u, ok := f.TryDispatch(); !ok || u != "http://a.com/b" {
			t.Errorf("expected http://a.com/b, got %q %v", u, ok)
		}
	})
}
