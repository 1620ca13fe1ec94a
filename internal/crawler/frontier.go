package crawler

import "github.com/nao1215/sitecrawl/internal/model"

// Frontier holds the URLs waiting to be dispatched and the set of URLs that
// have already been dispatched.
//
// Offer never checks the visited set; deduplication happens in TryDispatch.
// This tolerates the same link being discovered on many pages at once while
// still guaranteeing that no URL is dispatched twice.
//
// A Frontier is not safe for concurrent use. During a crawl it is owned by
// the coordinator goroutine, which makes TryDispatch indivisible with respect
// to every other frontier operation.
type Frontier struct {
	// queue holds pending URLs in discovery order. It may contain duplicates.
	queue []string

	// visited holds every URL that has been dispatched.
	visited map[string]struct{}

	// duplicates counts entries dropped by TryDispatch.
	duplicates int
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queue:   make([]string, 0),
		visited: make(map[string]struct{}),
	}
}

// Offer appends a URL to the queue unconditionally.
func (f *Frontier) Offer(u string) {
	f.queue = append(f.queue, u)
}

// OfferAll appends every link in the set, in sorted order.
func (f *Frontier) OfferAll(links model.LinkSet) {
	f.queue = append(f.queue, links.Sorted()...)
}

// TryDispatch pops the head of the queue. If the URL has not been dispatched
// before it is marked visited and returned with ok set to true. If it was
// already visited it is discarded and ok is false; the caller should retry
// while the queue is not empty. An empty queue also returns ok false.
func (f *Frontier) TryDispatch() (u string, ok bool) {
	if len(f.queue) == 0 {
		return "", false
	}

	u = f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]

	if _, seen := f.visited[u]; seen {
		f.duplicates++
		return "", false
	}
	f.visited[u] = struct{}{}
	return u, true
}

// Next returns the next URL that has not been dispatched yet, discarding
// already visited entries on the way. It returns false when the queue runs
// out.
func (f *Frontier) Next() (string, bool) {
	for !f.IsEmpty() {
		if u, ok := f.TryDispatch(); ok {
			return u, true
		}
	}
	return "", false
}

// HasFresh discards already dispatched entries at the head of the queue and
// reports whether a URL that was never dispatched is waiting.
func (f *Frontier) HasFresh() bool {
	for len(f.queue) > 0 {
		if _, seen := f.visited[f.queue[0]]; !seen {
			return true
		}
		f.queue[0] = ""
		f.queue = f.queue[1:]
		f.duplicates++
	}
	return false
}

// IsEmpty reports whether no entries are pending.
func (f *Frontier) IsEmpty() bool {
	return len(f.queue) == 0
}

// Len returns the number of pending entries, duplicates included.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// Visited reports whether the URL has been dispatched.
func (f *Frontier) Visited(u string) bool {
	_, ok := f.visited[u]
	return ok
}

// VisitedCount returns the number of dispatched URLs.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// Duplicates returns how many queue entries were dropped at dispatch time
// because their URL had already been dispatched.
func (f *Frontier) Duplicates() int {
	return f.duplicates
}

// Reset clears the queue and the visited set.
func (f *Frontier) Reset() {
	f.queue = make([]string, 0)
	f.visited = make(map[string]struct{})
	f.duplicates = 0
}
