package crawler

import (
	"log/slog"
	"net/url"

	"golang.org/x/text/cases"

	"github.com/nao1215/sitecrawl/internal/model"
)

// DomainFilter keeps the links that belong to the same host as a reference URL.
//
// Design decision: Host membership is a literal, case-insensitive equality of
// host names. "blog.example.com" is not "example.com", and the port and scheme
// are ignored. We keep this literal rule rather than matching registrable
// domains because it is what decides which pages a crawl may visit, and
// widening it silently would let a crawl wander into sibling sites.
type DomainFilter struct {
	// logger receives a warning for every malformed link.
	logger *slog.Logger
}

// FilterOutcome is the detailed result of filtering one set of links.
type FilterOutcome struct {
	// Accepted holds the normalized links on the reference host.
	Accepted model.LinkSet

	// Rejected counts links on other hosts.
	Rejected int

	// Malformed holds one error per link that could not be parsed.
	Malformed []*MalformedURLError
}

// NewDomainFilter creates a DomainFilter that logs to the given logger.
// A nil logger falls back to slog.Default().
func NewDomainFilter(logger *slog.Logger) *DomainFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DomainFilter{logger: logger}
}

// Filter returns the subset of candidates whose host equals the host of
// reference. Each kept link is normalized with NormalizeURL.
// If the reference itself cannot be parsed, nothing is kept.
func (f *DomainFilter) Filter(reference string, candidates model.LinkSet) model.LinkSet {
	ref, err := url.Parse(reference)
	if err != nil {
		f.logger.Warn("malformed reference url", "url", reference, "error", err)
		return model.NewLinkSet()
	}
	return f.Apply(ref, candidates).Accepted
}

// Apply filters candidates against an already parsed reference URL and
// reports what was rejected.
func (f *DomainFilter) Apply(reference *url.URL, candidates model.LinkSet) FilterOutcome {
	out := FilterOutcome{Accepted: model.NewLinkSet()}

	// A Caser keeps internal state and must not be shared between goroutines,
	// so each call folds with its own.
	fold := cases.Fold()
	refHost := fold.String(reference.Hostname())
	if refHost == "" {
		out.Rejected = candidates.Len()
		return out
	}

	for _, candidate := range candidates.Sorted() {
		normalized := NormalizeURL(candidate)
		u, err := url.Parse(normalized)
		if err != nil {
			malformed := &MalformedURLError{URL: candidate, Err: err}
			f.logger.Warn("malformed url", "url", candidate, "error", err)
			out.Malformed = append(out.Malformed, malformed)
			continue
		}
		if fold.String(u.Hostname()) != refHost {
			out.Rejected++
			continue
		}
		out.Accepted.Add(normalized)
	}

	return out
}
