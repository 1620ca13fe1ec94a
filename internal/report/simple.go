package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/sitecrawl/internal/model"
)

// SimpleWriter outputs the crawl as a plain text listing: every fetched
// page followed by the links found on it, then the totals.
//
//	URL : http://a.com
//	LINKS : http://a.com,http://a.com/b
//	Total pages successfully crawled : 1
//	Total time taken : 1.2s (1 second)
//
// Design decision: We keep this format line oriented because:
// 1. It works in all terminals without compatibility issues
// 2. It's easy to grep or pipe to other tools
type SimpleWriter struct {
	baseWriter

	// verbose adds the crawl counters after the totals.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with the crawl counters.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in plain text.
// Pages and links are listed in lexical order.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	for _, page := range report.Pages.URLs() {
		fmt.Fprintf(&sb, "URL : %s\n", page)
		fmt.Fprintf(&sb, "LINKS : %s\n", strings.Join(report.Pages[page].Sorted(), ","))
	}

	fmt.Fprintf(&sb, "Total pages successfully crawled : %s\n", humanize.Comma(int64(report.PagesCrawled())))
	fmt.Fprintf(&sb, "Total time taken : %s\n", formatElapsed(report.Duration()))

	if report.Cancelled || report.ErrorMessage != "" {
		fmt.Fprintf(&sb, "Status : %s\n", statusText(report))
	}

	if w.verbose {
		w.writeStats(&sb, report)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeStats writes the crawl engine counters.
func (w *SimpleWriter) writeStats(sb *strings.Builder, report *model.CrawlReport) {
	s := report.Stats
	sb.WriteString(strings.Repeat("-", 50))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Seed           : %s\n", report.Seed)
	fmt.Fprintf(sb, "Workers        : %d\n", report.Workers)
	fmt.Fprintf(sb, "Page limit     : %s\n", formatLimit(report.PageLimit))
	fmt.Fprintf(sb, "Dispatched     : %d\n", s.Dispatched)
	fmt.Fprintf(sb, "Succeeded      : %d\n", s.Succeeded)
	fmt.Fprintf(sb, "Failed         : %d\n", s.Failed)
	fmt.Fprintf(sb, "Discarded      : %d\n", s.Discarded)
	fmt.Fprintf(sb, "Duplicates     : %d\n", s.Duplicates)
	fmt.Fprintf(sb, "Links accepted : %d\n", s.LinksAccepted)
	fmt.Fprintf(sb, "Links rejected : %d\n", s.LinksRejected)
	fmt.Fprintf(sb, "Links excluded : %d\n", s.LinksExcluded)
	fmt.Fprintf(sb, "Malformed      : %d\n", s.Malformed)
	if report.Digest != "" {
		fmt.Fprintf(sb, "Digest         : %s\n", report.Digest)
	}
}
