package report

import (
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/sitecrawl/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText summarizes how a crawl ended.
func statusText(report *model.CrawlReport) string {
	switch {
	case report.Cancelled:
		return "Interrupted (partial results)"
	case report.ErrorMessage != "":
		return "Error - " + report.ErrorMessage
	case report.Stats.LimitReached:
		return "Complete (page limit reached)"
	default:
		return "Complete"
	}
}

// formatElapsed renders a duration both exactly and in words, for example
// "1m30s (1 minute)".
func formatElapsed(d time.Duration) string {
	exact := d.Round(time.Millisecond).String()
	if d < time.Second {
		return exact
	}
	now := time.Now()
	words := strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
	return exact + " (" + words + ")"
}

// formatLimit renders a page limit, where negative means unlimited.
func formatLimit(limit int) string {
	if limit < 0 {
		return "unlimited"
	}
	return humanize.Comma(int64(limit))
}
