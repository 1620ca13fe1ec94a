package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// JSONWriter writes each report as one JSON document followed by a newline,
// so several crawls written to the same file form a JSON stream.
//
// Design decision: We use encoding/json rather than a third-party JSON
// library because:
// 1. LinkSet and ResultMap already encode themselves in sorted order
// 2. json.Encoder can turn off HTML escaping, which keeps '&' in URLs readable
type JSONWriter struct {
	baseWriter
	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values; every line starts with prefix.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter. Output is compact unless an indent
// option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes the bare crawl report.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.encode(report)
}

func (w *JSONWriter) encode(v any) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	err := enc.Encode(v)
	return cw.n, err
}

// countingWriter reports how many bytes the encoder wrote.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// JSONReport wraps a crawl report with figures derived from it, so that
// consumers do not have to recompute them from the page map.
type JSONReport struct {
	Version       string             `json:"version"`
	Status        string             `json:"status"`
	ElapsedMillis int64              `json:"elapsed_ms"`
	InternalLinks int                `json:"internal_links"`
	ExternalLinks int                `json:"external_links"`
	DeadEnds      []string           `json:"dead_ends"`
	Report        *model.CrawlReport `json:"report"`
}

// NewJSONReport builds the wrapper for report.
func NewJSONReport(report *model.CrawlReport, version string) *JSONReport {
	return &JSONReport{
		Version:       version,
		Status:        statusText(report),
		ElapsedMillis: report.Duration().Milliseconds(),
		InternalLinks: report.InternalLinkCount(),
		ExternalLinks: report.ExternalLinkCount(),
		DeadEnds:      report.DeadEnds(),
		Report:        report,
	}
}

// FullJSONWriter writes reports inside a JSONReport wrapper.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a FullJSONWriter that stamps every report with
// the given sitecrawl version.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write encodes the wrapped report.
func (w *FullJSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.encode(NewJSONReport(report, w.version))
}
