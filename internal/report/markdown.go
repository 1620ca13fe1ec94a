package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitecrawl/internal/model"
)

// maxLinkLength bounds link cells so that tables stay readable.
const maxLinkLength = 80

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. Mermaid charts and GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeDeadEnds(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + report.Seed + "`"},
			{"Host", "`" + report.Host + "`"},
			{"Crawl Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", formatElapsed(report.Duration())},
			{"Workers", strconv.Itoa(report.Workers)},
			{"Page Limit", formatLimit(report.PageLimit)},
			{"Pages Crawled", humanize.Comma(int64(report.PagesCrawled()))},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the crawl counters, the link distribution chart and
// an alert describing how the crawl ended.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	s := report.Stats

	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Dispatched", strconv.Itoa(s.Dispatched)},
			{"Succeeded", strconv.Itoa(s.Succeeded)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Discarded", strconv.Itoa(s.Discarded)},
			{"Duplicates", strconv.Itoa(s.Duplicates)},
			{"Links Accepted", strconv.Itoa(s.LinksAccepted)},
			{"Links Rejected", strconv.Itoa(s.LinksRejected)},
			{"Links Excluded", strconv.Itoa(s.LinksExcluded)},
			{"Malformed", strconv.Itoa(s.Malformed)},
		},
	})
	md.PlainText("")

	if report.Pages.LinkCount() > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of internal versus external links.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Distribution"),
		piechart.WithShowData(true),
	)

	if internal := report.InternalLinkCount(); internal > 0 {
		chart.LabelAndIntValue("Internal", uint64(internal))
	}
	if external := report.ExternalLinkCount(); external > 0 {
		chart.LabelAndIntValue("External", uint64(external))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert based on how the crawl ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	s := report.Stats
	switch {
	case report.ErrorMessage != "" && report.PagesCrawled() == 0:
		md.Cautionf("The crawl failed before any page was fetched: %s", report.ErrorMessage)
	case report.Cancelled || s.DrainTimedOut:
		md.Warningf(
			"The crawl was interrupted. %d page(s) were fetched and %d in-flight fetch(es) were discarded.",
			report.PagesCrawled(), s.Discarded,
		)
	case s.Failed > 0:
		md.Importantf("%d page(s) could not be fetched and are missing from the results.", s.Failed)
	case s.LimitReached:
		md.Note("The page limit was reached; the site may have more pages.")
	default:
		md.Tip("Every reachable page on the host was crawled.")
	}
	md.PlainText("")
}

// writeDeadEnds lists the pages without links.
func (w *MarkdownWriter) writeDeadEnds(md *markdown.Markdown, report *model.CrawlReport) {
	deadEnds := report.DeadEnds()
	if len(deadEnds) == 0 {
		return
	}

	md.H2("Dead Ends")
	md.PlainText("")
	md.BulletList(deadEnds...)
	md.PlainText("")
}

// writePages writes one link table per page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if report.PagesCrawled() == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	for _, page := range report.Pages.URLs() {
		links := report.Pages[page].Sorted()

		md.H3(page)
		md.PlainText("")

		if len(links) == 0 {
			md.PlainText("No links.")
			md.PlainText("")
			continue
		}

		rows := make([][]string, len(links))
		for i, link := range links {
			scope := "External"
			if report.IsInternal(link) {
				scope = "Internal"
			}
			rows[i] = []string{truncateString(link, maxLinkLength), scope}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Link", "Scope"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
