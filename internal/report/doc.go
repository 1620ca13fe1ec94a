// Package report renders crawl reports for people and for other tools.
//
// Three formats are available, all behind the Writer interface:
//   - SimpleWriter prints "URL : ..." / "LINKS : ..." pairs followed by totals
//   - JSONWriter and FullJSONWriter emit one JSON document per crawl
//   - MarkdownWriter produces a shareable summary with a mermaid pie chart
//
// Design decision: Report data lives in the model package and rendering
// lives here, so a new format never touches the types stored in the
// history database.
package report
