// Package database provides SQLite-based storage for sitecrawl.
//
// This package implements the CrawlDB, which stores:
//   - One row per crawl run with its counters and link-graph digest
//   - Every page fetched during a run
//   - Every link discovered on those pages
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Pages and links are stored as rows rather than one JSON blob so that the
// history command can compare two runs page by page.
package database
