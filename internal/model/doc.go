// Package model defines the core data structures used throughout sitecrawl.
//
// This package contains the following main types:
//   - LinkSet: A set of URLs discovered on a single page
//   - ResultMap: The crawl output, mapping each fetched page to its links
//   - CrawlStats: Counters collected by the crawl engine
//   - CrawlReport: The complete result of one crawl, as stored and reported
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, pipeline, database and report packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
