// Package pipeline provides a framework for executing crawl steps in sequence.
//
// The pipeline pattern is used to process each seed URL through multiple
// stages: crawling the site, fingerprinting the link graph, and persisting
// the result. Each stage is implemented as a Step that receives the current
// report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
//
// The pipeline supports both individual crawls and batch processing of many
// seeds with concurrency control using errgroup.
package pipeline
