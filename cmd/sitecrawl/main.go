// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls a website starting from a seed URL, follows every link
// that stays on the seed's host, and reports the links found on each page.
//
// Usage:
//
//	sitecrawl crawl <url>...
//	sitecrawl history <url>
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}
