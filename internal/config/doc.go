// Package config provides configuration structures and utilities for sitecrawl.
// It defines the crawl engine settings, transport settings, report output
// preferences, and the optional per-site YAML configuration file.
package config
