package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing crawl behavior per site.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// PageLimit overrides the global page limit for this site.
	// If zero, the global PageLimit is used.
	PageLimit int `yaml:"pageLimit,omitempty"`

	// Workers overrides the global worker count for this site.
	// If zero, the global WorkerCount is used.
	Workers int `yaml:"workers,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax; "**" crosses path segments.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .sitecrawl configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are host names without scheme or port (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults. Host lookup
// tries the exact key first and then the lower-cased host.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	// Copy so that merging never mutates the defaults' map.
	if cf.Defaults.Headers != nil {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.Sites[strings.ToLower(host)]
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.PageLimit != 0 {
		result.PageLimit = siteConfig.PageLimit
	}
	if siteConfig.Workers != 0 {
		result.Workers = siteConfig.Workers
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

// SiteFor returns the effective settings for a seed URL: the config file
// entry for the seed's host (if any) with the global page limit and worker
// count filled in where the file leaves them unset.
func (c *Config) SiteFor(seed string) SiteConfig {
	var site SiteConfig
	if c.SiteConfigs != nil {
		host := seed
		if u, err := url.Parse(seed); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
		site = c.SiteConfigs.GetSiteConfig(host)
	}

	if site.PageLimit == 0 {
		site.PageLimit = c.PageLimit
	}
	if site.Workers <= 0 {
		site.Workers = c.WorkerCount
	}
	return site
}
