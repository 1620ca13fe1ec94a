// Package transport builds the HTTP clients used by the page fetchers.
//
// A Client is either direct or routed through a SOCKS5 proxy (for example a
// Tor daemon, or the embedded one started by EmbeddedTor). Per-site cookies
// and headers from the configuration file are injected by a RoundTripper so
// that every request of a crawl, redirects included, carries them.
//
// The package is designed to be used with dependency injection: create a
// Client once and hand its *http.Client to the fetcher rather than using
// global state.
package transport
