package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is the per-request timeout of clients built by NewClient.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects is the number of redirects followed per request.
	DefaultMaxRedirects = 10

	// DefaultMaxConnsPerHost matches the default crawl worker count so that
	// every worker can keep an idle connection to the crawled host.
	DefaultMaxConnsPerHost = 10

	// checkProxyTimeout is the timeout for checking if the proxy is available.
	// We use a short timeout here because this is just a connectivity check,
	// not an actual request through the proxy.
	checkProxyTimeout = 2 * time.Second
)

// Client builds HTTP clients that share one connection strategy: either
// direct, or through a SOCKS5 proxy.
//
// Design decision: We don't connect to the proxy in the constructor because:
//  1. It allows creating the client even when the proxy isn't running yet
//  2. It separates object creation from network operations
//  3. It allows for better testing with mock proxies
//
// Call CheckProxy() to verify the proxy before crawling.
type Client struct {
	// proxyAddress is the SOCKS5 proxy address in "host:port" format.
	// Empty means direct connections.
	proxyAddress string

	// dialer is the SOCKS5 dialer. It is nil for direct connections.
	dialer proxy.Dialer

	// timeout is the per-request timeout.
	timeout time.Duration

	// maxRedirects limits redirects per request.
	maxRedirects int

	// maxConnsPerHost sizes the idle connection pool per host.
	maxConnsPerHost int

	// insecureSkipVerify disables TLS certificate verification.
	insecureSkipVerify bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProxy routes all connections through the SOCKS5 proxy at address
// ("host:port"). An empty address means direct connections.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithMaxRedirects sets how many redirects are followed per request.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithMaxConnsPerHost sizes the idle connection pool per host. Set it to the
// crawl's worker count. Non-positive values are ignored.
func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConnsPerHost = n
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification, for sites
// with self-signed certificates (onion services typically have one).
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		c.insecureSkipVerify = skip
	}
}

// NewClient creates a Client. It validates the proxy address format but
// does not verify that the proxy is actually running.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:         DefaultTimeout,
		maxRedirects:    DefaultMaxRedirects,
		maxConnsPerHost: DefaultMaxConnsPerHost,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.proxyAddress == "" {
		return c, nil
	}

	if !isValidProxyAddress(c.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port typically doesn't require auth
	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	c.dialer = dialer

	return c, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format
// with a port between 1 and 65535. IPv6 hosts must be bracketed.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5TestHost is a reserved, never-resolvable name used for the
	// CONNECT probe. We only need the proxy to answer the request; the
	// connection itself is expected to fail.
	socks5TestHost = "sitecrawl.invalid"
)

// CheckProxy verifies that the configured proxy is running and speaks
// SOCKS5. For a direct client it returns ProxyStatusDirect.
//
// The check works by performing a SOCKS5 protocol handshake to verify:
//  1. The proxy speaks SOCKS5 protocol
//  2. The proxy accepts connections without authentication
//  3. The proxy answers CONNECT requests for domain names
func (c *Client) CheckProxy(ctx context.Context) ProxyStatus {
	if c.proxyAddress == "" {
		return ProxyStatusDirect
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version + one method + "no authentication"
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if isTimeout(err) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if authResp[0] != socks5Version || authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT: version + cmd + reserved + addr type + len + host + port
	const testPort = 80
	connectReq := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeDomID, byte(len(socks5TestHost))}
	connectReq = append(connectReq, socks5TestHost...)
	connectReq = append(connectReq, byte(testPort>>8), byte(testPort&0xFF))
	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	// Any reply code proves the proxy processed the request; only the
	// version byte matters.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if isTimeout(err) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// DialContext establishes a TCP connection, through the proxy if one is
// configured.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if c.dialer == nil {
		var d net.Dialer
		return d.DialContext(ctx, network, address)
	}
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	// The proxy.Dialer interface has no context support; the dial may
	// continue briefly after ctx is done.
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured proxy address, or "" for direct clients.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// NewHTTPClient creates an HTTP client with a cookie jar, the configured
// timeout, and a redirect limit.
//
// Design decisions:
//   - A cookie jar keeps session cookies set during the crawl
//   - Redirects are limited to prevent loops while allowing normal redirects
//   - The idle pool per host is sized for the crawl's worker count
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               nil,
		DialContext:         c.DialContext,
		MaxIdleConns:        c.maxConnsPerHost * 2,
		MaxIdleConnsPerHost: c.maxConnsPerHost,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   c.dialer == nil,
	}
	if c.insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Opt-in for self-signed sites
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	maxRedirects := c.maxRedirects
	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// HTTPClient creates an HTTP client that adds the given cookie and headers
// to every request.
//
// The cookie parameter is a raw cookie string (e.g., "session_id=abc123").
// The headers parameter is a map of header names to values.
//
// Design decision: We use a custom RoundTripper to inject headers/cookies
// rather than modifying each request. This ensures all requests (including
// redirects) include the configured values, whichever fetcher sends them.
func (c *Client) HTTPClient(cookie string, headers map[string]string) *http.Client {
	client := c.NewHTTPClient()
	if cookie == "" && len(headers) == 0 {
		return client
	}

	client.Transport = &headerInjectingTransport{
		base:    client.Transport,
		cookie:  cookie,
		headers: headers,
	}
	return client
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
