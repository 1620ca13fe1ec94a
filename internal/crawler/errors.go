package crawler

import (
	"errors"
	"fmt"
)

// Crawl engine errors.
//
// Design decision: Only ErrInvalidArgument is ever returned from Crawl.
// The other conditions are recovered where they happen and only show up as
// pages or links missing from the result, a log line, and a counter.
var (
	// ErrInvalidArgument is returned by Crawl when it is called with a
	// configuration that cannot work (zero page limit, seed without a host).
	// No work is performed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShutdownTimeout is logged when in-flight tasks did not finish within
	// the drain grace period and the worker pool was shut down forcibly.
	ErrShutdownTimeout = errors.New("worker pool did not drain within the grace period")

	// ErrUnexpectedStatus is wrapped by FetchError for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContentType is wrapped by FetchError when the response
	// is not an HTML document.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// FetchError reports that a page could not be fetched or parsed.
// The crawl continues; the page simply has no entry in the result.
type FetchError struct {
	// URL is the page that failed.
	URL string

	// StatusCode is the HTTP status, or 0 if no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedURLError reports a discovered link that could not be parsed.
// The link is dropped and filtering continues with the remaining links.
type MalformedURLError struct {
	// URL is the raw link text.
	URL string

	// Err is the parse error.
	Err error
}

// Error implements the error interface.
func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("malformed url %q: %v", e.URL, e.Err)
}

// Unwrap returns the parse error.
func (e *MalformedURLError) Unwrap() error {
	return e.Err
}
