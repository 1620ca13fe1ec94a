package model

import (
	"encoding/json"
	"slices"
)

// LinkSet is an unordered set of URLs.
//
// Design decision: We use a map with empty struct values rather than a slice
// because pages routinely link to the same URL many times and the crawl
// engine only cares about membership.
type LinkSet map[string]struct{}

// NewLinkSet creates a LinkSet containing the given URLs.
func NewLinkSet(urls ...string) LinkSet {
	s := make(LinkSet, len(urls))
	for _, u := range urls {
		s[u] = struct{}{}
	}
	return s
}

// Add inserts a URL into the set.
func (s LinkSet) Add(u string) {
	s[u] = struct{}{}
}

// Has reports whether the URL is in the set.
func (s LinkSet) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Len returns the number of URLs in the set.
func (s LinkSet) Len() int {
	return len(s)
}

// Sorted returns the URLs in lexical order.
// The result is never nil so that it encodes as an empty JSON array.
func (s LinkSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both sets contain exactly the same URLs.
func (s LinkSet) Equal(other LinkSet) bool {
	if len(s) != len(other) {
		return false
	}
	for u := range s {
		if !other.Has(u) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s LinkSet) Clone() LinkSet {
	out := make(LinkSet, len(s))
	for u := range s {
		out[u] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s LinkSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *LinkSet) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	*s = NewLinkSet(urls...)
	return nil
}

// ResultMap maps the URL of every successfully fetched page to the links
// found on that page.
type ResultMap map[string]LinkSet

// NewResultMap creates an empty ResultMap.
func NewResultMap() ResultMap {
	return make(ResultMap)
}

// Put records the links for a page unless the page already has an entry.
// It returns true if the entry was inserted.
func (m ResultMap) Put(url string, links LinkSet) bool {
	if _, exists := m[url]; exists {
		return false
	}
	if links == nil {
		links = NewLinkSet()
	}
	m[url] = links
	return true
}

// Get returns the links recorded for a page and whether the page exists.
func (m ResultMap) Get(url string) (LinkSet, bool) {
	links, ok := m[url]
	return links, ok
}

// Len returns the number of pages in the map.
func (m ResultMap) Len() int {
	return len(m)
}

// URLs returns the page URLs in lexical order.
func (m ResultMap) URLs() []string {
	out := make([]string, 0, len(m))
	for u := range m {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// LinkCount returns the total number of links across all pages.
func (m ResultMap) LinkCount() int {
	total := 0
	for _, links := range m {
		total += links.Len()
	}
	return total
}
