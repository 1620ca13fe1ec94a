package crawler

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"
)

// PathScope narrows a crawl to a subset of the paths on the seed host.
// Patterns use glob syntax where '*' stays within one path segment and '**'
// crosses segments (e.g. "/admin/**", "**.pdf").
//
// Logic:
//  1. If the path matches any ignore pattern, the link is excluded
//  2. If follow patterns are set and the path matches none, it is excluded
//  3. Otherwise the link is in scope
//
// The zero value allows every path.
type PathScope struct {
	ignore []glob.Glob
	follow []glob.Glob
}

// NewPathScope compiles the ignore and follow patterns.
func NewPathScope(ignore, follow []string) (*PathScope, error) {
	s := &PathScope{}
	var err error
	if s.ignore, err = compilePatterns(ignore); err != nil {
		return nil, err
	}
	if s.follow, err = compilePatterns(follow); err != nil {
		return nil, err
	}
	return s, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: invalid path pattern %q: %v", ErrInvalidArgument, p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Allows reports whether the URL's path is in scope.
// Unparseable URLs are never in scope.
func (s *PathScope) Allows(rawURL string) bool {
	if s == nil || (len(s.ignore) == 0 && len(s.follow) == 0) {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, g := range s.ignore {
		if g.Match(path) {
			return false
		}
	}
	if len(s.follow) == 0 {
		return true
	}
	for _, g := range s.follow {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// IsZero reports whether the scope has no patterns.
func (s *PathScope) IsZero() bool {
	return s == nil || (len(s.ignore) == 0 && len(s.follow) == 0)
}
