package crawler

import (
	"errors"
	"testing"
)

func TestPathScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ignore []string
		follow []string
		url    string
		want   bool
	}{
		{name: "empty scope allows everything", url: "http://a.com/anything", want: true},
		{name: "ignored subtree", ignore: []string{"/admin/**"}, url: "http://a.com/admin/users/1", want: false},
		{name: "single star stays in segment", ignore: []string{"/admin/*"}, url: "http://a.com/admin/users/1", want: true},
		{name: "extension", ignore: []string{"**.pdf"}, url: "http://a.com/docs/file.pdf", want: false},
		{name: "follow matches", follow: []string{"/docs/**"}, url: "http://a.com/docs/intro", want: true},
		{name: "follow misses", follow: []string{"/docs/**"}, url: "http://a.com/blog/post", want: false},
		{name: "ignore wins over follow", ignore: []string{"/docs/private/**"}, follow: []string{"/docs/**"}, url: "http://a.com/docs/private/x", want: false},
		{name: "empty path is root", follow: []string{"/"}, url: "http://a.com", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scope, err := NewPathScope(tt.ignore, tt.follow)
			if err != nil {
				t.Fatalf("failed to compile scope: %v", err)
			}
			if got := scope.Allows(tt.url); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestPathScopeInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewPathScope([]string{"/[unclosed"}, nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPathScopeNil(t *testing.T) {
	t.Parallel()

	var scope *PathScope
	if !scope.IsZero() || !scope.Allows("http://a.com/x") {
		t.Error("nil scope must allow everything")
	}
}
