package crawler

import (
	"errors"
	"net/url"
	"testing"

	"github.com/nao1215/sitecrawl/internal/model"
)

func TestDomainFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reference  string
		candidates []string
		want       []string
	}{
		{
			name:       "keeps same host",
			reference:  "http://example.com",
			candidates: []string{"http://example.com/a", "http://other.com/a"},
			want:       []string{"http://example.com/a"},
		},
		{
			name:       "host comparison ignores case",
			reference:  "http://Example.COM",
			candidates: []string{"http://EXAMPLE.com/a", "http://example.com/b"},
			want:       []string{"http://EXAMPLE.com/a", "http://example.com/b"},
		},
		{
			name:       "subdomains are different hosts",
			reference:  "http://example.com",
			candidates: []string{"http://blog.example.com/", "http://www.example.com/"},
			want:       []string{},
		},
		{
			name:       "parent domain of a subdomain seed is excluded",
			reference:  "http://blog.example.com",
			candidates: []string{"http://example.com/", "http://blog.example.com/post"},
			want:       []string{"http://blog.example.com/post"},
		},
		{
			name:       "scheme and port are ignored",
			reference:  "http://example.com",
			candidates: []string{"https://example.com:8443/x"},
			want:       []string{"https://example.com:8443/x"},
		},
		{
			name:       "kept links are normalized",
			reference:  "http://example.com",
			candidates: []string{"http://example.com/", "http://example.com/a?", "http://example.com/b#"},
			want:       []string{"http://example.com", "http://example.com/a", "http://example.com/b"},
		},
		{
			name:       "malformed links are dropped",
			reference:  "http://example.com",
			candidates: []string{"http://%zz/", "http://example.com/ok"},
			want:       []string{"http://example.com/ok"},
		},
		{
			name:       "relative links have no host",
			reference:  "http://example.com",
			candidates: []string{"/relative"},
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewDomainFilter(discardLogger())
			got := f.Filter(tt.reference, model.NewLinkSet(tt.candidates...))
			if !got.Equal(model.NewLinkSet(tt.want...)) {
				t.Errorf("expected %v, got %v", tt.want, got.Sorted())
			}
		})
	}
}

func TestDomainFilterApply(t *testing.T) {
	t.Parallel()

	t.Run("reports rejected and malformed links", func(t *testing.T) {
		t.Parallel()

		ref, err := url.Parse("http://example.com")
		if err != nil {
			t.Fatal(err)
		}
		f := NewDomainFilter(discardLogger())
		out := f.Apply(ref, model.NewLinkSet(
			"http://example.com/a",
			"http://other.com/",
			"http://%zz",
		))

		if out.Accepted.Len() != 1 {
			t.Errorf("expected 1 accepted link, got %v", out.Accepted.Sorted())
		}
		if out.Rejected != 1 {
			t.Errorf("expected 1 rejected link, got %d", out.Rejected)
		}
		if len(out.Malformed) != 1 {
			t.Fatalf("expected 1 malformed link, got %d", len(out.Malformed))
		}

		var malformed *MalformedURLError
		if !errors.As(out.Malformed[0], &malformed) || malformed.URL != "http://%zz" {
			t.Errorf("unexpected malformed error: %v", out.Malformed[0])
		}
	})

	t.Run("reference without host accepts nothing", func(t *testing.T) {
		t.Parallel()

		ref := &url.URL{Path: "/only/a/path"}
		f := NewDomainFilter(nil)
		out := f.Apply(ref, model.NewLinkSet("http://example.com"))
		if out.Accepted.Len() != 0 || out.Rejected != 1 {
			t.Errorf("expected everything rejected, got %+v", out)
		}
	})

	t.Run("malformed reference keeps nothing", func(t *testing.T) {
		t.Parallel()

		f := NewDomainFilter(discardLogger())
		got := f.Filter("http://[::1", model.NewLinkSet("http://example.com"))
		if got.Len() != 0 {
			t.Errorf("expected empty result, got %v", got.Sorted())
		}
	})
}
