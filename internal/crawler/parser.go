package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/sitecrawl/internal/model"
)

// skippedSchemes are link schemes that never point to a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Parser extracts the links of an HTML document.
//
// Design decision: We parse with golang.org/x/net/html and query the tree
// with goquery rather than using regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. CSS selectors keep the extraction rule in one readable place
//  3. <base href> handling needs the document structure anyway
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// ParseLinks parses HTML content and returns the absolute, normalized URL of
// every <a href> element. Links with non-navigational schemes and empty or
// fragment-only hrefs are skipped.
func (p *Parser) ParseLinks(content io.Reader) (model.LinkSet, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	base := p.baseURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = resolved
		}
	}

	links := model.NewLinkSet()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved := resolveLink(base, href); resolved != "" {
			links.Add(NormalizeURL(resolved))
		}
	})
	return links, nil
}

// resolveLink resolves href against base. It returns "" for links that
// should not be followed.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
