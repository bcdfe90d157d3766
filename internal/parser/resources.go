// Package parser extracts sub-resource URLs and page metadata from HTML
// documents.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// resourceSelectors maps the tags whose URLs count as sub-resources to the
// attribute holding the URL. Anchor tags are deliberately excluded: they are
// navigation, not loaded resources, and drown the signal in noise.
var resourceSelectors = []struct {
	tag, attr string
}{
	{"script", "src"},
	{"link", "href"},
	{"iframe", "src"},
}

// ExtractResourceURLs returns the absolute URLs of scripts, stylesheets,
// and iframes referenced by the document. Order follows document order with
// duplicates removed.
func ExtractResourceURLs(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, sel := range resourceSelectors {
		doc.Find(sel.tag).Each(func(_ int, s *goquery.Selection) {
			ref, ok := s.Attr(sel.attr)
			if !ok || ref == "" {
				return
			}
			abs := ref
			if base != nil {
				if u, err := base.Parse(ref); err == nil {
					abs = u.String()
				}
			}
			if _, dup := seen[abs]; dup {
				return
			}
			seen[abs] = struct{}{}
			out = append(out, abs)
		})
	}
	return out
}

// ExtractPageMetadata pulls the page title and meta description. Empty
// values become nils so the JSON output distinguishes absent from blank.
func ExtractPageMetadata(html string) *types.PageMetadata {
	meta := &types.PageMetadata{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta.Title = &title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			meta.Description = &desc
		}
	}
	return meta
}
