package parser

import (
	"slices"
	"testing"
)

const testHTML = `<!DOCTYPE html>
<html>
<head>
    <title>  Test Page  </title>
    <meta name="description" content="A test page for parsing">
    <script src="//js.hs-scripts.com/12345.js"></script>
    <link rel="stylesheet" href="/assets/site.css">
    <link rel="canonical" href="https://example.com/page">
</head>
<body>
    <iframe src="https://meetings.hubspot.com/sales-team"></iframe>
    <a href="/not-a-resource">Navigation link</a>
    <script src="/assets/app.js"></script>
</body>
</html>`

func TestExtractResourceURLs(t *testing.T) {
	urls := ExtractResourceURLs(testHTML, "https://example.com/page")

	want := []string{
		"https://js.hs-scripts.com/12345.js",
		"https://example.com/assets/app.js",
		"https://example.com/assets/site.css",
		"https://example.com/page",
		"https://meetings.hubspot.com/sales-team",
	}
	for _, w := range want {
		if !slices.Contains(urls, w) {
			t.Errorf("missing resource URL %q in %v", w, urls)
		}
	}
	if slices.Contains(urls, "https://example.com/not-a-resource") {
		t.Error("anchor hrefs must not be extracted")
	}
}

func TestExtractResourceURLsDeduplicates(t *testing.T) {
	html := `<script src="/a.js"></script><script src="/a.js"></script>`
	urls := ExtractResourceURLs(html, "https://example.com")
	if len(urls) != 1 {
		t.Errorf("expected 1 unique URL, got %v", urls)
	}
}

func TestExtractPageMetadata(t *testing.T) {
	meta := ExtractPageMetadata(testHTML)
	if meta.Title == nil || *meta.Title != "Test Page" {
		t.Errorf("title = %v, want Test Page", meta.Title)
	}
	if meta.Description == nil || *meta.Description != "A test page for parsing" {
		t.Errorf("description = %v", meta.Description)
	}
}

func TestExtractPageMetadataMissing(t *testing.T) {
	meta := ExtractPageMetadata(`<html><head><title></title></head><body></body></html>`)
	if meta.Title != nil {
		t.Errorf("empty title should be nil, got %q", *meta.Title)
	}
	if meta.Description != nil {
		t.Errorf("missing description should be nil, got %q", *meta.Description)
	}
}
