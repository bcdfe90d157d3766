// Package urlutil provides URL normalization and fallback-variation
// generation for the crawl pipeline.
package urlutil

import (
	"net/url"
	"strings"
)

// Normalize prepends https:// when the URL has no scheme; otherwise the
// input is returned unchanged.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "https://" + rawURL
	}
	return rawURL
}

// GenerateVariations produces common fixes for a failing URL, in priority
// order: toggle the www. prefix, flip the scheme, add a trailing slash,
// strip a trailing slash. Query, fragment, port, user-info, and non-www
// subdomains are preserved byte for byte. The input URL itself is never
// included and duplicates are dropped.
func GenerateVariations(rawURL string, maxVariations int) []string {
	u, err := url.Parse(rawURL)
	if err != nil || maxVariations <= 0 {
		return nil
	}

	var candidates []string

	// 1. Toggle www. on the host.
	host := u.Host
	toggled := *u
	if strings.HasPrefix(host, "www.") {
		toggled.Host = strings.TrimPrefix(host, "www.")
	} else {
		toggled.Host = "www." + host
	}
	candidates = append(candidates, toggled.String())

	// 2. Flip the scheme.
	flipped := *u
	if u.Scheme == "https" {
		flipped.Scheme = "http"
	} else {
		flipped.Scheme = "https"
	}
	candidates = append(candidates, flipped.String())

	// 3. Add a trailing slash.
	if !strings.HasSuffix(u.Path, "/") {
		slashed := *u
		slashed.Path = u.Path + "/"
		candidates = append(candidates, slashed.String())
	}

	// 4. Strip a trailing slash (never the root).
	if strings.HasSuffix(u.Path, "/") && u.Path != "/" {
		stripped := *u
		stripped.Path = strings.TrimRight(u.Path, "/")
		candidates = append(candidates, stripped.String())
	}

	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, v := range candidates {
		if v == rawURL {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == maxVariations {
			break
		}
	}
	return out
}

// Host returns the hostname (without port) of a URL, or the raw string when
// it cannot be parsed. Used as the domain-gate key.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
