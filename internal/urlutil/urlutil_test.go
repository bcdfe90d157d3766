package urlutil

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/path?q=1", "https://example.com/path?q=1"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateVariationsPriorityOrder(t *testing.T) {
	got := GenerateVariations("https://example.com/page", 4)
	want := []string{
		"https://www.example.com/page",
		"http://example.com/page",
		"https://example.com/page/",
	}
	if !slices.Equal(got, want) {
		t.Errorf("variations = %v, want %v", got, want)
	}
}

func TestGenerateVariationsWwwRemoval(t *testing.T) {
	got := GenerateVariations("https://www.example.com/", 4)
	want := []string{
		"https://example.com/",
		"http://www.example.com/",
	}
	// Root path: no trailing-slash variations apply.
	if !slices.Equal(got, want) {
		t.Errorf("variations = %v, want %v", got, want)
	}
}

func TestGenerateVariationsStripTrailingSlash(t *testing.T) {
	got := GenerateVariations("https://example.com/page/", 4)
	if !slices.Contains(got, "https://example.com/page") {
		t.Errorf("expected trailing-slash removal variation, got %v", got)
	}
}

func TestGenerateVariationsNeverContainsInput(t *testing.T) {
	for _, u := range []string{
		"https://example.com",
		"http://www.example.com/a/",
		"https://example.com/x?q=1#frag",
	} {
		for _, v := range GenerateVariations(u, 4) {
			if v == u {
				t.Errorf("variations of %q contain the input", u)
			}
		}
	}
}

func TestGenerateVariationsDuplicateFree(t *testing.T) {
	got := GenerateVariations("https://example.com/page", 4)
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v] {
			t.Errorf("duplicate variation %q", v)
		}
		seen[v] = true
	}
}

func TestGenerateVariationsPreservesQueryAndPort(t *testing.T) {
	got := GenerateVariations("https://example.com:8443/page?a=1&b=2", 1)
	if len(got) != 1 || got[0] != "https://www.example.com:8443/page?a=1&b=2" {
		t.Errorf("variations = %v, want port and query preserved", got)
	}
}

func TestGenerateVariationsMaxN(t *testing.T) {
	if got := GenerateVariations("https://example.com/page", 2); len(got) != 2 {
		t.Errorf("expected 2 variations, got %v", got)
	}
	if got := GenerateVariations("https://example.com/page", 0); got != nil {
		t.Errorf("expected no variations for maxN=0, got %v", got)
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://www.example.com:8080/path"); got != "www.example.com" {
		t.Errorf("Host = %q, want www.example.com", got)
	}
}
