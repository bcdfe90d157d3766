package crawler

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadURLs reads the input file: one URL per line, blank lines and lines
// starting with # ignored.
func LoadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return urls, nil
}

// DedupeURLs removes duplicate URLs preserving first-seen order. Returns the
// surviving list and the number removed.
func DedupeURLs(urls []string) ([]string, int) {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, len(urls) - len(out)
}
