package crawler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.txt")

	cp, err := OpenCheckpoint(path)
	if err != nil {
		t.Fatalf("OpenCheckpoint: %v", err)
	}
	if err := cp.Append("https://a.com"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := cp.Append("https://b.com"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !cp.Contains("https://a.com") {
		t.Error("Contains must see appends from this run")
	}
	cp.Close()

	// Reopen: the set survives the restart.
	cp2, err := OpenCheckpoint(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cp2.Close()
	if !cp2.Contains("https://a.com") || !cp2.Contains("https://b.com") {
		t.Error("reloaded checkpoint missing completed URLs")
	}
	if cp2.Contains("https://c.com") {
		t.Error("Contains reported a URL that was never appended")
	}
	if cp2.Len() != 2 {
		t.Errorf("Len = %d, want 2", cp2.Len())
	}
}

func TestCheckpointAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.txt")

	cp, _ := OpenCheckpoint(path)
	cp.Append("https://a.com")
	cp.Close()

	cp2, _ := OpenCheckpoint(path)
	cp2.Append("https://b.com")
	cp2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("file has %d lines, want append-only accumulation of 2", len(lines))
	}
}

func TestLoadURLsSkipsCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# header comment\nhttps://a.com\n\n  \nhttps://b.com\n# trailing\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := LoadURLs(path)
	if err != nil {
		t.Fatalf("LoadURLs: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.com" || urls[1] != "https://b.com" {
		t.Errorf("urls = %v", urls)
	}
}

func TestDedupeURLsPreservesOrder(t *testing.T) {
	urls, removed := DedupeURLs([]string{"a", "b", "a", "c", "b"})
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	want := []string{"a", "b", "c"}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}
