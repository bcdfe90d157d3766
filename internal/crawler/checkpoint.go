package crawler

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Checkpoint is the append-only record of completed input URLs. Each
// successful result appends its original input URL; on startup the full set
// is loaded so completed URLs are skipped.
type Checkpoint struct {
	mu   sync.Mutex
	file *os.File
	done map[string]struct{}
}

// OpenCheckpoint loads the completed set from path (if it exists) and opens
// the file for appending.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	done := make(map[string]struct{})

	if data, err := os.ReadFile(path); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				done[line] = struct{}{}
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}

	return &Checkpoint{file: f, done: done}, nil
}

// Contains reports whether the URL completed in a previous run.
func (c *Checkpoint) Contains(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.done[url]
	return ok
}

// Len returns the number of completed URLs loaded at startup plus those
// appended this run.
func (c *Checkpoint) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done)
}

// Append records a completed original input URL. The write reaches the OS
// before Append returns.
func (c *Checkpoint) Append(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.file.WriteString(url + "\n"); err != nil {
		return fmt.Errorf("append checkpoint: %w", err)
	}
	c.done[url] = struct{}{}
	return nil
}

// Close closes the underlying file.
func (c *Checkpoint) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}
