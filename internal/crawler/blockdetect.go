package crawler

import (
	"time"

	"github.com/whitehat-seo/hubcrawl/internal/types"
	"github.com/whitehat-seo/hubcrawl/internal/urlutil"
)

const retryBufferCap = 50

// windowEntry is one attempt in the sliding window.
type windowEntry struct {
	url      string
	domain   string
	blocking bool
	at       time.Time
}

// BlockStats is the snapshot reported when the detector trips.
type BlockStats struct {
	BlockingFailures int
	WindowLen        int
	Threshold        int
	UniqueDomains    int
	BlockingRate     float64
	AffectedDomains  []string // up to five
	RetryBufferSize  int
}

// BlockDetector classifies attempt outcomes in a fixed-capacity sliding
// window and decides whether the source IP is likely being blocked. It is
// owned by the coordinator's single consumer loop and is not safe for
// concurrent use.
type BlockDetector struct {
	window     []windowEntry
	windowSize int
	threshold  int
	retryURLs  []string
}

// NewBlockDetector creates a detector with the given window capacity and
// trip threshold.
func NewBlockDetector(windowSize, threshold int) *BlockDetector {
	if windowSize < 1 {
		windowSize = 1
	}
	if threshold < 1 {
		threshold = 1
	}
	return &BlockDetector{
		windowSize: windowSize,
		threshold:  threshold,
	}
}

// isBlockingFailure reports whether an attempt's shape suggests active
// denial: 403/429 statuses, or a TLS / connection-reset class of transport
// error. Timeouts and DNS failures are deliberately excluded.
func isBlockingFailure(rep types.AttemptReport) bool {
	if rep.Success {
		return false
	}
	if rep.StatusCode == 403 || rep.StatusCode == 429 {
		return true
	}
	switch rep.ErrorKind {
	case types.KindBlocked, types.KindRateLimited, types.KindConnReset, types.KindTLS:
		return true
	}
	return false
}

// RecordAttempt appends an attempt to the window, evicting the oldest entry
// when full. Blocking failures also enter the retry buffer.
func (d *BlockDetector) RecordAttempt(rep types.AttemptReport) {
	blocking := isBlockingFailure(rep)
	entry := windowEntry{
		url:      rep.URL,
		domain:   urlutil.Host(rep.URL),
		blocking: blocking,
		at:       time.Now(),
	}
	if len(d.window) == d.windowSize {
		d.window = append(d.window[1:], entry)
	} else {
		d.window = append(d.window, entry)
	}

	if blocking {
		if len(d.retryURLs) == retryBufferCap {
			d.retryURLs = append(d.retryURLs[1:], rep.URL)
		} else {
			d.retryURLs = append(d.retryURLs, rep.URL)
		}
	}
}

// IsLikelyBlocked applies the triple gate: blocking failures at or above the
// threshold, at least two distinct domains among the most recent threshold
// blocking entries, and a blocking rate of at least 0.60 over the window.
// All three must hold; any single chronically-broken site, a short timeout
// burst, or a window diluted with successes keeps the detector quiet.
func (d *BlockDetector) IsLikelyBlocked() (bool, BlockStats) {
	var blocking []windowEntry
	for _, e := range d.window {
		if e.blocking {
			blocking = append(blocking, e)
		}
	}

	recent := blocking
	if len(recent) > d.threshold {
		recent = recent[len(recent)-d.threshold:]
	}
	domains := make(map[string]struct{}, len(recent))
	for _, e := range recent {
		domains[e.domain] = struct{}{}
	}

	rate := 0.0
	if n := len(d.window); n > 0 {
		rate = float64(len(blocking)) / float64(n)
	}

	stats := BlockStats{
		BlockingFailures: len(blocking),
		WindowLen:        len(d.window),
		Threshold:        d.threshold,
		UniqueDomains:    len(domains),
		BlockingRate:     rate,
		RetryBufferSize:  len(d.retryURLs),
	}
	for domain := range domains {
		if len(stats.AffectedDomains) == 5 {
			break
		}
		stats.AffectedDomains = append(stats.AffectedDomains, domain)
	}

	tripped := len(blocking) >= d.threshold && len(domains) >= 2 && rate >= 0.60
	return tripped, stats
}

// Reset clears the window after a pause so stale failures cannot re-trip the
// detector. The retry buffer is preserved for manual follow-up.
func (d *BlockDetector) Reset() {
	d.window = d.window[:0]
}

// RetryURLs returns the URLs whose failures looked like blocking, oldest
// first.
func (d *BlockDetector) RetryURLs() []string {
	return append([]string(nil), d.retryURLs...)
}
