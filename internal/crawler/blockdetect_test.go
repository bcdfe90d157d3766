package crawler

import (
	"fmt"
	"math"
	"testing"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

func blockedReport(url string, status int) types.AttemptReport {
	return types.AttemptReport{URL: url, StatusCode: status, ErrorKind: types.KindBlocked}
}

func okReport(url string) types.AttemptReport {
	return types.AttemptReport{URL: url, Success: true, StatusCode: 200}
}

func TestBlockDetectorTripsAcrossDomains(t *testing.T) {
	d := NewBlockDetector(20, 5)

	// Five 403s across two hosts plus two successes: window of 7.
	d.RecordAttempt(blockedReport("https://x.com/1", 403))
	d.RecordAttempt(blockedReport("https://y.com/1", 403))
	d.RecordAttempt(okReport("https://ok.com/1"))
	d.RecordAttempt(blockedReport("https://x.com/2", 403))
	d.RecordAttempt(blockedReport("https://y.com/2", 403))
	d.RecordAttempt(okReport("https://ok.com/2"))
	d.RecordAttempt(blockedReport("https://x.com/3", 403))

	blocked, stats := d.IsLikelyBlocked()
	if !blocked {
		t.Fatalf("expected trip, stats: %+v", stats)
	}
	if stats.BlockingFailures != 5 {
		t.Errorf("blocking failures = %d, want 5", stats.BlockingFailures)
	}
	if stats.UniqueDomains != 2 {
		t.Errorf("unique domains = %d, want 2", stats.UniqueDomains)
	}
	if math.Abs(stats.BlockingRate-5.0/7.0) > 0.001 {
		t.Errorf("blocking rate = %.3f, want ≈0.714", stats.BlockingRate)
	}
}

func TestBlockDetectorIgnoresSingleDomain(t *testing.T) {
	d := NewBlockDetector(20, 5)
	for i := 0; i < 8; i++ {
		d.RecordAttempt(blockedReport(fmt.Sprintf("https://x.com/%d", i), 403))
	}
	if blocked, stats := d.IsLikelyBlocked(); blocked {
		t.Errorf("one chronically-403 site must not trip the detector: %+v", stats)
	}
}

func TestBlockDetectorBelowThreshold(t *testing.T) {
	d := NewBlockDetector(20, 5)
	d.RecordAttempt(blockedReport("https://x.com/1", 403))
	d.RecordAttempt(blockedReport("https://y.com/1", 429))
	if blocked, _ := d.IsLikelyBlocked(); blocked {
		t.Error("two failures must not trip a threshold of five")
	}
}

func TestBlockDetectorDilutedWindow(t *testing.T) {
	d := NewBlockDetector(20, 5)
	for i := 0; i < 12; i++ {
		d.RecordAttempt(okReport(fmt.Sprintf("https://ok%d.com/", i)))
	}
	d.RecordAttempt(blockedReport("https://x.com/1", 403))
	d.RecordAttempt(blockedReport("https://y.com/1", 403))
	d.RecordAttempt(blockedReport("https://x.com/2", 403))
	d.RecordAttempt(blockedReport("https://y.com/2", 403))
	d.RecordAttempt(blockedReport("https://x.com/3", 403))

	// 5/17 blocking: threshold and domains are met, rate is not.
	if blocked, stats := d.IsLikelyBlocked(); blocked {
		t.Errorf("diluted window must not trip: rate %.2f", stats.BlockingRate)
	}
}

func TestBlockDetectorWindowEviction(t *testing.T) {
	d := NewBlockDetector(3, 2)
	d.RecordAttempt(blockedReport("https://x.com/1", 403))
	d.RecordAttempt(okReport("https://ok.com/1"))
	d.RecordAttempt(okReport("https://ok.com/2"))
	d.RecordAttempt(okReport("https://ok.com/3")) // evicts the 403

	_, stats := d.IsLikelyBlocked()
	if stats.BlockingFailures != 0 {
		t.Errorf("evicted failure still counted: %+v", stats)
	}
	if stats.WindowLen != 3 {
		t.Errorf("window length = %d, want capacity 3", stats.WindowLen)
	}
}

func TestBlockDetectorErrorKinds(t *testing.T) {
	tests := []struct {
		rep      types.AttemptReport
		blocking bool
	}{
		{types.AttemptReport{URL: "https://a.com", StatusCode: 403}, true},
		{types.AttemptReport{URL: "https://a.com", StatusCode: 429}, true},
		{types.AttemptReport{URL: "https://a.com", ErrorKind: types.KindConnReset}, true},
		{types.AttemptReport{URL: "https://a.com", ErrorKind: types.KindTLS}, true},
		{types.AttemptReport{URL: "https://a.com", ErrorKind: types.KindTransient}, false},
		{types.AttemptReport{URL: "https://a.com", ErrorKind: types.KindFatal}, false},
		{types.AttemptReport{URL: "https://a.com", Success: true, StatusCode: 200}, false},
	}
	for _, tt := range tests {
		if got := isBlockingFailure(tt.rep); got != tt.blocking {
			t.Errorf("isBlockingFailure(%+v) = %v, want %v", tt.rep, got, tt.blocking)
		}
	}
}

func TestBlockDetectorResetPreservesRetryBuffer(t *testing.T) {
	d := NewBlockDetector(20, 5)
	d.RecordAttempt(blockedReport("https://x.com/1", 403))
	d.RecordAttempt(blockedReport("https://y.com/1", 403))

	d.Reset()

	_, stats := d.IsLikelyBlocked()
	if stats.BlockingFailures != 0 {
		t.Error("reset must clear the window")
	}
	if got := d.RetryURLs(); len(got) != 2 {
		t.Errorf("retry buffer = %v, want both blocked URLs preserved", got)
	}
}

func TestBlockDetectorRetryBufferCap(t *testing.T) {
	d := NewBlockDetector(20, 5)
	for i := 0; i < retryBufferCap+10; i++ {
		d.RecordAttempt(blockedReport(fmt.Sprintf("https://x.com/%d", i), 403))
	}
	got := d.RetryURLs()
	if len(got) != retryBufferCap {
		t.Fatalf("retry buffer size = %d, want %d", len(got), retryBufferCap)
	}
	if got[len(got)-1] != fmt.Sprintf("https://x.com/%d", retryBufferCap+9) {
		t.Errorf("retry buffer must keep the newest entries, last = %s", got[len(got)-1])
	}
}
