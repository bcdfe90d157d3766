package crawler

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/types"
)

func TestAttemptQueueUnboundedFIFO(t *testing.T) {
	q := NewAttemptQueue()

	// Put far more than any channel buffer without a consumer.
	const n = 1000
	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			q.Put(types.AttemptReport{StatusCode: i})
		}
		q.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked: queue is not unbounded")
	}

	i := 0
	for rep := range q.Reports() {
		if rep.StatusCode != i {
			t.Fatalf("report %d out of order: %d", i, rep.StatusCode)
		}
		i++
	}
	if i != n {
		t.Errorf("drained %d reports, want %d", i, n)
	}
}

func testCoordinator(action string) (*Coordinator, *BlockDetector, *PauseLatch) {
	detector := NewBlockDetector(20, 2)
	latch := NewPauseLatch()
	cfg := config.BlockConfig{Enabled: true, Threshold: 2, WindowSize: 20, Action: action, AutoResume: 1}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCoordinator(detector, latch, cfg, false, logger)
	c.stderr = io.Discard
	c.interactive = false
	return c, detector, latch
}

func tripReports() []types.AttemptReport {
	return []types.AttemptReport{
		blockedReport("https://x.com/1", 403),
		blockedReport("https://y.com/1", 403),
	}
}

func runCoordinator(c *Coordinator, reports []types.AttemptReport) error {
	ch := make(chan types.AttemptReport)
	errs := make(chan error, 1)
	go func() { errs <- c.Run(ch) }()
	for _, rep := range reports {
		ch <- rep
	}
	close(ch)
	return <-errs
}

func TestCoordinatorWarnResumes(t *testing.T) {
	c, detector, latch := testCoordinator("warn")
	if err := runCoordinator(c, tripReports()); err != nil {
		t.Fatalf("warn action must not abort: %v", err)
	}
	if !latch.IsSet() {
		t.Error("latch must be re-set after warn")
	}
	if _, stats := detector.IsLikelyBlocked(); stats.BlockingFailures != 0 {
		t.Error("detector must be reset after handling a trip")
	}
}

func TestCoordinatorAbort(t *testing.T) {
	c, _, latch := testCoordinator("abort")
	err := runCoordinator(c, tripReports())
	if !errors.Is(err, types.ErrRunAborted) {
		t.Fatalf("err = %v, want ErrRunAborted", err)
	}
	if !latch.IsSet() {
		t.Error("latch must be re-set on exit so no worker is stranded")
	}
}

func TestCoordinatorPauseAutoResumesWhenNonInteractive(t *testing.T) {
	c, _, latch := testCoordinator("pause")
	if err := runCoordinator(c, tripReports()); err != nil {
		t.Fatalf("non-interactive pause must auto-resume: %v", err)
	}
	if !latch.IsSet() {
		t.Error("latch must be re-set after auto-resume")
	}
}

func TestCoordinatorPauseQuitAborts(t *testing.T) {
	c, _, _ := testCoordinator("pause")
	c.interactive = true
	c.stdin = strings.NewReader("q\n")
	err := runCoordinator(c, tripReports())
	if !errors.Is(err, types.ErrRunAborted) {
		t.Fatalf("err = %v, want ErrRunAborted on operator quit", err)
	}
}

func TestCoordinatorPromptUnrecognizedInputContinues(t *testing.T) {
	c, _, latch := testCoordinator("pause")
	c.interactive = true
	c.stdin = strings.NewReader("banana\n")
	if err := runCoordinator(c, tripReports()); err != nil {
		t.Fatalf("unrecognized input must continue: %v", err)
	}
	if !latch.IsSet() {
		t.Error("latch must be re-set after continue")
	}
}

func TestCoordinatorBelowThresholdStaysQuiet(t *testing.T) {
	c, _, latch := testCoordinator("abort")
	if err := runCoordinator(c, []types.AttemptReport{okReport("https://a.com"), blockedReport("https://x.com", 403)}); err != nil {
		t.Fatalf("no trip expected: %v", err)
	}
	if !latch.IsSet() {
		t.Error("latch untouched run should end set")
	}
}
