package crawler

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// AttemptQueue is the unbounded FIFO between workers and the coordinator.
// Unbounded on purpose: while the coordinator sits in the operator prompt it
// stops consuming, and a bounded channel would back-pressure workers that
// still need to drain through the pause latch.
type AttemptQueue struct {
	in  chan types.AttemptReport
	out chan types.AttemptReport
}

// NewAttemptQueue starts the pump goroutine.
func NewAttemptQueue() *AttemptQueue {
	q := &AttemptQueue{
		in:  make(chan types.AttemptReport),
		out: make(chan types.AttemptReport),
	}
	go q.pump()
	return q
}

func (q *AttemptQueue) pump() {
	var buffer []types.AttemptReport
	in := q.in
	for in != nil || len(buffer) > 0 {
		var out chan types.AttemptReport
		var head types.AttemptReport
		if len(buffer) > 0 {
			out = q.out
			head = buffer[0]
		}
		select {
		case rep, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buffer = append(buffer, rep)
		case out <- head:
			buffer = buffer[1:]
		}
	}
	close(q.out)
}

// Put enqueues an attempt report. Never blocks beyond the pump handoff.
func (q *AttemptQueue) Put(rep types.AttemptReport) {
	q.in <- rep
}

// Close signals end of input; Reports is closed once the buffer drains.
func (q *AttemptQueue) Close() {
	close(q.in)
}

// Reports is the consumer side of the queue.
func (q *AttemptQueue) Reports() <-chan types.AttemptReport {
	return q.out
}

// Coordinator is the single consumer of attempt reports. It feeds the block
// detector and, when the detector trips, pauses the fleet and executes the
// configured action.
type Coordinator struct {
	detector *BlockDetector
	latch    *PauseLatch
	cfg      config.BlockConfig
	quiet    bool
	logger   *slog.Logger

	// Injectable for tests.
	stdin       io.Reader
	stderr      io.Writer
	interactive bool
}

// NewCoordinator wires the coordinator to the detector and pause latch.
func NewCoordinator(detector *BlockDetector, latch *PauseLatch, cfg config.BlockConfig, quiet bool, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		detector:    detector,
		latch:       latch,
		cfg:         cfg,
		quiet:       quiet,
		logger:      logger.With("component", "coordinator"),
		stdin:       os.Stdin,
		stderr:      os.Stderr,
		interactive: stdinIsTerminal(),
	}
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Run consumes reports until the channel closes. Returns ErrRunAborted when
// the configured action is abort or the operator chooses to quit. The latch
// is always re-set on exit so no worker is left stranded.
func (c *Coordinator) Run(reports <-chan types.AttemptReport) error {
	defer c.latch.Set()
	// On an early (abort) return the queue pump must not be left blocked
	// mid-send; drain whatever is still buffered.
	defer func() {
		go func() {
			for range reports {
			}
		}()
	}()

	for rep := range reports {
		c.detector.RecordAttempt(rep)

		blocked, stats := c.detector.IsLikelyBlocked()
		if !blocked {
			continue
		}

		// Workers suspend at their next wait point.
		c.latch.Clear()
		c.report(stats)

		switch c.cfg.Action {
		case "abort":
			c.logger.Error("block detected, aborting run")
			return types.ErrRunAborted
		case "warn":
			c.latch.Set()
		default: // pause
			if !c.promptResume() {
				c.logger.Error("operator chose to quit after block detection")
				return types.ErrRunAborted
			}
			c.latch.Set()
		}

		c.detector.Reset()
	}
	return nil
}

func (c *Coordinator) report(stats BlockStats) {
	c.logger.Warn("likely IP block detected",
		"blocking_failures", stats.BlockingFailures,
		"window", stats.WindowLen,
		"threshold", stats.Threshold,
		"unique_domains", stats.UniqueDomains,
		"blocking_rate", fmt.Sprintf("%.2f", stats.BlockingRate),
		"affected_domains", strings.Join(stats.AffectedDomains, ", "),
		"retry_buffer", stats.RetryBufferSize,
	)
	fmt.Fprintf(c.stderr, "\nWARNING: likely IP block detected: %d blocking failures in last %d attempts (%.0f%%) across %d domains (%s)\n",
		stats.BlockingFailures, stats.WindowLen, stats.BlockingRate*100,
		stats.UniqueDomains, strings.Join(stats.AffectedDomains, ", "))
}

// promptResume asks the operator whether to continue. Non-interactive or
// quiet runs auto-resume immediately; otherwise the prompt waits up to the
// auto-resume timeout and defaults to continue. Returns false only on an
// explicit quit.
func (c *Coordinator) promptResume() bool {
	if !c.interactive || c.quiet {
		c.logger.Info("non-interactive session, auto-resuming")
		return true
	}

	fmt.Fprintf(c.stderr, "Crawl paused. [c]ontinue or [q]uit? ")

	answer := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(c.stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	if c.cfg.AutoResume > 0 {
		select {
		case a := <-answer:
			return a != "q"
		case <-time.After(time.Duration(c.cfg.AutoResume) * time.Second):
			fmt.Fprintln(c.stderr, "\nNo input, auto-resuming.")
			return true
		}
	}

	return <-answer != "q"
}
