package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/fetcher"
	"github.com/whitehat-seo/hubcrawl/internal/storage"
	"github.com/whitehat-seo/hubcrawl/internal/types"
	"github.com/whitehat-seo/hubcrawl/internal/urlutil"
)

// Crawler wires the worker pool, writer, coordinator, and checkpoint into a
// single run.
type Crawler struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	sink       storage.Sink
	failSink   storage.Sink // optional, mirrors failure records
	checkpoint *Checkpoint  // optional
	logger     *slog.Logger
	stderr     io.Writer
}

// New creates a crawler. failSink and checkpoint may be nil. The crawler
// takes ownership of the sinks and the checkpoint; Run closes them.
func New(cfg *config.Config, f fetcher.Fetcher, sink storage.Sink, failSink storage.Sink, checkpoint *Checkpoint, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:        cfg,
		fetcher:    f,
		sink:       sink,
		failSink:   failSink,
		checkpoint: checkpoint,
		logger:     logger.With("component", "crawler"),
		stderr:     os.Stderr,
	}
}

// sinkWriter is the single consumer of one result channel. Its error is
// visible to workers through the health check before every send.
type sinkWriter struct {
	sink storage.Sink
	ch   chan *types.Result
	err  atomic.Pointer[types.WriterError]
	done chan struct{}
}

func startWriter(sink storage.Sink, capacity int) *sinkWriter {
	w := &sinkWriter{
		sink: sink,
		ch:   make(chan *types.Result, capacity),
		done: make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for res := range w.ch {
			if w.err.Load() != nil {
				continue // drain so workers never stall on a dead consumer
			}
			if err := sink.Write(res); err != nil {
				w.fail(err)
			}
		}
		if err := sink.Close(); err != nil {
			w.fail(err)
		}
	}()
	return w
}

func (w *sinkWriter) fail(err error) {
	we, ok := err.(*types.WriterError)
	if !ok {
		we = &types.WriterError{Sink: w.sink.Name(), Err: err}
	}
	w.err.CompareAndSwap(nil, we)
}

// healthErr returns the writer's terminal error, if any.
func (w *sinkWriter) healthErr() error {
	if we := w.err.Load(); we != nil {
		return we
	}
	return nil
}

func (w *sinkWriter) put(ctx context.Context, res *types.Result) error {
	if err := w.healthErr(); err != nil {
		return err
	}
	select {
	case w.ch <- res:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *sinkWriter) close() {
	close(w.ch)
	<-w.done
}

// Run processes the input URLs and blocks until every record is written.
// Returns ErrRunAborted when the block policy terminates the run, or a
// WriterError when the output sink fails.
func (c *Crawler) Run(ctx context.Context, urls []string) error {
	if c.checkpoint != nil {
		defer c.checkpoint.Close()

		remaining := urls[:0:0]
		for _, u := range urls {
			if !c.checkpoint.Contains(u) {
				remaining = append(remaining, u)
			}
		}
		if skipped := len(urls) - len(remaining); skipped > 0 {
			c.logger.Info("resuming from checkpoint", "skipped", skipped, "remaining", len(remaining))
		}
		urls = remaining
	}
	if len(urls) == 0 {
		c.logger.Info("nothing to do, every input URL is already in the checkpoint")
		c.sink.Close()
		if c.failSink != nil {
			c.failSink.Close()
		}
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalMu  sync.Mutex
		fatalErr error
	)
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
			cancel()
		}
		fatalMu.Unlock()
	}

	concurrency := c.cfg.Crawl.Concurrency
	total := len(urls)
	progress := NewProgress(total)
	latch := NewPauseLatch()
	gates := NewDomainGates(c.cfg.Crawl.MaxPerDomain)

	writer := startWriter(c.sink, 2*concurrency)
	var failWriter *sinkWriter
	if c.failSink != nil {
		failWriter = startWriter(c.failSink, 2*concurrency)
	}

	// Block detection: attempt reports flow through an unbounded queue into
	// the coordinator, which owns the detector and the pause latch.
	var (
		queue    *AttemptQueue
		coordErr chan error
	)
	report := func(types.AttemptReport) {}
	if c.cfg.Block.Enabled {
		queue = NewAttemptQueue()
		report = queue.Put
		detector := NewBlockDetector(c.cfg.Block.WindowSize, c.cfg.Block.Threshold)
		coordinator := NewCoordinator(detector, latch, c.cfg.Block, c.cfg.Crawl.Quiet, c.logger)
		coordErr = make(chan error, 1)
		go func() {
			err := coordinator.Run(queue.Reports())
			if err != nil {
				setFatal(err)
			}
			coordErr <- err
		}()
	}

	driver := NewDriver(c.fetcher, gates, latch, c.cfg, report, c.logger)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if runCtx.Err() != nil {
				return
			}
			if err := c.processURL(runCtx, driver, writer, failWriter, progress, total, u); err != nil {
				setFatal(err)
			}
		}(u)
	}
	wg.Wait()

	// Unstick anything still parked on the latch before teardown.
	latch.Set()

	writer.close()
	if failWriter != nil {
		failWriter.close()
	}
	if queue != nil {
		queue.Close()
		<-coordErr
	}

	if !c.cfg.Crawl.Quiet {
		fmt.Fprintf(c.stderr, "\n%s\n", progress.FinalSummary())
	}

	fatalMu.Lock()
	defer fatalMu.Unlock()
	if fatalErr != nil {
		return fatalErr
	}
	return writer.healthErr()
}

// processURL runs one input URL through the driver, the variation fallback,
// the writer, and the checkpoint.
func (c *Crawler) processURL(ctx context.Context, driver *Driver, writer, failWriter *sinkWriter, progress *Progress, total int, u string) error {
	result, lastErr := driver.TryWithRetries(ctx, u, u)

	var variations []string
	if result == nil && c.cfg.Crawl.TryVariations {
		variations = urlutil.GenerateVariations(urlutil.Normalize(u), c.cfg.Crawl.MaxVariations)
		if len(variations) > 0 {
			c.logger.Info("original URL failed, trying variations", "url", u, "count", len(variations))
		}
		for _, v := range variations {
			if ctx.Err() != nil {
				break
			}
			r, e := driver.TryWithRetries(ctx, v, u)
			if r != nil {
				r.URLVariation = &types.URLVariation{OriginalURL: u, WorkingURL: v, VariationType: "auto"}
				c.logger.Info("variation succeeded", "url", u, "variation", v)
				result = r
				break
			}
			lastErr = e
		}
	}

	if result != nil {
		if err := writer.put(ctx, result); err != nil {
			return err
		}
		completed := progress.RecordSuccess(result)
		c.maybeReport(progress, completed, total)
		// The checkpoint records the input URL, not the variation that
		// happened to work.
		if c.checkpoint != nil {
			if err := c.checkpoint.Append(u); err != nil {
				c.logger.Error("checkpoint append failed", "url", u, "error", err)
			}
		}
		return nil
	}

	completed := progress.RecordFailure()
	c.maybeReport(progress, completed, total)

	attempted := append([]string{u}, variations...)
	msg := "Failed after all retry attempts"
	if len(variations) > 0 {
		msg = fmt.Sprintf("%s and %d URL variations", msg, len(variations))
	}
	var status *int
	if lastErr != nil && lastErr.StatusCode > 0 {
		status = &lastErr.StatusCode
	}
	failure := types.NewFailureResult(u, msg, c.cfg.Crawl.MaxRetries, attempted, status)
	c.logger.Warn("failed after all attempts", "url", u, "tried", len(attempted))

	if err := writer.put(ctx, failure); err != nil {
		return err
	}
	if failWriter != nil {
		if err := failWriter.put(ctx, failure); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) maybeReport(progress *Progress, completed, total int) {
	if c.cfg.Crawl.Quiet {
		return
	}
	interval := c.cfg.Crawl.ProgressInterval
	if interval < 1 {
		interval = 1
	}
	if completed%interval == 0 || completed == total {
		fmt.Fprintln(c.stderr, progress.Status(c.cfg.Crawl.ProgressStyle))
	}
}
