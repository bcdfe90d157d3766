package crawler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/storage"
	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// memSink collects written records in memory.
type memSink struct {
	mu      sync.Mutex
	results []*types.Result
	closed  bool
}

func (s *memSink) Name() string { return "mem" }

func (s *memSink) Write(result *types.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) records() []*types.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.Result(nil), s.results...)
}

func testCrawlerConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Crawl.Concurrency = 4
	cfg.Crawl.Delay = 0
	cfg.Crawl.Jitter = 0
	cfg.Crawl.MaxRetries = 1
	cfg.Crawl.Quiet = true
	cfg.Block.Enabled = false
	return cfg
}

func newTestCrawler(cfg *config.Config, f *fakeFetcher, sink storage.Sink, failSink storage.Sink, cp *Checkpoint) *Crawler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(cfg, f, sink, failSink, cp, logger)
	c.stderr = io.Discard
	return c
}

func TestRunWritesOneRecordPerURL(t *testing.T) {
	f := newFakeFetcher(func(url string, attempt int) (*types.Page, error) {
		if url == "https://fails.example" {
			return nil, &types.FetchError{URL: url, Kind: types.KindFatal, Err: io.EOF}
		}
		return okPage(url, loaderHTML), nil
	})
	sink := &memSink{}
	c := newTestCrawler(testCrawlerConfig(), f, sink, nil, nil)

	urls := []string{"https://a.example", "https://b.example", "https://fails.example"}
	if err := c.Run(context.Background(), urls); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := sink.records()
	if len(records) != len(urls) {
		t.Fatalf("wrote %d records, want one per URL (%d)", len(records), len(urls))
	}
	failures := 0
	for _, r := range records {
		if r.IsFailure() {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failure records = %d, want 1", failures)
	}
	if !sink.closed {
		t.Error("sink must be closed after the run")
	}
}

func TestRunFailureRecordShape(t *testing.T) {
	f := newFakeFetcher(func(url string, attempt int) (*types.Page, error) {
		return statusPage(url, 403), nil
	})
	sink := &memSink{}
	failSink := &memSink{}
	c := newTestCrawler(testCrawlerConfig(), f, sink, failSink, nil)

	if err := c.Run(context.Background(), []string{"https://blocked.example"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := sink.records()
	if len(records) != 1 || !records[0].IsFailure() {
		t.Fatalf("records = %+v", records)
	}
	rec := records[0]
	if rec.HTTPStatus == nil || *rec.HTTPStatus != 403 {
		t.Errorf("httpStatus = %v, want 403", rec.HTTPStatus)
	}
	if rec.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", rec.Attempts)
	}
	if len(rec.AttemptedURLs) != 1 || rec.AttemptedURLs[0] != "https://blocked.example" {
		t.Errorf("attemptedUrls = %v", rec.AttemptedURLs)
	}
	if rec.FinalURL != rec.OriginalURL {
		t.Errorf("failure finalUrl = %q, want originalUrl", rec.FinalURL)
	}
	if got := failSink.records(); len(got) != 1 {
		t.Errorf("failure sink got %d records, want mirrored copy", len(got))
	}
}

func TestRunVariationFallback(t *testing.T) {
	f := newFakeFetcher(func(url string, attempt int) (*types.Page, error) {
		if url == "https://www.example.com" {
			return okPage(url, loaderHTML), nil
		}
		return nil, &types.FetchError{URL: url, Kind: types.KindFatal, Err: io.EOF}
	})
	sink := &memSink{}
	cfg := testCrawlerConfig()
	cfg.Crawl.TryVariations = true
	cfg.Crawl.MaxVariations = 4
	cpPath := filepath.Join(t.TempDir(), "checkpoint.txt")
	cp, err := OpenCheckpoint(cpPath)
	if err != nil {
		t.Fatal(err)
	}
	c := newTestCrawler(cfg, f, sink, nil, cp)

	if err := c.Run(context.Background(), []string{"https://example.com"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := sink.records()
	if len(records) != 1 || records[0].IsFailure() {
		t.Fatalf("records = %+v", records)
	}
	rec := records[0]
	if rec.OriginalURL != "https://example.com" {
		t.Errorf("originalUrl = %q, want the input URL", rec.OriginalURL)
	}
	if rec.URLVariation == nil {
		t.Fatal("variation success must carry url_variation metadata")
	}
	if rec.URLVariation.WorkingURL != "https://www.example.com" {
		t.Errorf("workingUrl = %q", rec.URLVariation.WorkingURL)
	}
	if rec.URLVariation.VariationType != "auto" {
		t.Errorf("variationType = %q", rec.URLVariation.VariationType)
	}

	// The checkpoint records the input URL, not the variation.
	cp2, err := OpenCheckpoint(cpPath)
	if err != nil {
		t.Fatal(err)
	}
	defer cp2.Close()
	if !cp2.Contains("https://example.com") {
		t.Error("checkpoint missing the original URL")
	}
	if cp2.Contains("https://www.example.com") {
		t.Error("checkpoint must not record the variation URL")
	}
}

func TestRunCheckpointResumeSkipsCompleted(t *testing.T) {
	cpPath := filepath.Join(t.TempDir(), "checkpoint.txt")

	handler := func(url string, attempt int) (*types.Page, error) {
		return okPage(url, "<html></html>"), nil
	}

	f1 := newFakeFetcher(handler)
	sink1 := &memSink{}
	cp1, _ := OpenCheckpoint(cpPath)
	c1 := newTestCrawler(testCrawlerConfig(), f1, sink1, nil, cp1)
	urls := []string{"https://a.example", "https://b.example"}
	if err := c1.Run(context.Background(), urls); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second run over the same input performs zero fetches.
	f2 := newFakeFetcher(handler)
	sink2 := &memSink{}
	cp2, _ := OpenCheckpoint(cpPath)
	c2 := newTestCrawler(testCrawlerConfig(), f2, sink2, nil, cp2)
	if err := c2.Run(context.Background(), urls); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if f2.totalCalls() != 0 {
		t.Errorf("resume performed %d fetches, want 0", f2.totalCalls())
	}
	if len(sink2.records()) != 0 {
		t.Errorf("resume wrote %d records, want 0", len(sink2.records()))
	}
}

func TestRunBlockAbortPropagates(t *testing.T) {
	f := newFakeFetcher(func(url string, attempt int) (*types.Page, error) {
		return statusPage(url, 403), nil
	})
	sink := &memSink{}
	cfg := testCrawlerConfig()
	cfg.Crawl.Concurrency = 1
	cfg.Block.Enabled = true
	cfg.Block.Threshold = 2
	cfg.Block.WindowSize = 10
	cfg.Block.Action = "abort"
	c := newTestCrawler(cfg, f, sink, nil, nil)

	urls := []string{
		"https://x1.example", "https://x2.example", "https://x3.example",
		"https://x4.example", "https://x5.example", "https://x6.example",
	}
	err := c.Run(context.Background(), urls)
	if err == nil {
		t.Fatal("expected abort error")
	}
}
