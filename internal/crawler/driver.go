package crawler

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/detector"
	"github.com/whitehat-seo/hubcrawl/internal/fetcher"
	"github.com/whitehat-seo/hubcrawl/internal/parser"
	"github.com/whitehat-seo/hubcrawl/internal/types"
	"github.com/whitehat-seo/hubcrawl/internal/urlutil"
)

// rateLimitPenalty is slept after a 429 before giving up on the URL.
// Deliberately not cancellable: the penalty is a politeness property.
const rateLimitPenalty = 120 * time.Second

// Driver runs the per-URL attempt loop: pause wait, pacing, domain gate,
// fetch, classification, backoff.
type Driver struct {
	fetcher fetcher.Fetcher
	gates   *DomainGates
	latch   *PauseLatch
	cfg     *config.Config
	logger  *slog.Logger
	report  func(types.AttemptReport)

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewDriver wires the attempt loop. report receives one attempt report per
// fetch attempt; pass a no-op when block detection is disabled.
func NewDriver(f fetcher.Fetcher, gates *DomainGates, latch *PauseLatch, cfg *config.Config, report func(types.AttemptReport), logger *slog.Logger) *Driver {
	if report == nil {
		report = func(types.AttemptReport) {}
	}
	return &Driver{
		fetcher: f,
		gates:   gates,
		latch:   latch,
		cfg:     cfg,
		logger:  logger.With("component", "driver"),
		report:  report,
		sleep:   time.Sleep,
	}
}

// pace sleeps the configured delay with uniform jitter, clamped at zero.
func (d *Driver) pace() {
	delay := d.cfg.Crawl.Delay
	if delay <= 0 {
		return
	}
	jitter := d.cfg.Crawl.Jitter
	actual := delay + time.Duration((rand.Float64()*2-1)*float64(jitter))
	if actual < 0 {
		actual = 0
	}
	d.sleep(actual)
}

// backoff returns the transient-retry sleep for a zero-based attempt index:
// 5s, 15s, 45s.
func backoff(attempt int) time.Duration {
	return time.Duration(5*math.Pow(3, float64(attempt))) * time.Second
}

// TryWithRetries attempts one candidate URL up to maxRetries times. Returns
// the detection result on success; on exhaustion it returns nil with the
// last classified failure.
func (d *Driver) TryWithRetries(ctx context.Context, urlToTry, originalURL string) (*types.Result, *types.FetchError) {
	fetchURL := urlutil.Normalize(urlToTry)
	host := urlutil.Host(fetchURL)
	maxRetries := d.cfg.Crawl.MaxRetries

	var lastErr *types.FetchError
	for attempt := 0; attempt < maxRetries; attempt++ {
		if !d.latch.Wait(ctx) {
			// The latch stays the coordinator's to mutate.
			d.logger.Warn("pause wait timed out, proceeding", "url", fetchURL)
		}
		if ctx.Err() != nil {
			return nil, &types.FetchError{URL: fetchURL, Kind: types.KindFatal, Err: ctx.Err()}
		}

		d.pace()

		release, err := d.gates.Acquire(ctx, host)
		if err != nil {
			return nil, &types.FetchError{URL: fetchURL, Kind: types.KindFatal, Err: err}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.Fetcher.AttemptTimeout)
		page, fetchErr := d.fetcher.Fetch(attemptCtx, fetchURL)
		cancel()
		release()

		if fetchErr == nil {
			if fe := d.classifyPage(fetchURL, page); fe != nil {
				fetchErr = fe
			} else {
				d.report(types.AttemptReport{URL: fetchURL, Success: true, StatusCode: page.StatusCode})
				return d.buildResult(originalURL, page), nil
			}
		}

		var fe *types.FetchError
		if e, ok := fetchErr.(*types.FetchError); ok {
			fe = e
		} else {
			fe = &types.FetchError{URL: fetchURL, Kind: types.KindFatal, Err: fetchErr}
		}
		lastErr = fe
		d.report(types.AttemptReport{URL: fetchURL, StatusCode: fe.StatusCode, ErrorKind: fe.Kind})

		switch fe.Kind {
		case types.KindRateLimited:
			d.logger.Warn("rate limited, backing off and skipping retries", "url", fetchURL, "penalty", rateLimitPenalty)
			d.sleep(rateLimitPenalty)
			return nil, fe
		case types.KindBlocked:
			d.logger.Warn("forbidden, likely blocked, skipping retries", "url", fetchURL)
			return nil, fe
		}

		if fe.IsRetryable() && attempt < maxRetries-1 {
			wait := backoff(attempt)
			d.logger.Info("transient failure, retrying",
				"url", fetchURL, "attempt", attempt+1, "max", maxRetries, "backoff", wait, "error", fe.Err)
			d.sleep(wait)
			continue
		}
		return nil, fe
	}
	return nil, lastErr
}

// classifyPage turns 403, 429 and 5xx responses into failures. Other error
// statuses still yield detection results: a 404 body is scanned like any
// other, with finalUrl pinned to the input.
func (d *Driver) classifyPage(url string, page *types.Page) *types.FetchError {
	switch {
	case page.StatusCode == 429, page.StatusCode == 403, page.StatusCode >= 500:
		return fetcher.ClassifyStatus(url, page.StatusCode)
	default:
		return nil
	}
}

// buildResult runs the detection engine over the fetched page.
func (d *Driver) buildResult(originalURL string, page *types.Page) *types.Result {
	body := string(page.Body)

	evidence := detector.DetectHTML(body)

	resourceURLs := parser.ExtractResourceURLs(body, page.FinalURL)
	resourceURLs = append(resourceURLs, page.NetworkURLs...)
	evidence = append(evidence, detector.DetectNetwork(resourceURLs)...)
	evidence = append(evidence, detector.DetectHeaderCookies(page.SetCookies)...)
	evidence = detector.Dedupe(evidence)

	meta := parser.ExtractPageMetadata(body)

	status := page.StatusCode
	finalURL := page.FinalURL
	if status >= 400 {
		// An error page is not a canonical landing page.
		finalURL = originalURL
	}
	return detector.MakeResult(originalURL, finalURL, evidence, page.Headers, &status, meta)
}
