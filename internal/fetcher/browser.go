package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod. It
// renders the page and records every network request the browser issues,
// which catches trackers injected after load by tag managers. On render
// failure it falls back to the static fetcher so a broken browser never
// costs a URL.
type BrowserFetcher struct {
	browser *rod.Browser
	static  *HTTPFetcher
	cfg     *config.FetcherConfig
	logger  *slog.Logger
}

// NewBrowserFetcher launches a headless Chromium and connects to it.
// Concurrent tab count is bounded by the caller's worker pool.
func NewBrowserFetcher(cfg *config.FetcherConfig, static *HTTPFetcher, logger *slog.Logger) (*BrowserFetcher, error) {
	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		static:  static,
		cfg:     cfg,
		logger:  logger.With("component", "browser_fetcher"),
	}

	bf.logger.Info("browser fetcher ready")
	return bf, nil
}

// Fetch renders the URL and returns the post-JavaScript DOM along with the
// network request URLs observed during the load. Falls back to a static
// fetch when the render fails.
func (bf *BrowserFetcher) Fetch(ctx context.Context, url string) (*types.Page, error) {
	page, err := bf.render(ctx, url)
	if err != nil {
		bf.logger.Warn("render failed, falling back to static fetch", "url", url, "error", err)
		return bf.static.Fetch(ctx, url)
	}
	return page, nil
}

func (bf *BrowserFetcher) render(ctx context.Context, url string) (*types.Page, error) {
	start := time.Now()

	page, err := stealth.Page(bf.browser)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRenderFailed, err)
	}
	defer page.Close()

	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	page = page.Context(renderCtx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.cfg.UserAgent}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}

	// Record every request the page issues; tag-manager-injected scripts
	// show up here even when they never appear in the DOM.
	var (
		netMu       sync.Mutex
		networkURLs []string
		statusCode  int
		respHeaders = map[string]string{}
		setCookies  []string
		mainFrame   proto.NetworkRequestID
	)
	go page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			netMu.Lock()
			defer netMu.Unlock()
			networkURLs = append(networkURLs, e.Request.URL)
			if e.Type == proto.NetworkResourceTypeDocument && mainFrame == "" {
				mainFrame = e.RequestID
			}
		},
		func(e *proto.NetworkResponseReceived) {
			netMu.Lock()
			defer netMu.Unlock()
			if e.RequestID != mainFrame {
				return
			}
			statusCode = e.Response.Status
			for key, val := range e.Response.Headers {
				s := val.Str()
				respHeaders[key] = s
				if strings.EqualFold(key, "set-cookie") {
					setCookies = append(setCookies, s)
				}
			}
		},
	)()

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		bf.logger.Warn("network capture unavailable", "error", err)
	}

	if err := page.Timeout(bf.cfg.RequestTimeout).Navigate(url); err != nil {
		return nil, fmt.Errorf("%w: navigate: %v", types.ErrRenderFailed, err)
	}
	if err := page.Timeout(bf.cfg.RequestTimeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", url, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: read DOM: %v", types.ErrRenderFailed, err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	netMu.Lock()
	urls := append([]string(nil), networkURLs...)
	status := statusCode
	headers := make(map[string]string, len(respHeaders))
	for k, v := range respHeaders {
		headers[k] = v
	}
	cookies := append([]string(nil), setCookies...)
	netMu.Unlock()

	if status == 0 {
		status = 200
	}

	bf.logger.Debug("render complete",
		"url", url,
		"final_url", finalURL,
		"status", status,
		"network_requests", len(urls),
		"duration", time.Since(start),
	)

	return &types.Page{
		Body:        []byte(html),
		Headers:     headers,
		SetCookies:  cookies,
		StatusCode:  status,
		FinalURL:    finalURL,
		NetworkURLs: urls,
	}, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}
