package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// Fetcher retrieves a single page. Implementations must be safe for
// concurrent use by multiple workers.
type Fetcher interface {
	// Fetch performs a GET and returns the page. Responses with an HTTP
	// error status are returned as pages, not errors; callers classify
	// the status with ClassifyStatus. A non-nil error means no usable
	// response was obtained.
	Fetch(ctx context.Context, url string) (*types.Page, error)

	// Close releases client resources.
	Close() error
}

// ClassifyStatus maps an HTTP error status to a FetchError for the retry
// driver. Returns nil for statuses below 400.
//
// 429 and 403 are deliberately not retryable: hammering a server that is
// rate limiting or denying us only makes the block worse.
func ClassifyStatus(url string, status int) *types.FetchError {
	var kind types.ErrorKind
	switch {
	case status < 400:
		return nil
	case status == 429:
		kind = types.KindRateLimited
	case status == 403:
		kind = types.KindBlocked
	case status >= 500:
		kind = types.KindTransient
	default:
		kind = types.KindFatal
	}
	return &types.FetchError{
		URL:        url,
		StatusCode: status,
		Kind:       kind,
		Err:        fmt.Errorf("HTTP %d %s", status, http.StatusText(status)),
	}
}
