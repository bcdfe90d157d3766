package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrNoInput       = errors.New("no input URLs provided")
	ErrWriterClosed  = errors.New("writer has terminated")
	ErrRunAborted    = errors.New("run aborted by block detection policy")
	ErrNotAFile      = errors.New("spreadsheet output requires a file path")
	ErrRenderFailed  = errors.New("headless render failed")
	ErrEmptyResponse = errors.New("empty response body")
)

// ErrorKind classifies fetch failures for the retry driver and the block
// detector. Explicit tags replace substring matching on error messages.
type ErrorKind string

const (
	KindTransient   ErrorKind = "transient"    // timeout, DNS, connect, 5xx
	KindRateLimited ErrorKind = "rate_limited" // HTTP 429
	KindBlocked     ErrorKind = "blocked"      // HTTP 403
	KindConnReset   ErrorKind = "connection_reset"
	KindTLS         ErrorKind = "tls"
	KindFatal       ErrorKind = "fatal" // everything else, not retried
)

// FetchError wraps errors that occur while fetching a URL.
type FetchError struct {
	URL        string
	StatusCode int
	Kind       ErrorKind
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d, %s): %v", e.URL, e.StatusCode, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch error for %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsRetryable reports whether the retry driver may attempt the URL again.
// Rate limits and blocks are deliberately not retried (politeness).
func (e *FetchError) IsRetryable() bool {
	return e.Kind == KindTransient || e.Kind == KindConnReset
}

// IsBlockingShape reports whether the failure looks like active denial
// rather than incidental error. Feeds the block detector.
func (e *FetchError) IsBlockingShape() bool {
	switch e.Kind {
	case KindRateLimited, KindBlocked, KindConnReset, KindTLS:
		return true
	}
	return false
}

// WriterError wraps a failure of the output sink. Fatal for the run.
type WriterError struct {
	Sink string
	Err  error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("writer error (%s): %v", e.Sink, e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }
