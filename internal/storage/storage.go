package storage

import (
	"fmt"
	"log/slog"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// Sink is the interface for all output containers. A sink is driven by a
// single consumer goroutine, so implementations do not need to be safe for
// concurrent use.
type Sink interface {
	// Write persists one detection record.
	Write(result *types.Result) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the sink identifier.
	Name() string
}

// NewSink builds the sink for the configured output format. An empty path
// sends JSONL and CSV output to stdout; XLSX requires a file path.
func NewSink(format, path string, pretty bool, logger *slog.Logger) (Sink, error) {
	switch format {
	case "jsonl":
		return NewJSONLSink(path, pretty, logger)
	case "csv":
		return NewCSVSink(path, logger)
	case "xlsx":
		return NewXLSXSink(path, logger)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
