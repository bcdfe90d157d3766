package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// JSONLSink writes records as newline-delimited JSON, flushed per record so
// a killed run loses at most the record in flight.
type JSONLSink struct {
	path   string
	file   *os.File
	pretty bool
	count  int
	logger *slog.Logger
}

// NewJSONLSink creates a JSONL sink. An empty path writes to stdout.
func NewJSONLSink(path string, pretty bool, logger *slog.Logger) (*JSONLSink, error) {
	s := &JSONLSink{
		path:   path,
		pretty: pretty,
		logger: logger.With("component", "jsonl_sink"),
	}
	if path == "" {
		s.file = os.Stdout
		return s, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	s.file = f
	return s, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Write(result *types.Result) error {
	var (
		data []byte
		err  error
	)
	if s.pretty {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return &types.WriterError{Sink: s.Name(), Err: err}
	}
	// Unbuffered file writes: each record reaches the OS immediately, so a
	// killed run loses at most the record in flight.
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return &types.WriterError{Sink: s.Name(), Err: err}
	}
	s.count++
	return nil
}

func (s *JSONLSink) Close() error {
	if s.path == "" {
		return nil
	}
	s.logger.Info("JSONL written", "path", s.path, "records", s.count)
	return s.file.Close()
}
