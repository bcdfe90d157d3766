package storage

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// CSVSink writes flattened records in the fixed column order. The header row
// is written once at creation; every record is flushed immediately.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	count  int
	logger *slog.Logger
}

// NewCSVSink creates a CSV sink. An empty path writes to stdout.
func NewCSVSink(path string, logger *slog.Logger) (*CSVSink, error) {
	s := &CSVSink{
		path:   path,
		logger: logger.With("component", "csv_sink"),
	}
	if path == "" {
		s.file = os.Stdout
	} else {
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
	}

	s.writer = csv.NewWriter(s.file)
	if err := s.writer.Write(types.ColumnOrder); err != nil {
		return nil, &types.WriterError{Sink: s.Name(), Err: err}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return nil, &types.WriterError{Sink: s.Name(), Err: err}
	}
	return s, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(result *types.Result) error {
	flat := result.Flatten()
	row := make([]string, len(types.ColumnOrder))
	for i, col := range types.ColumnOrder {
		row[i] = cellString(flat[col])
	}
	if err := s.writer.Write(row); err != nil {
		return &types.WriterError{Sink: s.Name(), Err: err}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &types.WriterError{Sink: s.Name(), Err: err}
	}
	s.count++
	return nil
}

func (s *CSVSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &types.WriterError{Sink: s.Name(), Err: err}
	}
	if s.path == "" {
		return nil
	}
	s.logger.Info("CSV written", "path", s.path, "records", s.count)
	return s.file.Close()
}

// cellString renders a flattened value for tabular text output. Booleans keep
// their true/false spelling.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
