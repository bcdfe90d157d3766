package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

const xlsxSheet = "Results"

// XLSXSink accumulates records in a workbook saved at Close. Boolean columns
// become native boolean cells, which keeps spreadsheet filters usable.
type XLSXSink struct {
	path   string
	book   *excelize.File
	row    int
	logger *slog.Logger
}

// NewXLSXSink creates an XLSX sink. A workbook cannot stream to stdout, so
// the path must name a file.
func NewXLSXSink(path string, logger *slog.Logger) (*XLSXSink, error) {
	if path == "" {
		return nil, types.ErrNotAFile
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", types.ErrNotAFile, path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	book := excelize.NewFile()
	book.SetSheetName(book.GetSheetName(0), xlsxSheet)

	for i, col := range types.ColumnOrder {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, &types.WriterError{Sink: "xlsx", Err: err}
		}
		if err := book.SetCellValue(xlsxSheet, cell, col); err != nil {
			return nil, &types.WriterError{Sink: "xlsx", Err: err}
		}
	}
	style, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(types.ColumnOrder), 1)
		_ = book.SetCellStyle(xlsxSheet, "A1", last, style)
	}

	return &XLSXSink{
		path:   path,
		book:   book,
		row:    1,
		logger: logger.With("component", "xlsx_sink"),
	}, nil
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Write(result *types.Result) error {
	s.row++
	flat := result.Flatten()
	for i, col := range types.ColumnOrder {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return &types.WriterError{Sink: s.Name(), Err: err}
		}
		if err := s.book.SetCellValue(xlsxSheet, cell, flat[col]); err != nil {
			return &types.WriterError{Sink: s.Name(), Err: err}
		}
	}
	return nil
}

func (s *XLSXSink) Close() error {
	if err := s.book.SaveAs(s.path); err != nil {
		return &types.WriterError{Sink: s.Name(), Err: err}
	}
	s.logger.Info("XLSX written", "path", s.path, "records", s.row-1)
	return s.book.Close()
}
