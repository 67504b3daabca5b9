package xlsx

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var errNoSheet = errors.New("no active sheet")

// Writer fills a workbook sheet by sheet, row by row.
type Writer struct {
	file  *excelize.File
	sheet string
	row   int
}

func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet starts a new sheet. The first call renames the default one.
func (w *Writer) AddSheet(name string) error {
	if len(name) > 31 {
		name = name[:31]
	}
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold row and freezes it.
func (w *Writer) WriteHeader(columns []string) error {
	if w.sheet == "" {
		return errNoSheet
	}
	vals := make([]any, len(columns))
	for i, c := range columns {
		vals[i] = c
	}
	if err := w.writeRow(vals); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		first, _ := excelize.CoordinatesToCellName(1, w.row)
		last, _ := excelize.CoordinatesToCellName(len(columns), w.row)
		_ = w.file.SetCellStyle(w.sheet, first, last, style)
	}
	_ = w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	w.row++
	return nil
}

func (w *Writer) WriteRow(values []any) error {
	if w.sheet == "" {
		return errNoSheet
	}
	if err := w.writeRow(values); err != nil {
		return err
	}
	w.row++
	return nil
}

func (w *Writer) writeRow(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.file.SetSheetRow(w.sheet, cell, &values)
}

// SetColumnWidths sets widths from column A onward.
func (w *Writer) SetColumnWidths(widths ...float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(w.sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Save(out io.Writer) error {
	return w.file.Write(out)
}

func (w *Writer) Close() error {
	return w.file.Close()
}
