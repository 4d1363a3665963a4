// Package xlsx wraps excelize with the workbook operations the extraction and
// update engines need: coordinate-addressed cell access, formulas, merged
// ranges, row heights, styles and anchored pictures.
package xlsx

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook is an open spreadsheet. It is owned by a single operation; the
// engines never share one across goroutines.
type Workbook struct {
	f *excelize.File
}

// OpenFile opens an .xlsx file from disk.
func OpenFile(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s — check that the path is correct", path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid .xlsx file? %w", path, err)
	}
	return &Workbook{f: f}, nil
}

// OpenBytes opens an .xlsx file from a byte slice.
func OpenBytes(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	return &Workbook{f: f}, nil
}

// New creates an empty workbook with a single default sheet.
func New() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// Close releases the underlying file resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// SaveAs writes the workbook to the given path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

// Bytes serializes the workbook in memory.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Sheets returns the worksheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// HasSheet reports whether a worksheet exists.
func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// EnsureSheet creates the worksheet if missing, replacing any previous sheet
// of the same name.
func (w *Workbook) EnsureSheet(name string) error {
	if w.HasSheet(name) {
		if err := w.f.DeleteSheet(name); err != nil {
			return fmt.Errorf("could not replace sheet %q: %w", name, err)
		}
	}
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("could not create sheet %q: %w", name, err)
	}
	return nil
}

// Addr converts 1-based coordinates to an A1-style address.
func Addr(row, col int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// ParseAddr converts an A1-style address to 1-based (row, col) coordinates.
func ParseAddr(addr string) (row, col int, err error) {
	col, row, err = excelize.CellNameToCoordinates(addr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell address %q: %w", addr, err)
	}
	return row, col, nil
}

// ColumnNumber converts a column name like "C" to its 1-based index.
func ColumnNumber(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, fmt.Errorf("invalid column reference %q: %w", name, err)
	}
	return n, nil
}

// ColumnName converts a 1-based column index to its letter name.
func ColumnName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

// SerialToTime converts an Excel serial date number to a time.Time using the
// 1900 date system.
func SerialToTime(serial float64) (time.Time, error) {
	return excelize.ExcelDateToTime(serial, false)
}

// CellValue reads a cell's formatted value by 1-based coordinates. Missing
// cells read as the empty string.
func (w *Workbook) CellValue(sheet string, row, col int) (string, error) {
	v, err := w.f.GetCellValue(sheet, Addr(row, col))
	if err != nil {
		return "", fmt.Errorf("could not read cell %s!%s: %w", sheet, Addr(row, col), err)
	}
	return v, nil
}

// RawCellValue reads a cell's raw stored value, bypassing number formatting.
// Date-typed cells read as their Excel serial number.
func (w *Workbook) RawCellValue(sheet string, row, col int) (string, error) {
	v, err := w.f.GetCellValue(sheet, Addr(row, col), excelize.Options{RawCellValue: true})
	if err != nil {
		return "", fmt.Errorf("could not read cell %s!%s: %w", sheet, Addr(row, col), err)
	}
	return v, nil
}

// SetCell writes a value to a cell by 1-based coordinates.
func (w *Workbook) SetCell(sheet string, row, col int, value any) error {
	if err := w.f.SetCellValue(sheet, Addr(row, col), value); err != nil {
		return fmt.Errorf("could not set cell %s!%s: %w", sheet, Addr(row, col), err)
	}
	return nil
}

// Formula returns the formula string of a cell, or "" for plain values.
func (w *Workbook) Formula(sheet string, row, col int) (string, error) {
	formula, err := w.f.GetCellFormula(sheet, Addr(row, col))
	if err != nil {
		return "", fmt.Errorf("could not read formula at %s!%s: %w", sheet, Addr(row, col), err)
	}
	return formula, nil
}

// SetFormula writes a formula string to a cell.
func (w *Workbook) SetFormula(sheet string, row, col int, formula string) error {
	if err := w.f.SetCellFormula(sheet, Addr(row, col), formula); err != nil {
		return fmt.Errorf("could not set formula at %s!%s: %w", sheet, Addr(row, col), err)
	}
	return nil
}

// ClearCell removes a cell's value, keeping its style.
func (w *Workbook) ClearCell(sheet string, row, col int) error {
	return w.f.SetCellValue(sheet, Addr(row, col), nil)
}

// Dimensions returns the populated extent of a sheet as (maxRow, maxCol).
// An empty sheet reports (0, 0).
func (w *Workbook) Dimensions(sheet string) (int, int, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}
	maxCol := 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	return len(rows), maxCol, nil
}

// RowHeight returns the explicit height of a row, or 0 when unset.
func (w *Workbook) RowHeight(sheet string, row int) (float64, error) {
	h, err := w.f.GetRowHeight(sheet, row)
	if err != nil {
		return 0, fmt.Errorf("could not read row %d height: %w", row, err)
	}
	return h, nil
}

// SetRowHeight sets the height of a row in points.
func (w *Workbook) SetRowHeight(sheet string, row int, height float64) error {
	if err := w.f.SetRowHeight(sheet, row, height); err != nil {
		return fmt.Errorf("could not set row %d height: %w", row, err)
	}
	return nil
}

// StyleID returns the style identifier applied to a cell.
func (w *Workbook) StyleID(sheet string, row, col int) (int, error) {
	id, err := w.f.GetCellStyle(sheet, Addr(row, col))
	if err != nil {
		return 0, fmt.Errorf("could not read style at %s!%s: %w", sheet, Addr(row, col), err)
	}
	return id, nil
}

// SetStyleID applies a style identifier to a single cell.
func (w *Workbook) SetStyleID(sheet string, row, col, styleID int) error {
	addr := Addr(row, col)
	if err := w.f.SetCellStyle(sheet, addr, addr, styleID); err != nil {
		return fmt.Errorf("could not apply style at %s!%s: %w", sheet, addr, err)
	}
	return nil
}
