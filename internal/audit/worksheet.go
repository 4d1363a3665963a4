package audit

import (
	"time"

	"github.com/klytics/mergekit/internal/xlsx"
)

// LogSheetName is the diagnostic worksheet written into updated workbooks.
const LogSheetName = "update_log"

var logHeaders = []string{
	"Timestamp", "Operation", "Cell/Range", "Status", "Details",
	"Original Value", "New Value",
}

// WriteWorksheet replaces the update_log worksheet with the log's entries,
// one row per entry under a fixed header row.
func (l *Log) WriteWorksheet(wb *xlsx.Workbook) error {
	if err := wb.EnsureSheet(LogSheetName); err != nil {
		return err
	}

	for col, h := range logHeaders {
		if err := wb.SetCell(LogSheetName, 1, col+1, h); err != nil {
			return err
		}
	}

	for i, e := range l.entries {
		row := i + 2
		cells := []any{
			e.Timestamp.Format(time.RFC3339),
			e.Operation,
			e.Cell,
			e.Status,
			e.Details,
			e.Before,
			e.After,
		}
		for col, v := range cells {
			if err := wb.SetCell(LogSheetName, row, col+1, v); err != nil {
				return err
			}
		}
	}
	return nil
}
