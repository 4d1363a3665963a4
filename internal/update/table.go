package update

import (
	"fmt"

	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

// asRecords normalizes a table payload to a slice of field maps.
func asRecords(v any) ([]map[string]any, bool) {
	switch rows := v.(type) {
	case []map[string]any:
		return rows, true
	case []extract.Record:
		out := make([]map[string]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, true
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, item := range rows {
			rec, ok := asRecord(item)
			if !ok {
				return nil, false
			}
			out = append(out, rec)
		}
		return out, true
	}
	return nil, false
}

// updateTable rewrites a table region in place. Growth beyond the detected
// extent follows the configured expansion behavior; shrinkage clears the
// leftover rows without shifting anything upward.
func (e *Engine) updateTable(run *runState, r *region, payload any) ([]*CellWriteError, error) {
	records, ok := asRecords(payload)
	if !ok {
		return nil, fmt.Errorf("table subtable expects an array of objects, got %T", payload)
	}

	rowShift := run.rowShift(r.sheet, r.loc.Row)
	dataStart := r.dataStart + rowShift
	dataEnd := r.dataEnd + rowShift
	oldCount := dataEnd - dataStart + 1
	if oldCount < 0 {
		oldCount = 0
	}

	run.log.Info("table", r.loc.Addr(),
		fmt.Sprintf("updating subtable %q: %d existing row(s), %d incoming", r.st.Name, oldCount, len(records)))

	if r.st.MaxExpansionRows > 0 && len(records) > oldCount+r.st.MaxExpansionRows {
		dropped := len(records) - oldCount - r.st.MaxExpansionRows
		records = records[:oldCount+r.st.MaxExpansionRows]
		run.log.Warning("table", r.loc.Addr(),
			fmt.Sprintf("subtable %q: dropped %d row(s) beyond max_expansion_rows", r.st.Name, dropped))
	}

	extra := len(records) - oldCount

	var preserved *PreservedBlock
	if extra > 0 {
		switch r.st.Behavior() {
		case mapping.ExpandError:
			// Abort this subtable only; the rest of the run continues.
			run.log.Error("table", r.loc.Addr(),
				fmt.Sprintf("subtable %q not updated: input has %d row(s) but the region holds %d and expansion is disallowed",
					r.st.Name, len(records), oldCount))
			return nil, nil
		case mapping.ExpandPreserveBelow:
			var err error
			preserved, err = CapturePreserved(run.wb, r.sheet, dataEnd+1)
			if err != nil {
				return nil, err
			}
			if err := preserved.Clear(run.wb); err != nil {
				return nil, err
			}
		}
	}

	errs, err := e.writeTableRows(run, r, records, dataStart, oldCount)
	if err != nil {
		return nil, err
	}

	// Only preserve_below moves content below the table; overwrite leaves it
	// in place and records no shift.
	if extra > 0 && preserved != nil {
		if err := preserved.Restore(run.wb, extra); err != nil {
			return nil, err
		}
		run.log.Info("shift", xlsx.Addr(dataEnd+1, r.loc.Col),
			fmt.Sprintf("moved content below subtable %q down by %d row(s)", r.st.Name, extra))
		run.addShift(r.sheet, r.dataEnd, extra)
	}

	if extra < 0 {
		if err := e.clearRows(run, r, dataStart+len(records), dataEnd); err != nil {
			return nil, err
		}
	}
	return errs, nil
}

// writeTableRows writes the incoming records top to bottom, copying the first
// data row's styles and height onto rows beyond the original extent.
func (e *Engine) writeTableRows(run *runState, r *region, records []map[string]any, dataStart, oldCount int) ([]*CellWriteError, error) {
	var errs []*CellWriteError

	for i, rec := range records {
		row := dataStart + i

		if i >= oldCount && r.st.CopyStyle() && oldCount > 0 {
			if err := e.copyRowFormat(run, r, dataStart, row); err != nil {
				return nil, err
			}
		}

		for _, f := range r.fields {
			value, ok := rec[f.Name]
			if !ok {
				continue
			}
			if cwe := e.writeCell(run, r.sheet, row, f.Pos, f, value); cwe != nil {
				errs = append(errs, cwe)
			}
		}
	}
	return errs, nil
}

// copyRowFormat copies the style of each mapped cell and the row height from
// the table's first data row onto a newly added row.
func (e *Engine) copyRowFormat(run *runState, r *region, fromRow, toRow int) error {
	for _, f := range r.fields {
		styleID, err := run.wb.StyleID(r.sheet, fromRow, f.Pos)
		if err != nil {
			return err
		}
		if styleID != 0 {
			if err := run.wb.SetStyleID(r.sheet, toRow, f.Pos, styleID); err != nil {
				return err
			}
		}
	}

	height, err := run.wb.RowHeight(r.sheet, fromRow)
	if err != nil {
		return err
	}
	if height > 0 {
		if err := run.wb.SetRowHeight(r.sheet, toRow, height); err != nil {
			return err
		}
	}
	return nil
}

// clearRows blanks the mapped cells of rows left over after a table shrank,
// keeping their styles.
func (e *Engine) clearRows(run *runState, r *region, fromRow, toRow int) error {
	for row := fromRow; row <= toRow; row++ {
		for _, f := range r.fields {
			before, _ := run.wb.CellValue(r.sheet, row, f.Pos)
			if err := run.wb.ClearCell(r.sheet, row, f.Pos); err != nil {
				return err
			}
			if before != "" {
				run.log.Success("clear", xlsx.Addr(row, f.Pos),
					fmt.Sprintf("subtable %q shrank", r.st.Name), before, "")
			}
		}
	}
	return nil
}
