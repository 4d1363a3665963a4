package update

import (
	"fmt"
	"strings"

	"github.com/klytics/mergekit/internal/detect"
	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
)

// asRecord normalizes a subtable payload to a field map, accepting both the
// engine's own Record type and plain JSON-decoded maps.
func asRecord(v any) (map[string]any, bool) {
	switch rec := v.(type) {
	case map[string]any:
		return rec, true
	case extract.Record:
		return rec, true
	}
	return nil, false
}

// updateKeyValue writes the input record into a fixed key-value block. Keys
// present on the sheet but absent from the input are left untouched; input
// fields with no matching key cell are logged as warnings.
func (e *Engine) updateKeyValue(run *runState, r *region, payload any) ([]*CellWriteError, error) {
	record, ok := asRecord(payload)
	if !ok {
		return nil, fmt.Errorf("key-value subtable expects an object, got %T", payload)
	}

	rowShift := run.rowShift(r.sheet, r.loc.Row)
	run.log.Info("key_value", r.loc.Addr(),
		fmt.Sprintf("updating subtable %q (%d fields)", r.st.Name, len(record)))

	var written map[string]bool
	var errs []*CellWriteError
	var err error
	if r.st.Orientation == mapping.OrientationHorizontal {
		written, errs, err = e.writeKVHorizontal(run, r, record, rowShift)
	} else {
		written, errs, err = e.writeKVVertical(run, r, record, rowShift)
	}
	if err != nil {
		return nil, err
	}

	for field := range record {
		if !written[field] {
			run.log.Warning("key_value", r.loc.Addr(),
				fmt.Sprintf("field %q has no matching key cell in subtable %q", field, r.st.Name))
		}
	}
	return errs, nil
}

func (e *Engine) writeKVVertical(run *runState, r *region, record map[string]any, rowShift int) (map[string]bool, []*CellWriteError, error) {
	keyCol := r.loc.Col + r.st.HeadersColOffset
	valCol := keyCol + r.st.DataColOff()
	startRow := r.loc.Row + r.st.HeadersRowOffset + rowShift

	lastRow, err := detect.LastDataRow(run.wb, r.sheet, startRow, []int{keyCol, valCol}, detect.LimitsFor(r.st))
	if err != nil {
		return nil, nil, err
	}

	written := make(map[string]bool)
	var errs []*CellWriteError
	for row := startRow; row <= lastRow; row++ {
		keyText, err := run.wb.CellValue(r.sheet, row, keyCol)
		if err != nil {
			return nil, nil, err
		}
		keyText = strings.TrimSpace(keyText)
		if keyText == "" {
			continue
		}

		field := e.fieldFor(keyText, r.st.ColumnMappings)
		value, ok := record[field.Name]
		if !ok {
			continue
		}
		if cwe := e.writeCell(run, r.sheet, row, valCol, field, value); cwe != nil {
			errs = append(errs, cwe)
		}
		written[field.Name] = true
	}
	return written, errs, nil
}

func (e *Engine) writeKVHorizontal(run *runState, r *region, record map[string]any, rowShift int) (map[string]bool, []*CellWriteError, error) {
	keyRow := r.loc.Row + r.st.HeadersRowOffset + rowShift
	startCol := r.loc.Col + r.st.HeadersColOffset
	valRow := keyRow + r.st.DataRowOff()

	headers, err := detect.TableHeaders(run.wb, r.sheet, keyRow, startCol, detect.LimitsFor(r.st))
	if err != nil {
		return nil, nil, err
	}

	written := make(map[string]bool)
	var errs []*CellWriteError
	for _, h := range headers {
		field := e.fieldFor(h.Text, r.st.ColumnMappings)
		value, ok := record[field.Name]
		if !ok {
			continue
		}
		if cwe := e.writeCell(run, r.sheet, valRow, h.Pos, field, value); cwe != nil {
			errs = append(errs, cwe)
		}
		written[field.Name] = true
	}
	return written, errs, nil
}

// fieldFor resolves a key cell's text to its canonical field, mirroring the
// extraction side so round trips address the same fields.
func (e *Engine) fieldFor(keyText string, mappings mapping.ColumnMappings) detect.Field {
	if cm, ok := mappings.Lookup(keyText); ok {
		return detect.Field{Source: keyText, Name: cm.Name, Type: cm.Type, Mapped: true}
	}
	name := keyText
	if e.cfg.GlobalSettings.NormalizeKeysEnabled() {
		name = detect.NormalizeKey(keyText)
	}
	return detect.Field{Source: keyText, Name: name, Type: mapping.TypeText}
}
