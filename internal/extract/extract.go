// Package extract reads configured subtables out of a workbook and produces
// the canonical data document used for reporting, template merges and later
// round-trip updates.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klytics/mergekit/internal/detect"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

// Record is one extracted row (or one key-value block) keyed by canonical
// field name.
type Record map[string]any

// Image is extracted binary image content referenced from a Record by key.
type Image struct {
	Data      []byte
	Extension string
}

// Result is the output of one extraction run. Data maps sheet name to
// subtable name to either a Record (key-value blocks) or a []Record (tables).
// Images carries binary content out of band, keyed "subtable.field" for
// key-value blocks and "subtable.field.N" (1-based row) for tables.
type Result struct {
	Data     map[string]map[string]any `json:"data"`
	Images   map[string]Image          `json:"-"`
	Warnings []string                  `json:"warnings,omitempty"`

	picCache map[string][]xlsx.Picture
}

// Engine extracts data from workbooks according to a single configuration.
type Engine struct {
	cfg     *mapping.Config
	coercer detect.Coercer
}

// New builds an extraction engine for the given configuration.
func New(cfg *mapping.Config) *Engine {
	return &Engine{
		cfg:     cfg,
		coercer: detect.Coercer{DateLayout: cfg.GlobalSettings.OutputFormatting.DateLayout()},
	}
}

// Run extracts every configured subtable from the workbook. In strict mode
// any missing subtable, failed boundary or missing required field aborts the
// run with a *mapping.ValidationError listing all problems; otherwise
// problems become warnings and the affected subtables are omitted.
func (e *Engine) Run(wb *xlsx.Workbook) (*Result, error) {
	res := &Result{
		Data:   make(map[string]map[string]any),
		Images: make(map[string]Image),
	}
	var problems []string

	for _, sheet := range e.cfg.Sheets {
		if !wb.HasSheet(sheet.Name) {
			problems = append(problems, fmt.Sprintf("sheet %q not found in workbook", sheet.Name))
			continue
		}

		sheetData := make(map[string]any)
		for _, st := range sheet.Subtables {
			value, err := e.extractSubtable(wb, sheet.Name, st, res)
			if err != nil {
				var nf *detect.NotFoundError
				if errors.As(err, &nf) {
					problems = append(problems,
						fmt.Sprintf("sheet %q subtable %q: %v", sheet.Name, st.Name, err))
					continue
				}
				return nil, fmt.Errorf("sheet %q subtable %q: %w", sheet.Name, st.Name, err)
			}
			sheetData[st.Name] = value
		}
		if len(sheetData) > 0 {
			res.Data[sheet.Name] = sheetData
		}
	}

	problems = append(problems, e.checkRequired(res)...)

	if len(problems) > 0 {
		if e.cfg.GlobalSettings.Validation.StrictMode {
			return nil, &mapping.ValidationError{Problems: problems}
		}
		res.Warnings = append(res.Warnings, problems...)
	}
	return res, nil
}

func (e *Engine) extractSubtable(wb *xlsx.Workbook, sheet string, st mapping.Subtable, res *Result) (any, error) {
	loc, err := detect.Resolve(wb, sheet, st.HeaderSearch)
	if err != nil {
		return nil, err
	}

	switch st.Kind {
	case mapping.KindKeyValuePairs:
		if st.Orientation == mapping.OrientationHorizontal {
			return e.extractKVHorizontal(wb, sheet, st, loc, res)
		}
		return e.extractKVVertical(wb, sheet, st, loc, res)
	case mapping.KindTable:
		return e.extractTable(wb, sheet, st, loc, res)
	default:
		return nil, fmt.Errorf("unsupported subtable kind %q", st.Kind)
	}
}

// extractKVVertical reads a block of stacked key rows: key text in the anchor
// column, value in the column data_col_offset to the right.
func (e *Engine) extractKVVertical(wb *xlsx.Workbook, sheet string, st mapping.Subtable, loc detect.Location, res *Result) (Record, error) {
	keyCol := loc.Col + st.HeadersColOffset
	valCol := keyCol + st.DataColOff()
	startRow := loc.Row + st.HeadersRowOffset

	lastRow, err := detect.LastDataRow(wb, sheet, startRow, []int{keyCol, valCol}, detect.LimitsFor(st))
	if err != nil {
		return nil, err
	}

	rec := make(Record)
	for row := startRow; row <= lastRow; row++ {
		keyText, err := wb.CellValue(sheet, row, keyCol)
		if err != nil {
			return nil, err
		}
		keyText = strings.TrimSpace(keyText)
		if keyText == "" {
			continue
		}

		field := e.fieldFor(keyText, st.ColumnMappings)
		if field.Type == mapping.TypeImage {
			e.attachImage(wb, sheet, st.Name, field.Name, row, valCol, "", rec, res)
			continue
		}

		value, err := e.cellValue(wb, sheet, row, valCol, field.Type)
		if err != nil {
			return nil, err
		}
		rec[field.Name] = value
	}
	return rec, nil
}

// extractKVHorizontal reads keys laid out across a row with values in the row
// data_row_offset below each key.
func (e *Engine) extractKVHorizontal(wb *xlsx.Workbook, sheet string, st mapping.Subtable, loc detect.Location, res *Result) (Record, error) {
	keyRow := loc.Row + st.HeadersRowOffset
	startCol := loc.Col + st.HeadersColOffset
	valRow := keyRow + st.DataRowOff()

	headers, err := detect.TableHeaders(wb, sheet, keyRow, startCol, detect.LimitsFor(st))
	if err != nil {
		return nil, err
	}

	rec := make(Record)
	for _, h := range headers {
		field := e.fieldFor(h.Text, st.ColumnMappings)
		if field.Type == mapping.TypeImage {
			e.attachImage(wb, sheet, st.Name, field.Name, valRow, h.Pos, "", rec, res)
			continue
		}

		value, err := e.cellValue(wb, sheet, valRow, h.Pos, field.Type)
		if err != nil {
			return nil, err
		}
		rec[field.Name] = value
	}
	return rec, nil
}

// extractTable reads a header row plus the data rows below it, bounded by the
// consecutive-empty-row rule, the row cap and the optional end marker.
func (e *Engine) extractTable(wb *xlsx.Workbook, sheet string, st mapping.Subtable, loc detect.Location, res *Result) ([]Record, error) {
	headerRow := loc.Row + st.HeadersRowOffset
	startCol := loc.Col + st.HeadersColOffset

	colLimits := detect.Limits{
		Max:              st.LimitColumns(50),
		ConsecutiveEmpty: mapping.DefaultConsecutiveEmpty,
	}
	headers, err := detect.TableHeaders(wb, sheet, headerRow, startCol, colLimits)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return []Record{}, nil
	}

	fields := detect.ResolveFields(headers, st.ColumnMappings, e.cfg.GlobalSettings.NormalizeKeysEnabled())
	cols := make([]int, len(fields))
	for i, f := range fields {
		cols[i] = f.Pos
	}

	dataStart := headerRow + st.DataRowOff()
	lastRow, err := detect.LastDataRow(wb, sheet, dataStart, cols, detect.LimitsFor(st))
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, lastRow-dataStart+1)
	for row := dataStart; row <= lastRow; row++ {
		rec := make(Record, len(fields))
		empty := true
		for _, f := range fields {
			if f.Type == mapping.TypeImage {
				n := len(records) + 1
				if e.attachImage(wb, sheet, st.Name, f.Name, row, f.Pos, fmt.Sprintf(".%d", n), rec, res) {
					empty = false
				}
				continue
			}
			value, err := e.cellValue(wb, sheet, row, f.Pos, f.Type)
			if err != nil {
				return nil, err
			}
			if s, ok := value.(string); !ok || strings.TrimSpace(s) != "" {
				empty = false
			}
			rec[f.Name] = value
		}
		if empty {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// fieldFor resolves a key cell's text to its canonical field name and type.
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

// cellValue reads and coerces one data cell. Formula-typed cells yield the
// formula string when present, falling back to the computed value.
func (e *Engine) cellValue(wb *xlsx.Workbook, sheet string, row, col int, typ string) (any, error) {
	if typ == mapping.TypeFormula {
		formula, err := wb.Formula(sheet, row, col)
		if err != nil {
			return nil, err
		}
		if formula != "" {
			return "=" + formula, nil
		}
	}

	formatted, err := wb.CellValue(sheet, row, col)
	if err != nil {
		return nil, err
	}
	raw, err := wb.RawCellValue(sheet, row, col)
	if err != nil {
		return nil, err
	}
	return e.coercer.Coerce(formatted, raw, typ), nil
}
