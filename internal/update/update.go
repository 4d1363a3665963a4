// Package update writes extracted-style data back into a workbook in place,
// preserving layout: fixed key-value blocks first, then expandable tables,
// shifting and restoring any content below a table that grows.
package update

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klytics/mergekit/internal/audit"
	"github.com/klytics/mergekit/internal/detect"
	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

// Sentinel is written into a cell whose value could not be converted or
// written, so a failed cell is visible in the output instead of silently
// stale.
const Sentinel = "!#VALUE"

// StructuralError aborts an update before any cell is written: every
// configured subtable that could not be located or bounded is listed.
type StructuralError struct {
	Problems []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("update aborted, %d structural problem(s): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// CellWriteError describes one failed cell write in an otherwise successful
// run.
type CellWriteError struct {
	Sheet string
	Cell  string
	Field string
	Err   error
}

func (e *CellWriteError) Error() string {
	return fmt.Sprintf("could not write %s!%s (%s): %v", e.Sheet, e.Cell, e.Field, e.Err)
}

// Result reports the outcome of an update run. CellErrors holds the cells
// that received the sentinel; the run as a whole still succeeded.
type Result struct {
	Summary    audit.Summary    `json:"summary"`
	CellErrors []*CellWriteError `json:"cell_errors,omitempty"`
	Log        *audit.Log        `json:"-"`
}

// Engine updates workbooks according to a single configuration.
type Engine struct {
	cfg        *mapping.Config
	dateLayout string
}

// New builds an update engine for the given configuration.
func New(cfg *mapping.Config) *Engine {
	return &Engine{
		cfg:        cfg,
		dateLayout: cfg.GlobalSettings.OutputFormatting.DateLayout(),
	}
}

// region is one subtable located and bounded during the detection pass,
// before any cell is modified.
type region struct {
	sheet string
	st    mapping.Subtable
	order int
	loc   detect.Location

	// Table regions only.
	fields    []detect.Field
	dataStart int
	dataEnd   int
}

// Run performs a full update: locate and bound every configured subtable,
// abort with a *StructuralError if any cannot be resolved, then write fixed
// blocks before expandable tables, threading row shifts from expansions into
// every region positioned below them. Cell-level failures write the sentinel
// and are reported in the result rather than aborting.
func (e *Engine) Run(wb *xlsx.Workbook, data map[string]map[string]any, images map[string]extract.Image) (*Result, error) {
	log := audit.NewLog()

	regions, structural := e.detectAll(wb, data)
	if len(structural) > 0 {
		return nil, &StructuralError{Problems: structural}
	}

	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].sheet != regions[j].sheet {
			return false
		}
		if regions[i].st.Priority() != regions[j].st.Priority() {
			return regions[i].st.Priority() < regions[j].st.Priority()
		}
		return regions[i].order < regions[j].order
	})

	run := &runState{
		wb:     wb,
		log:    log,
		images: images,
		shifts: make(map[string][]shift),
	}

	var cellErrors []*CellWriteError
	for i := range regions {
		r := &regions[i]
		subtableData, ok := data[r.sheet][r.st.Name]
		if !ok {
			log.Info("skip", r.loc.Addr(), fmt.Sprintf("no input data for subtable %q", r.st.Name))
			continue
		}

		var errs []*CellWriteError
		var err error
		if r.st.Kind == mapping.KindTable {
			errs, err = e.updateTable(run, r, subtableData)
		} else {
			errs, err = e.updateKeyValue(run, r, subtableData)
		}
		if err != nil {
			return nil, fmt.Errorf("sheet %q subtable %q: %w", r.sheet, r.st.Name, err)
		}
		cellErrors = append(cellErrors, errs...)
	}

	if err := log.WriteWorksheet(wb); err != nil {
		return nil, fmt.Errorf("could not write %s worksheet: %w", audit.LogSheetName, err)
	}

	return &Result{
		Summary:    log.Summarize(),
		CellErrors: cellErrors,
		Log:        log,
	}, nil
}

// detectAll locates and bounds every configured subtable without modifying
// the workbook, collecting every structural problem instead of stopping at
// the first.
func (e *Engine) detectAll(wb *xlsx.Workbook, data map[string]map[string]any) ([]region, []string) {
	var regions []region
	var problems []string

	for _, sheet := range e.cfg.Sheets {
		if _, ok := data[sheet.Name]; !ok {
			continue
		}
		if !wb.HasSheet(sheet.Name) {
			problems = append(problems, fmt.Sprintf("sheet %q not found in workbook", sheet.Name))
			continue
		}

		for order, st := range sheet.Subtables {
			if _, ok := data[sheet.Name][st.Name]; !ok {
				continue
			}

			loc, err := detect.Resolve(wb, sheet.Name, st.HeaderSearch)
			if err != nil {
				problems = append(problems,
					fmt.Sprintf("sheet %q subtable %q: %v", sheet.Name, st.Name, err))
				continue
			}

			r := region{sheet: sheet.Name, st: st, order: order, loc: loc}

			if st.Kind == mapping.KindTable {
				if err := e.boundTable(wb, &r); err != nil {
					problems = append(problems,
						fmt.Sprintf("sheet %q subtable %q: %v", sheet.Name, st.Name, err))
					continue
				}
			}
			regions = append(regions, r)
		}
	}
	return regions, problems
}

// boundTable resolves a table region's header fields and current data extent.
func (e *Engine) boundTable(wb *xlsx.Workbook, r *region) error {
	headerRow := r.loc.Row + r.st.HeadersRowOffset
	startCol := r.loc.Col + r.st.HeadersColOffset

	colLimits := detect.Limits{
		Max:              r.st.LimitColumns(50),
		ConsecutiveEmpty: mapping.DefaultConsecutiveEmpty,
	}
	headers, err := detect.TableHeaders(wb, r.sheet, headerRow, startCol, colLimits)
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		return &detect.BoundaryError{Subtable: r.st.Name, Reason: "no header cells found"}
	}

	r.fields = detect.ResolveFields(headers, r.st.ColumnMappings, e.cfg.GlobalSettings.NormalizeKeysEnabled())
	cols := make([]int, len(r.fields))
	for i, f := range r.fields {
		cols[i] = f.Pos
	}

	r.dataStart = headerRow + r.st.DataRowOff()
	end, err := detect.LastDataRow(wb, r.sheet, r.dataStart, cols, detect.LimitsFor(r.st))
	if err != nil {
		return err
	}
	r.dataEnd = end
	return nil
}

// shift records that rows below origin moved down by delta.
type shift struct {
	origin int
	delta  int
}

// runState carries the per-run mutable state through the write phase.
type runState struct {
	wb     *xlsx.Workbook
	log    *audit.Log
	images map[string]extract.Image
	shifts map[string][]shift
}

// rowShift returns the accumulated downward shift for a row detected at the
// given position before any expansion happened.
func (s *runState) rowShift(sheet string, detectedRow int) int {
	total := 0
	for _, sh := range s.shifts[sheet] {
		if detectedRow > sh.origin {
			total += sh.delta
		}
	}
	return total
}

func (s *runState) addShift(sheet string, origin, delta int) {
	s.shifts[sheet] = append(s.shifts[sheet], shift{origin: origin, delta: delta})
}

// writeCell converts and writes one value, falling back to the sentinel on
// failure so the run can continue.
func (e *Engine) writeCell(run *runState, sheet string, row, col int, field detect.Field, value any) *CellWriteError {
	addr := xlsx.Addr(row, col)
	before, _ := run.wb.CellValue(sheet, row, col)

	fail := func(err error) *CellWriteError {
		_ = run.wb.SetCell(sheet, row, col, Sentinel)
		run.log.Error("write", addr, fmt.Sprintf("field %q: %v", field.Name, err))
		return &CellWriteError{Sheet: sheet, Cell: addr, Field: field.Name, Err: err}
	}

	if field.Type == mapping.TypeImage {
		if err := e.writeImage(run, sheet, row, col, value); err != nil {
			return fail(err)
		}
		run.log.Success("image", addr, fmt.Sprintf("field %q", field.Name), before, fmt.Sprint(value))
		return nil
	}

	converted, err := e.convert(value, field.Type)
	if err != nil {
		return fail(err)
	}

	if formula, ok := converted.(formulaValue); ok {
		if err := run.wb.SetFormula(sheet, row, col, string(formula)); err != nil {
			return fail(err)
		}
	} else if err := run.wb.SetCell(sheet, row, col, converted); err != nil {
		return fail(err)
	}

	run.log.Success("write", addr, fmt.Sprintf("field %q", field.Name), before, fmt.Sprint(value))
	return nil
}

// formulaValue marks a converted value that must be written as a formula.
type formulaValue string

// convert coerces an input value to the form written for the field's type.
func (e *Engine) convert(value any, typ string) (any, error) {
	switch typ {
	case mapping.TypeNumber:
		switch v := value.(type) {
		case float64, int, int64:
			return v, nil
		case string:
			n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
			if err != nil {
				return nil, fmt.Errorf("not a number: %q", v)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("not a number: %v", value)
		}

	case mapping.TypeDate:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			t, err := time.Parse(e.dateLayout, strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("not a date in layout %q: %q", e.dateLayout, v)
			}
			return t, nil
		default:
			return nil, fmt.Errorf("not a date: %v", value)
		}

	case mapping.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "y", "1":
				return true, nil
			case "false", "no", "n", "0":
				return false, nil
			}
			return nil, fmt.Errorf("not a boolean: %q", v)
		default:
			return nil, fmt.Errorf("not a boolean: %v", value)
		}

	case mapping.TypeFormula:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("formula value must be a string, got %T", value)
		}
		return formulaValue(strings.TrimPrefix(s, "=")), nil

	default:
		if value == nil {
			return "", nil
		}
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	}
}

// writeImage replaces the picture anchored at the cell with the image the
// value references in the image side channel.
func (e *Engine) writeImage(run *runState, sheet string, row, col int, value any) error {
	key, ok := value.(string)
	if !ok {
		return fmt.Errorf("image value must be a side-channel key string, got %T", value)
	}
	img, ok := run.images[key]
	if !ok {
		return fmt.Errorf("no image provided for key %q", key)
	}

	_ = run.wb.RemovePicture(sheet, row, col)

	ext := img.Extension
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return run.wb.AddPicture(sheet, row, col, img.Data, ext)
}
