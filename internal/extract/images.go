package extract

import (
	"fmt"
	"strings"

	"github.com/klytics/mergekit/internal/xlsx"
)

// imageMatchThreshold is the minimum anchor confidence for a picture to be
// attributed to a cell. With confidence 1/(1+rowDistance) this accepts
// pictures anchored at most two rows from the target.
const imageMatchThreshold = 0.3

// attachImage finds the picture best anchored to the given cell and records
// it in the image side channel under "subtable.field" plus the row suffix.
// Returns false when no picture matches, leaving the record untouched.
func (e *Engine) attachImage(wb *xlsx.Workbook, sheet, subtable, field string, row, col int, suffix string, rec Record, res *Result) bool {
	if res.picCache == nil {
		res.picCache = make(map[string][]xlsx.Picture)
	}
	pics, ok := res.picCache[sheet]
	if !ok {
		var err error
		pics, err = wb.Pictures(sheet)
		if err != nil {
			pics = nil
		}
		res.picCache[sheet] = pics
	}

	best, found := bestAnchoredPicture(pics, row, col)
	if !found {
		return false
	}

	key := fmt.Sprintf("%s.%s%s", subtable, field, suffix)
	rec[field] = key
	res.Images[key] = Image{Data: best.Data, Extension: best.Extension}
	return true
}

// bestAnchoredPicture picks the picture in the target column whose anchor row
// is closest to the target row. Confidence is 1/(1+rowDistance); matches
// below the threshold are rejected. Ties go to the smaller row distance, then
// the lower anchor row.
func bestAnchoredPicture(pics []xlsx.Picture, row, col int) (xlsx.Picture, bool) {
	var best xlsx.Picture
	bestDist := -1

	for _, p := range pics {
		if p.Col != col {
			continue
		}
		dist := p.Row - row
		if dist < 0 {
			dist = -dist
		}
		if 1.0/float64(1+dist) < imageMatchThreshold {
			continue
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && p.Row < best.Row) {
			best = p
			bestDist = dist
		}
	}
	return best, bestDist >= 0
}

// checkRequired verifies every configured required field is present and
// non-empty in the extracted data. Paths take the form "subtable.field" or
// "sheet.subtable.field".
func (e *Engine) checkRequired(res *Result) []string {
	var problems []string
	for _, path := range e.cfg.GlobalSettings.Validation.RequiredFields {
		if !e.hasField(res, path) {
			problems = append(problems, fmt.Sprintf("required field %q is missing or empty", path))
		}
	}

	if !e.cfg.GlobalSettings.Validation.AllowEmpty() {
		for sheet, subtables := range res.Data {
			for name, value := range subtables {
				problems = append(problems, emptyValueProblems(sheet, name, value)...)
			}
		}
	}
	return problems
}

func (e *Engine) hasField(res *Result, path string) bool {
	parts := strings.Split(path, ".")
	if len(parts) == 3 {
		subtables, ok := res.Data[parts[0]]
		if !ok {
			return false
		}
		return subtableHasField(subtables[parts[1]], parts[2])
	}
	if len(parts) != 2 {
		return false
	}
	for _, subtables := range res.Data {
		if subtableHasField(subtables[parts[0]], parts[1]) {
			return true
		}
	}
	return false
}

func subtableHasField(value any, field string) bool {
	switch v := value.(type) {
	case Record:
		return filled(v[field])
	case []Record:
		for _, rec := range v {
			if !filled(rec[field]) {
				return false
			}
		}
		return len(v) > 0
	}
	return false
}

func filled(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func emptyValueProblems(sheet, subtable string, value any) []string {
	var problems []string
	report := func(field string, row int) {
		where := fmt.Sprintf("%s.%s.%s", sheet, subtable, field)
		if row > 0 {
			where = fmt.Sprintf("%s (row %d)", where, row)
		}
		problems = append(problems, "empty value at "+where)
	}

	switch v := value.(type) {
	case Record:
		for field, cell := range v {
			if !filled(cell) {
				report(field, 0)
			}
		}
	case []Record:
		for i, rec := range v {
			for field, cell := range rec {
				if !filled(cell) {
					report(field, i+1)
				}
			}
		}
	}
	return problems
}
