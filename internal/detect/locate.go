// Package detect holds the location, boundary and header-mapping logic shared
// by the extraction and update engines: finding a subtable's anchor cell,
// deciding where its data ends, and translating header text to canonical
// field names.
package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

// Location is a subtable anchor in 1-based coordinates.
type Location struct {
	Row int
	Col int
}

// Addr renders the location as an A1-style address.
func (l Location) Addr() string {
	return xlsx.Addr(l.Row, l.Col)
}

// NotFoundError reports that a header search found no anchor. A well-formed
// but empty search range is a normal not-found outcome, not a hard failure.
type NotFoundError struct {
	Method string
	Text   string
	Range  string
}

func (e *NotFoundError) Error() string {
	if e.Method == mapping.MethodCellAddress {
		return fmt.Sprintf("anchor not found: invalid cell address %q", e.Text)
	}
	return fmt.Sprintf("anchor not found: no cell matching %q (%s) in range %s", e.Text, e.Method, e.Range)
}

// defaultSearchRows bounds a header search when no explicit range is given.
const defaultSearchRows = 100

// Resolve locates a subtable's anchor cell. Text-based methods scan the
// configured range top-to-bottom, left-to-right and return the first match;
// cell_address parses the address directly. Returns *NotFoundError when no
// cell matches.
func Resolve(wb *xlsx.Workbook, sheet string, hs mapping.HeaderSearch) (Location, error) {
	switch hs.Method {
	case mapping.MethodCellAddress:
		row, col, err := xlsx.ParseAddr(hs.Cell)
		if err != nil {
			return Location{}, &NotFoundError{Method: hs.Method, Text: hs.Cell}
		}
		return Location{Row: row, Col: col}, nil

	case mapping.MethodContainsText:
		return scanRange(wb, sheet, hs, func(cell string) bool {
			return strings.Contains(strings.ToLower(cell), strings.ToLower(strings.TrimSpace(hs.Text)))
		})

	case mapping.MethodExactMatch:
		return scanRange(wb, sheet, hs, func(cell string) bool {
			return cell == strings.TrimSpace(hs.Text)
		})

	case mapping.MethodRegex:
		pattern, err := regexp.Compile(hs.Text)
		if err != nil {
			return Location{}, fmt.Errorf("invalid header search pattern %q: %w", hs.Text, err)
		}
		return scanRange(wb, sheet, hs, pattern.MatchString)

	default:
		return Location{}, fmt.Errorf("unsupported header search method %q", hs.Method)
	}
}

// scanRange walks the search range row-major and returns the first non-empty
// cell whose trimmed text satisfies the match function.
func scanRange(wb *xlsx.Workbook, sheet string, hs mapping.HeaderSearch, match func(string) bool) (Location, error) {
	r1, c1, r2, c2, err := searchBounds(hs)
	if err != nil {
		return Location{}, err
	}

	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			value, err := wb.CellValue(sheet, row, col)
			if err != nil {
				return Location{}, err
			}
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			if match(trimmed) {
				return Location{Row: row, Col: col}, nil
			}
		}
	}

	return Location{}, &NotFoundError{
		Method: hs.Method,
		Text:   hs.Text,
		Range:  xlsx.Addr(r1, c1) + ":" + xlsx.Addr(r2, c2),
	}
}

// searchBounds resolves the configured search range, defaulting to the first
// hundred rows of the search column (column A when neither is given).
func searchBounds(hs mapping.HeaderSearch) (r1, c1, r2, c2 int, err error) {
	if hs.SearchRange != "" {
		parts := strings.SplitN(strings.ToUpper(hs.SearchRange), ":", 2)
		r1, c1, err = xlsx.ParseAddr(parts[0])
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid search_range %q: %w", hs.SearchRange, err)
		}
		if len(parts) == 1 {
			return r1, c1, r1, c1, nil
		}
		r2, c2, err = xlsx.ParseAddr(parts[1])
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid search_range %q: %w", hs.SearchRange, err)
		}
		if r2 < r1 {
			r1, r2 = r2, r1
		}
		if c2 < c1 {
			c1, c2 = c2, c1
		}
		return r1, c1, r2, c2, nil
	}

	column := hs.Column
	if column == "" {
		column = "A"
	}
	col, err := xlsx.ColumnNumber(column)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return 1, col, defaultSearchRows, col, nil
}
