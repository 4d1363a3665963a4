package detect

import (
	"fmt"
	"strings"

	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

// BoundaryError reports a region whose extent could not be determined
// unambiguously.
type BoundaryError struct {
	Subtable string
	Reason   string
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("could not bound subtable %q: %s", e.Subtable, e.Reason)
}

// Limits bound a boundary scan. Max caps how many rows (or columns) may
// belong to the region; ConsecutiveEmpty is how many fully empty rows in a
// row terminate it; EndMarker stops the scan when its text appears in the
// region's first cell.
type Limits struct {
	Max              int
	ConsecutiveEmpty int
	EndMarker        string
}

// defaultMaxSpan caps a scan when the configuration gives no explicit limit.
const defaultMaxSpan = 1000

// LimitsFor derives scan limits from a subtable configuration.
func LimitsFor(st mapping.Subtable) Limits {
	max := st.MaxRows
	if st.Orientation == mapping.OrientationHorizontal && st.Kind == mapping.KindKeyValuePairs {
		max = st.MaxColumns
	}
	if max <= 0 {
		max = defaultMaxSpan
	}
	return Limits{
		Max:              max,
		ConsecutiveEmpty: mapping.DefaultConsecutiveEmpty,
		EndMarker:        st.EndMarker,
	}
}

// LastDataRow scans downward from startRow and returns the last row that
// belongs to the region, inclusive. A row is empty when every cell in cols is
// blank. The scan ends at the first run of ConsecutiveEmpty empty rows, at an
// EndMarker match in the first mapped column, or at the Max cap. Returns
// startRow-1 when the region contains no data at all.
func LastDataRow(wb *xlsx.Workbook, sheet string, startRow int, cols []int, lim Limits) (int, error) {
	if len(cols) == 0 {
		return 0, &BoundaryError{Reason: "no columns to scan"}
	}

	last := startRow - 1
	emptyRun := 0

	for i := 0; i < lim.Max; i++ {
		row := startRow + i

		first, err := wb.CellValue(sheet, row, cols[0])
		if err != nil {
			return 0, err
		}
		if lim.EndMarker != "" && strings.TrimSpace(first) == lim.EndMarker {
			break
		}

		empty := strings.TrimSpace(first) == ""
		if empty {
			for _, col := range cols[1:] {
				v, err := wb.CellValue(sheet, row, col)
				if err != nil {
					return 0, err
				}
				if strings.TrimSpace(v) != "" {
					empty = false
					break
				}
			}
		}

		if empty {
			emptyRun++
			if emptyRun >= lim.ConsecutiveEmpty {
				break
			}
			continue
		}
		emptyRun = 0
		last = row
	}

	return last, nil
}

// LastDataCol is the horizontal counterpart of LastDataRow: it scans rightward
// from startCol and returns the last column belonging to the region. A column
// is empty when every cell in rows is blank.
func LastDataCol(wb *xlsx.Workbook, sheet string, startCol int, rows []int, lim Limits) (int, error) {
	if len(rows) == 0 {
		return 0, &BoundaryError{Reason: "no rows to scan"}
	}

	last := startCol - 1
	emptyRun := 0

	for i := 0; i < lim.Max; i++ {
		col := startCol + i

		first, err := wb.CellValue(sheet, rows[0], col)
		if err != nil {
			return 0, err
		}
		if lim.EndMarker != "" && strings.TrimSpace(first) == lim.EndMarker {
			break
		}

		empty := strings.TrimSpace(first) == ""
		if empty {
			for _, row := range rows[1:] {
				v, err := wb.CellValue(sheet, row, col)
				if err != nil {
					return 0, err
				}
				if strings.TrimSpace(v) != "" {
					empty = false
					break
				}
			}
		}

		if empty {
			emptyRun++
			if emptyRun >= lim.ConsecutiveEmpty {
				break
			}
			continue
		}
		emptyRun = 0
		last = col
	}

	return last, nil
}
