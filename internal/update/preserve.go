package update

import (
	"strconv"
	"strings"

	"github.com/klytics/mergekit/internal/xlsx"
)

// preservedCell is one captured cell of a preserved block. Exactly one of
// Formula or Value is meaningful; Formula wins when non-empty.
type preservedCell struct {
	Row     int
	Col     int
	Value   any
	Formula string
	StyleID int
}

// PreservedBlock is a snapshot of everything on a sheet from FirstRow down:
// cell contents, formulas, styles, merged ranges, explicit row heights and
// picture anchors. It is captured before an expandable table is rewritten and
// restored afterwards at a row offset.
type PreservedBlock struct {
	Sheet      string
	FirstRow   int
	LastRow    int
	Cells      []preservedCell
	Merges     []xlsx.MergedRange
	RowHeights map[int]float64
	Pictures   []xlsx.Picture
}

// CapturePreserved snapshots the sheet from firstRow to its populated extent.
// An empty region yields a block with no cells, which restores as a no-op.
func CapturePreserved(wb *xlsx.Workbook, sheet string, firstRow int) (*PreservedBlock, error) {
	maxRow, maxCol, err := wb.Dimensions(sheet)
	if err != nil {
		return nil, err
	}

	block := &PreservedBlock{
		Sheet:      sheet,
		FirstRow:   firstRow,
		LastRow:    maxRow,
		RowHeights: make(map[int]float64),
	}
	if maxRow < firstRow {
		return block, nil
	}

	for row := firstRow; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			cell, keep, err := captureCell(wb, sheet, row, col)
			if err != nil {
				return nil, err
			}
			if keep {
				block.Cells = append(block.Cells, cell)
			}
		}

		height, err := wb.RowHeight(sheet, row)
		if err != nil {
			return nil, err
		}
		if height > 0 {
			block.RowHeights[row] = height
		}
	}

	merges, err := wb.MergedRanges(sheet)
	if err != nil {
		return nil, err
	}
	for _, m := range merges {
		if m.StartRow >= firstRow {
			block.Merges = append(block.Merges, m)
		}
	}

	pics, err := wb.Pictures(sheet)
	if err != nil {
		return nil, err
	}
	for _, p := range pics {
		if p.Row >= firstRow {
			block.Pictures = append(block.Pictures, p)
		}
	}

	return block, nil
}

func captureCell(wb *xlsx.Workbook, sheet string, row, col int) (preservedCell, bool, error) {
	cell := preservedCell{Row: row, Col: col}

	formula, err := wb.Formula(sheet, row, col)
	if err != nil {
		return cell, false, err
	}
	cell.Formula = formula

	raw, err := wb.RawCellValue(sheet, row, col)
	if err != nil {
		return cell, false, err
	}
	if formula == "" && raw != "" {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			cell.Value = n
		} else {
			cell.Value = raw
		}
	}

	styleID, err := wb.StyleID(sheet, row, col)
	if err != nil {
		return cell, false, err
	}
	cell.StyleID = styleID

	keep := cell.Formula != "" || cell.Value != nil || cell.StyleID != 0
	return cell, keep, nil
}

// Clear removes the captured region from the sheet: merged ranges are split,
// pictures deleted and cell contents blanked, leaving the area free for the
// table rewrite and the shifted restore.
func (b *PreservedBlock) Clear(wb *xlsx.Workbook) error {
	for _, m := range b.Merges {
		if err := wb.Unmerge(b.Sheet, m); err != nil {
			return err
		}
	}
	for _, p := range b.Pictures {
		if err := wb.RemovePicture(b.Sheet, p.Row, p.Col); err != nil {
			return err
		}
	}
	for _, c := range b.Cells {
		if err := wb.ClearCell(b.Sheet, c.Row, c.Col); err != nil {
			return err
		}
	}
	return nil
}

// Restore writes the captured region back shifted down by the given number of
// rows. Relative row references in preserved formulas at or after the table's
// last data row (the row immediately above the block) are rewritten to follow
// the expansion; a range ending at that row keeps spanning the grown table.
func (b *PreservedBlock) Restore(wb *xlsx.Workbook, shift int) error {
	boundary := b.FirstRow - 1
	for _, c := range b.Cells {
		row := c.Row + shift
		switch {
		case c.Formula != "":
			rewritten := RewriteFormula(c.Formula, shift, boundary)
			if err := wb.SetFormula(b.Sheet, row, c.Col, rewritten); err != nil {
				return err
			}
		case c.Value != nil:
			if err := wb.SetCell(b.Sheet, row, c.Col, c.Value); err != nil {
				return err
			}
		}
		if c.StyleID != 0 {
			if err := wb.SetStyleID(b.Sheet, row, c.Col, c.StyleID); err != nil {
				return err
			}
		}
	}

	for _, m := range b.Merges {
		shifted := xlsx.MergedRange{
			StartRow: m.StartRow + shift, StartCol: m.StartCol,
			EndRow: m.EndRow + shift, EndCol: m.EndCol,
		}
		if err := wb.Merge(b.Sheet, shifted); err != nil {
			return err
		}
	}

	for row, height := range b.RowHeights {
		if err := wb.SetRowHeight(b.Sheet, row+shift, height); err != nil {
			return err
		}
	}

	for _, p := range b.Pictures {
		ext := p.Extension
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if err := wb.AddPicture(b.Sheet, p.Row+shift, p.Col, p.Data, ext); err != nil {
			return err
		}
	}
	return nil
}
