package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// MergedRange is a rectangular merged-cell region in 1-based coordinates.
type MergedRange struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// Ref renders the range as an A1-style reference like "B4:D4".
func (r MergedRange) Ref() string {
	return Addr(r.StartRow, r.StartCol) + ":" + Addr(r.EndRow, r.EndCol)
}

// MergedRanges enumerates all merged-cell regions on a sheet.
func (w *Workbook) MergedRanges(sheet string) ([]MergedRange, error) {
	cells, err := w.f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read merged cells on sheet %q: %w", sheet, err)
	}

	ranges := make([]MergedRange, 0, len(cells))
	for _, mc := range cells {
		startRow, startCol, err := ParseAddr(mc.GetStartAxis())
		if err != nil {
			return nil, err
		}
		endRow, endCol, err := ParseAddr(mc.GetEndAxis())
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, MergedRange{
			StartRow: startRow, StartCol: startCol,
			EndRow: endRow, EndCol: endCol,
		})
	}
	return ranges, nil
}

// Merge merges the given range.
func (w *Workbook) Merge(sheet string, r MergedRange) error {
	if err := w.f.MergeCell(sheet, Addr(r.StartRow, r.StartCol), Addr(r.EndRow, r.EndCol)); err != nil {
		return fmt.Errorf("could not merge %s on sheet %q: %w", r.Ref(), sheet, err)
	}
	return nil
}

// Unmerge splits the given merged range back into individual cells.
func (w *Workbook) Unmerge(sheet string, r MergedRange) error {
	if err := w.f.UnmergeCell(sheet, Addr(r.StartRow, r.StartCol), Addr(r.EndRow, r.EndCol)); err != nil {
		return fmt.Errorf("could not unmerge %s on sheet %q: %w", r.Ref(), sheet, err)
	}
	return nil
}

// Picture is an embedded image with its single-cell anchor position.
type Picture struct {
	Row       int
	Col       int
	Data      []byte
	Extension string // like ".png"
}

// Pictures enumerates every embedded image on a sheet with its anchor cell.
func (w *Workbook) Pictures(sheet string) ([]Picture, error) {
	cells, err := w.f.GetPictureCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate pictures on sheet %q: %w", sheet, err)
	}

	var pics []Picture
	for _, cell := range cells {
		row, col, err := ParseAddr(cell)
		if err != nil {
			return nil, err
		}
		anchored, err := w.f.GetPictures(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("could not read picture at %s!%s: %w", sheet, cell, err)
		}
		for _, p := range anchored {
			pics = append(pics, Picture{Row: row, Col: col, Data: p.File, Extension: p.Extension})
		}
	}
	return pics, nil
}

// AddPicture inserts image bytes anchored at the given cell.
func (w *Workbook) AddPicture(sheet string, row, col int, data []byte, extension string) error {
	err := w.f.AddPictureFromBytes(sheet, Addr(row, col), &excelize.Picture{
		Extension: extension,
		File:      data,
	})
	if err != nil {
		return fmt.Errorf("could not insert picture at %s!%s: %w", sheet, Addr(row, col), err)
	}
	return nil
}

// RemovePicture deletes all pictures anchored at the given cell.
func (w *Workbook) RemovePicture(sheet string, row, col int) error {
	if err := w.f.DeletePicture(sheet, Addr(row, col)); err != nil {
		return fmt.Errorf("could not delete picture at %s!%s: %w", sheet, Addr(row, col), err)
	}
	return nil
}
