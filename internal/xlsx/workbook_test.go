package xlsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrRoundTrip(t *testing.T) {
	assert.Equal(t, "A1", Addr(1, 1))
	assert.Equal(t, "D7", Addr(7, 4))
	assert.Equal(t, "AA10", Addr(10, 27))

	row, col, err := ParseAddr("C12")
	require.NoError(t, err)
	assert.Equal(t, 12, row)
	assert.Equal(t, 3, col)

	_, _, err = ParseAddr("not-a-cell")
	require.Error(t, err)
}

func TestColumnNames(t *testing.T) {
	n, err := ColumnNumber("B")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "AB", ColumnName(28))

	_, err = ColumnNumber("7")
	require.Error(t, err)
}

func TestCellReadWrite(t *testing.T) {
	wb := New()
	defer wb.Close()

	require.NoError(t, wb.SetCell("Sheet1", 2, 3, "hello"))
	require.NoError(t, wb.SetCell("Sheet1", 3, 3, 42.5))

	v, err := wb.CellValue("Sheet1", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	raw, err := wb.RawCellValue("Sheet1", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, "42.5", raw)

	// Missing cells read as empty, not as an error.
	v, err = wb.CellValue("Sheet1", 50, 50)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestFormulas(t *testing.T) {
	wb := New()
	defer wb.Close()

	require.NoError(t, wb.SetFormula("Sheet1", 1, 1, "SUM(B1:B3)"))

	f, err := wb.Formula("Sheet1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "SUM(B1:B3)", f)

	f, err = wb.Formula("Sheet1", 9, 9)
	require.NoError(t, err)
	assert.Equal(t, "", f)
}

func TestMergedRanges(t *testing.T) {
	wb := New()
	defer wb.Close()

	r := MergedRange{StartRow: 2, StartCol: 2, EndRow: 2, EndCol: 4}
	assert.Equal(t, "B2:D2", r.Ref())
	require.NoError(t, wb.Merge("Sheet1", r))

	ranges, err := wb.MergedRanges("Sheet1")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, r, ranges[0])

	require.NoError(t, wb.Unmerge("Sheet1", r))
	ranges, err = wb.MergedRanges("Sheet1")
	require.NoError(t, err)
	assert.Empty(t, ranges)
}

func TestEnsureSheetReplaces(t *testing.T) {
	wb := New()
	defer wb.Close()

	require.NoError(t, wb.EnsureSheet("log"))
	require.NoError(t, wb.SetCell("log", 1, 1, "old"))
	require.NoError(t, wb.EnsureSheet("log"))

	v, err := wb.CellValue("log", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "", v)
	assert.True(t, wb.HasSheet("log"))
}

func TestDimensions(t *testing.T) {
	wb := New()
	defer wb.Close()

	require.NoError(t, wb.SetCell("Sheet1", 4, 2, "x"))
	maxRow, maxCol, err := wb.Dimensions("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 4, maxRow)
	assert.Equal(t, 2, maxCol)
}

func TestBytesRoundTrip(t *testing.T) {
	wb := New()
	require.NoError(t, wb.SetCell("Sheet1", 1, 1, "persisted"))
	data, err := wb.Bytes()
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	reopened, err := OpenBytes(data)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.CellValue("Sheet1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}
