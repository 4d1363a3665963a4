package update

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klytics/mergekit/internal/audit"
	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

const sheet = "Sheet1"

// makeFixture builds a workbook with a key-value block, a three-row table and
// preserved content (including a formula) two blank rows below the table.
func makeFixture(t *testing.T) *xlsx.Workbook {
	t.Helper()
	wb := xlsx.New()

	set := func(addr string, v any) {
		row, col, err := xlsx.ParseAddr(addr)
		require.NoError(t, err)
		require.NoError(t, wb.SetCell(sheet, row, col, v))
	}

	set("A1", "Client Information")
	set("A2", "Client Name")
	set("B2", "Acme")
	set("A3", "Total Value")
	set("B3", 100)

	set("A6", "Description")
	set("B6", "Amount")
	set("A7", "item one")
	set("B7", 10)
	set("A8", "item two")
	set("B8", 20)
	set("A9", "item three")
	set("B9", 30)

	set("A12", "Grand Total")
	set("B12", 60)
	require.NoError(t, wb.SetFormula(sheet, 12, 3, "B12+1"))

	t.Cleanup(func() { _ = wb.Close() })
	return wb
}

func makeConfig() *mapping.Config {
	return &mapping.Config{
		Sheets: []mapping.Sheet{{
			Name: sheet,
			Subtables: []mapping.Subtable{
				{
					Name: "client_info",
					Kind: mapping.KindKeyValuePairs,
					HeaderSearch: mapping.HeaderSearch{
						Method: mapping.MethodContainsText,
						Text:   "Client Information",
						Column: "A",
					},
					HeadersRowOffset: 1,
					Orientation:      mapping.OrientationVertical,
					ColumnMappings: mapping.ColumnMappings{
						{Source: "Client Name", Name: "name", Type: mapping.TypeText},
						{Source: "Total Value", Name: "total_value", Type: mapping.TypeNumber},
					},
				},
				{
					Name: "line_items",
					Kind: mapping.KindTable,
					HeaderSearch: mapping.HeaderSearch{
						Method: mapping.MethodExactMatch,
						Text:   "Description",
						Column: "A",
					},
					ColumnMappings: mapping.ColumnMappings{
						{Source: "Description", Name: "description", Type: mapping.TypeText},
						{Source: "Amount", Name: "amount", Type: mapping.TypeNumber},
					},
				},
			},
		}},
	}
}

func cell(t *testing.T, wb *xlsx.Workbook, addr string) string {
	t.Helper()
	row, col, err := xlsx.ParseAddr(addr)
	require.NoError(t, err)
	v, err := wb.CellValue(sheet, row, col)
	require.NoError(t, err)
	return v
}

func items(rows ...[2]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any{"description": r[0], "amount": r[1]}
	}
	return out
}

func TestRoundTripSameDataChangesNothing(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()

	extracted, err := extract.New(cfg).Run(wb)
	require.NoError(t, err)

	payload := make(map[string]map[string]any)
	for s, subtables := range extracted.Data {
		payload[s] = subtables
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)
	assert.Empty(t, result.CellErrors)

	assert.Equal(t, "Acme", cell(t, wb, "B2"))
	assert.Equal(t, "100", cell(t, wb, "B3"))
	assert.Equal(t, "item two", cell(t, wb, "A8"))
	assert.Equal(t, "30", cell(t, wb, "B9"))

	// Nothing shifted: preserved content is where it was.
	assert.Equal(t, "Grand Total", cell(t, wb, "A12"))
	formula, err := wb.Formula(sheet, 12, 3)
	require.NoError(t, err)
	assert.Equal(t, "B12+1", formula)
}

func TestExpansionShiftsPreservedContent(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()

	payload := map[string]map[string]any{
		sheet: {
			"line_items": items(
				[2]any{"one", 1.0}, [2]any{"two", 2.0}, [2]any{"three", 3.0},
				[2]any{"four", 4.0}, [2]any{"five", 5.0},
			),
		},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)
	assert.Empty(t, result.CellErrors)

	// All five rows written.
	assert.Equal(t, "four", cell(t, wb, "A10"))
	assert.Equal(t, "5", cell(t, wb, "B11"))

	// Content two rows below the table moved down by the expansion.
	assert.Equal(t, "", cell(t, wb, "A12"))
	assert.Equal(t, "Grand Total", cell(t, wb, "A14"))
	assert.Equal(t, "60", cell(t, wb, "B14"))

	// The preserved formula follows its row.
	formula, err := wb.Formula(sheet, 14, 3)
	require.NoError(t, err)
	assert.Equal(t, "B14+1", formula)
}

func TestShrinkClearsLeftoverRows(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()

	payload := map[string]map[string]any{
		sheet: {"line_items": items([2]any{"only", 7.0}, [2]any{"pair", 8.0})},
	}

	_, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)

	assert.Equal(t, "only", cell(t, wb, "A7"))
	assert.Equal(t, "pair", cell(t, wb, "A8"))
	assert.Equal(t, "", cell(t, wb, "A9"))
	assert.Equal(t, "", cell(t, wb, "B9"))

	// No upward shift: the content below stays put.
	assert.Equal(t, "Grand Total", cell(t, wb, "A12"))
}

func TestPartialSuccessWritesSentinel(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()

	payload := map[string]map[string]any{
		sheet: {
			"line_items": items(
				[2]any{"good", 1.0},
				[2]any{"bad", "not-a-number"},
				[2]any{"also good", 3.0},
			),
		},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)

	require.Len(t, result.CellErrors, 1)
	assert.Equal(t, "B8", result.CellErrors[0].Cell)
	assert.Equal(t, "amount", result.CellErrors[0].Field)

	assert.Equal(t, Sentinel, cell(t, wb, "B8"))
	assert.Equal(t, "1", cell(t, wb, "B7"))
	assert.Equal(t, "3", cell(t, wb, "B9"))
	assert.Greater(t, result.Summary.Errors, 0)
}

func TestStructuralProblemsAbortBeforeWriting(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()
	cfg.Sheets[0].Subtables = append(cfg.Sheets[0].Subtables, mapping.Subtable{
		Name: "ghost",
		Kind: mapping.KindTable,
		HeaderSearch: mapping.HeaderSearch{
			Method: mapping.MethodExactMatch,
			Text:   "No Such Header",
			Column: "A",
		},
	})

	payload := map[string]map[string]any{
		sheet: {
			"client_info": map[string]any{"name": "Changed"},
			"ghost":       items([2]any{"x", 1.0}),
		},
	}

	_, err := New(cfg).Run(wb, payload, nil)
	require.Error(t, err)

	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Problems, 1)

	// Nothing was written.
	assert.Equal(t, "Acme", cell(t, wb, "B2"))
}

func TestExpansionErrorSkipsSubtableAndContinues(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()
	cfg.Sheets[0].Subtables[1].ExpansionBehavior = mapping.ExpandError

	payload := map[string]map[string]any{
		sheet: {
			"client_info": map[string]any{"name": "Changed"},
			"line_items": items(
				[2]any{"1", 1.0}, [2]any{"2", 2.0}, [2]any{"3", 3.0}, [2]any{"4", 4.0},
			),
		},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)

	// The disallowed expansion aborted only its own subtable.
	assert.Equal(t, "item one", cell(t, wb, "A7"))
	assert.Equal(t, "10", cell(t, wb, "B7"))
	assert.Equal(t, "", cell(t, wb, "A10"))
	assert.Equal(t, "Grand Total", cell(t, wb, "A12"))

	// Other subtables were still written.
	assert.Equal(t, "Changed", cell(t, wb, "B2"))

	assert.Greater(t, result.Summary.Errors, 0)
	found := false
	for _, entry := range result.Log.Entries() {
		if entry.Status == audit.StatusError && strings.Contains(entry.Details, "expansion is disallowed") {
			found = true
		}
	}
	assert.True(t, found, "the refused expansion must be recorded")
}

func TestFormulaAtTableBoundaryFollowsExpansion(t *testing.T) {
	wb := makeFixture(t)
	// A formula immediately below the table referencing its last data row.
	require.NoError(t, wb.SetFormula(sheet, 10, 3, "B9*2"))
	cfg := makeConfig()

	payload := map[string]map[string]any{
		sheet: {
			"line_items": items(
				[2]any{"one", 1.0}, [2]any{"two", 2.0}, [2]any{"three", 3.0},
				[2]any{"four", 4.0}, [2]any{"five", 5.0},
			),
		},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)
	assert.Empty(t, result.CellErrors)

	// The formula relocated by the expansion and its reference to the old
	// last data row now points at the new one.
	formula, err := wb.Formula(sheet, 12, 3)
	require.NoError(t, err)
	assert.Equal(t, "B11*2", formula)

	// References inside the relocated block keep tracking their own rows.
	formula, err = wb.Formula(sheet, 14, 3)
	require.NoError(t, err)
	assert.Equal(t, "B14+1", formula)
}

func TestOverwriteExpansionKeepsLowerSubtablesInPlace(t *testing.T) {
	wb := xlsx.New()
	t.Cleanup(func() { _ = wb.Close() })

	set := func(addr string, v any) {
		row, col, err := xlsx.ParseAddr(addr)
		require.NoError(t, err)
		require.NoError(t, wb.SetCell(sheet, row, col, v))
	}
	set("A1", "Description")
	set("B1", "Amount")
	set("A2", "item one")
	set("B2", 10)
	set("A3", "item two")
	set("B3", 20)

	set("A8", "Name")
	set("B8", "Qty")
	set("A9", "alpha")
	set("B9", 1)
	set("A10", "beta")
	set("B10", 2)

	cfg := &mapping.Config{
		Sheets: []mapping.Sheet{{
			Name: sheet,
			Subtables: []mapping.Subtable{
				{
					Name: "line_items",
					Kind: mapping.KindTable,
					HeaderSearch: mapping.HeaderSearch{
						Method: mapping.MethodExactMatch,
						Text:   "Description",
						Column: "A",
					},
					ExpansionBehavior: mapping.ExpandOverwrite,
					ColumnMappings: mapping.ColumnMappings{
						{Source: "Description", Name: "description", Type: mapping.TypeText},
						{Source: "Amount", Name: "amount", Type: mapping.TypeNumber},
					},
				},
				{
					Name: "roster",
					Kind: mapping.KindTable,
					HeaderSearch: mapping.HeaderSearch{
						Method: mapping.MethodExactMatch,
						Text:   "Name",
						Column: "A",
					},
					ColumnMappings: mapping.ColumnMappings{
						{Source: "Name", Name: "name", Type: mapping.TypeText},
						{Source: "Qty", Name: "qty", Type: mapping.TypeNumber},
					},
				},
			},
		}},
	}

	payload := map[string]map[string]any{
		sheet: {
			"line_items": items(
				[2]any{"one", 1.0}, [2]any{"two", 2.0},
				[2]any{"three", 3.0}, [2]any{"four", 4.0},
			),
			"roster": []map[string]any{
				{"name": "gamma", "qty": 9.0},
				{"name": "delta", "qty": 8.0},
			},
		},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)
	assert.Empty(t, result.CellErrors)

	// The first table grew over the rows below it.
	assert.Equal(t, "four", cell(t, wb, "A5"))

	// The second table's anchor did not move: writes land on the original
	// rows, not two rows down.
	assert.Equal(t, "gamma", cell(t, wb, "A9"))
	assert.Equal(t, "8", cell(t, wb, "B10"))
	assert.Equal(t, "", cell(t, wb, "A11"))
}

func TestMaxExpansionRowsClamp(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()
	cfg.Sheets[0].Subtables[1].MaxExpansionRows = 1

	payload := map[string]map[string]any{
		sheet: {
			"line_items": items(
				[2]any{"1", 1.0}, [2]any{"2", 2.0}, [2]any{"3", 3.0},
				[2]any{"4", 4.0}, [2]any{"5", 5.0},
			),
		},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)
	assert.Greater(t, result.Summary.Warnings, 0)

	assert.Equal(t, "4", cell(t, wb, "B10"))
	// Row five was dropped by the clamp; the preserved block moved by one.
	assert.Equal(t, "Grand Total", cell(t, wb, "A13"))
}

func TestUpdateLogWorksheetWritten(t *testing.T) {
	wb := makeFixture(t)
	cfg := makeConfig()

	payload := map[string]map[string]any{
		sheet: {"client_info": map[string]any{"name": "New Name"}},
	}

	result, err := New(cfg).Run(wb, payload, nil)
	require.NoError(t, err)

	require.True(t, wb.HasSheet(audit.LogSheetName))
	header, err := wb.CellValue(audit.LogSheetName, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp", header)
	assert.Greater(t, result.Summary.Total, 0)
}
