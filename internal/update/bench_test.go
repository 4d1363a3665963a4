package update

import (
	"fmt"
	"testing"

	"github.com/klytics/mergekit/internal/xlsx"
)

func benchWorkbook(b *testing.B, rows int) *xlsx.Workbook {
	b.Helper()
	wb := xlsx.New()

	set := func(row, col int, v any) {
		if err := wb.SetCell(sheet, row, col, v); err != nil {
			b.Fatal(err)
		}
	}

	set(1, 1, "Client Information")
	set(2, 1, "Client Name")
	set(2, 2, "Acme")
	set(3, 1, "Total Value")
	set(3, 2, 100)

	set(6, 1, "Description")
	set(6, 2, "Amount")
	for i := 0; i < rows; i++ {
		set(7+i, 1, fmt.Sprintf("item %d", i+1))
		set(7+i, 2, float64(i+1)*10)
	}

	b.Cleanup(func() { _ = wb.Close() })
	return wb
}

func benchData(rows int) map[string]map[string]any {
	records := make([]map[string]any, rows)
	for i := range records {
		records[i] = map[string]any{
			"description": fmt.Sprintf("replacement %d", i+1),
			"amount":      float64(i+1) * 11,
		}
	}
	return map[string]map[string]any{
		sheet: {
			"client_info": map[string]any{"name": "Updated Corp", "total_value": 200},
			"line_items":  records,
		},
	}
}

func BenchmarkUpdateSameSize(b *testing.B) {
	engine := New(makeConfig())
	data := benchData(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		wb := benchWorkbook(b, 100)
		b.StartTimer()

		if _, err := engine.Run(wb, data, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUpdateWithExpansion(b *testing.B) {
	engine := New(makeConfig())
	data := benchData(200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		wb := benchWorkbook(b, 100)
		b.StartTimer()

		if _, err := engine.Run(wb, data, nil); err != nil {
			b.Fatal(err)
		}
	}
}
