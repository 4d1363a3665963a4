package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteFormula(t *testing.T) {
	cases := []struct {
		name    string
		formula string
		shift   int
		fromRow int
		want    string
	}{
		{
			name:    "shifts refs at or below the shift point",
			formula: "SUM(B10:B12)+C15",
			shift:   2,
			fromRow: 10,
			want:    "SUM(B12:B14)+C17",
		},
		{
			name:    "leaves refs above the shift point",
			formula: "B5+B10",
			shift:   3,
			fromRow: 10,
			want:    "B5+B13",
		},
		{
			name:    "absolute rows stay anchored",
			formula: "B$10+$C10+$D$10",
			shift:   2,
			fromRow: 10,
			want:    "B$10+$C12+$D$10",
		},
		{
			name:    "range ending at the boundary row follows the shift",
			formula: "SUM(B7:B9)",
			shift:   2,
			fromRow: 9,
			want:    "SUM(B7:B11)",
		},
		{
			name:    "zero shift is identity",
			formula: "SUM(A1:A100)",
			shift:   0,
			fromRow: 1,
			want:    "SUM(A1:A100)",
		},
		{
			name:    "negative shift moves refs up",
			formula: "A20",
			shift:   -3,
			fromRow: 15,
			want:    "A17",
		},
		{
			name:    "functions and text pass through",
			formula: `IF(D12>0,"yes","no")`,
			shift:   1,
			fromRow: 12,
			want:    `IF(D13>0,"yes","no")`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RewriteFormula(tc.formula, tc.shift, tc.fromRow))
		})
	}
}
