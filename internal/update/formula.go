package update

import (
	"regexp"
	"strconv"
)

var cellRefPattern = regexp.MustCompile(`(\$?[A-Z]+)(\$?)(\d+)`)

// RewriteFormula shifts the relative row references in a formula by shift
// rows, touching only references at or below fromRow. Absolute row references
// ($-anchored rows) are left alone, as are references above the shift point.
func RewriteFormula(formula string, shift, fromRow int) string {
	if shift == 0 || formula == "" {
		return formula
	}

	return cellRefPattern.ReplaceAllStringFunc(formula, func(ref string) string {
		m := cellRefPattern.FindStringSubmatch(ref)
		col, rowAnchor, rowText := m[1], m[2], m[3]
		if rowAnchor == "$" {
			return ref
		}
		row, err := strconv.Atoi(rowText)
		if err != nil || row < fromRow {
			return ref
		}
		return col + strconv.Itoa(row+shift)
	})
}
