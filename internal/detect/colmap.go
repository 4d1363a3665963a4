package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/xlsx"
)

var nonWordRun = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeKey converts arbitrary header text to a canonical snake_case field
// name: lowercase, runs of non-alphanumerics collapse to a single underscore,
// leading and trailing underscores are stripped, names starting with a digit
// get a "col_" prefix, and empty input becomes "unnamed_column".
func NormalizeKey(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	key = nonWordRun.ReplaceAllString(key, "_")
	key = strings.Trim(key, "_")
	if key == "" {
		return "unnamed_column"
	}
	if unicode.IsDigit(rune(key[0])) {
		key = "col_" + key
	}
	return key
}

// HeaderCell is one non-empty header found during a header scan, with its
// absolute column (or row, for vertical layouts).
type HeaderCell struct {
	Pos  int
	Text string
}

// TableHeaders scans the header row rightward from startCol and returns the
// non-empty header cells in order. The scan stops on a run of consecutive
// empty cells or at the column cap.
func TableHeaders(wb *xlsx.Workbook, sheet string, headerRow, startCol int, lim Limits) ([]HeaderCell, error) {
	var headers []HeaderCell
	emptyRun := 0

	for i := 0; i < lim.Max; i++ {
		col := startCol + i
		v, err := wb.CellValue(sheet, headerRow, col)
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(v)
		if text == "" {
			emptyRun++
			if emptyRun >= lim.ConsecutiveEmpty {
				break
			}
			continue
		}
		emptyRun = 0
		headers = append(headers, HeaderCell{Pos: col, Text: text})
	}
	return headers, nil
}

// Field binds a spreadsheet column (or key row) to a canonical output field.
type Field struct {
	Pos    int
	Source string
	Name   string
	Type   string
	Mapped bool
}

// ResolveFields matches scanned headers against the configured column
// mappings. Unmapped headers fall back to the normalized (or raw) header text
// and the text value type. Duplicate field names get a numeric suffix so no
// value silently overwrites another.
func ResolveFields(headers []HeaderCell, mappings mapping.ColumnMappings, normalize bool) []Field {
	fields := make([]Field, 0, len(headers))
	used := make(map[string]int)

	for _, h := range headers {
		f := Field{Pos: h.Pos, Source: h.Text, Type: mapping.TypeText}
		if cm, ok := mappings.Lookup(h.Text); ok {
			f.Name = cm.Name
			f.Type = cm.Type
			f.Mapped = true
		} else if normalize {
			f.Name = NormalizeKey(h.Text)
		} else {
			f.Name = h.Text
		}

		used[f.Name]++
		if n := used[f.Name]; n > 1 {
			f.Name = fmt.Sprintf("%s_%d", f.Name, n)
		}
		fields = append(fields, f)
	}
	return fields
}

// Coercer converts raw cell contents to typed output values.
type Coercer struct {
	DateLayout string
}

// Coerce interprets a cell according to its configured value type. formatted
// is the cell's display value, raw the unformatted stored value. Values that
// fail to parse fall back to the formatted string so extraction stays
// lossless.
func (c Coercer) Coerce(formatted, raw, typ string) any {
	switch typ {
	case mapping.TypeNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return n
		}
		cleaned := strings.ReplaceAll(strings.TrimSpace(formatted), ",", "")
		if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return n
		}
		return formatted

	case mapping.TypeDate:
		if serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			if t, err := xlsx.SerialToTime(serial); err == nil {
				return t.Format(c.layout())
			}
		}
		return formatted

	case mapping.TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes", "y":
			return true
		case "0", "false", "no", "n":
			return false
		}
		switch strings.ToLower(strings.TrimSpace(formatted)) {
		case "true", "yes", "y":
			return true
		case "false", "no", "n":
			return false
		}
		return formatted

	default:
		return formatted
	}
}

func (c Coercer) layout() string {
	if c.DateLayout != "" {
		return c.DateLayout
	}
	return mapping.DefaultDateFormat
}
