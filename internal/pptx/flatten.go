package pptx

import (
	"fmt"
	"strconv"

	"github.com/klytics/mergekit/internal/extract"
)

// Flatten turns an extraction result into the dotted merge-field values a
// template addresses. Key-value fields flatten to "sheet.subtable.field" and
// table rows to "sheet.subtable.N.field" with 1-based row numbers. When a
// subtable name is unique across sheets, the shorter "subtable.field" path is
// provided as well.
func Flatten(data map[string]map[string]any) map[string]string {
	values := make(map[string]string)

	subtableSheets := make(map[string]int)
	for _, subtables := range data {
		for name := range subtables {
			subtableSheets[name]++
		}
	}

	for sheet, subtables := range data {
		for name, value := range subtables {
			unique := subtableSheets[name] == 1
			flattenSubtable(values, sheet+"."+name, name, unique, value)
		}
	}
	return values
}

func flattenSubtable(values map[string]string, fullPrefix, shortPrefix string, unique bool, value any) {
	put := func(suffix, rendered string) {
		values[fullPrefix+suffix] = rendered
		if unique {
			values[shortPrefix+suffix] = rendered
		}
	}

	switch v := value.(type) {
	case extract.Record:
		for field, cell := range v {
			put("."+field, renderValue(cell))
		}
	case map[string]any:
		for field, cell := range v {
			put("."+field, renderValue(cell))
		}
	case []extract.Record:
		for i, rec := range v {
			for field, cell := range rec {
				put("."+strconv.Itoa(i+1)+"."+field, renderValue(cell))
			}
		}
	case []any:
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for field, cell := range rec {
				put("."+strconv.Itoa(i+1)+"."+field, renderValue(cell))
			}
		}
	}
}

// renderValue formats a typed extraction value for slide text.
func renderValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(value)
	}
}
