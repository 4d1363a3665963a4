package mapping

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError collects every structural problem found in a configuration
// document, not just the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

var (
	cellRangePattern = regexp.MustCompile(`^[A-Z]+\d+(:[A-Z]+\d+)?$`)
	cellAddrPattern  = regexp.MustCompile(`^[A-Z]+\d+$`)
	columnPattern    = regexp.MustCompile(`^[A-Z]{1,3}$`)
)

// ValidCellRange reports whether s is an A1-style cell or range reference.
func ValidCellRange(s string) bool {
	return cellRangePattern.MatchString(strings.ToUpper(s))
}

// ValidCellAddress reports whether s is a single A1-style cell reference.
func ValidCellAddress(s string) bool {
	return cellAddrPattern.MatchString(strings.ToUpper(s))
}

// ValidColumn reports whether s is a column letter reference like "A" or "BC".
func ValidColumn(s string) bool {
	return columnPattern.MatchString(strings.ToUpper(s))
}

// Validate checks the structural integrity of a configuration and returns a
// *ValidationError listing every problem found.
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(cfg.Sheets) == 0 {
		add("sheet_configs must define at least one sheet")
	}

	for _, sheet := range cfg.Sheets {
		if len(sheet.Subtables) == 0 {
			add("sheet %q has no subtables", sheet.Name)
			continue
		}

		seen := make(map[string]bool)
		for _, st := range sheet.Subtables {
			where := fmt.Sprintf("sheet %q subtable %q", sheet.Name, st.Name)

			if st.Name == "" {
				add("sheet %q has a subtable without a name", sheet.Name)
				continue
			}
			if seen[st.Name] {
				add("sheet %q has duplicate subtable name %q", sheet.Name, st.Name)
			}
			seen[st.Name] = true

			switch st.Kind {
			case KindKeyValuePairs, KindTable:
			case "":
				add("%s is missing a kind", where)
			default:
				add("%s has unknown kind %q", where, st.Kind)
			}

			validateHeaderSearch(st, where, add)

			if st.Orientation != "" && st.Orientation != OrientationHorizontal && st.Orientation != OrientationVertical {
				add("%s has invalid orientation %q", where, st.Orientation)
			}

			if st.MaxRows < 0 || st.MaxColumns < 0 {
				add("%s has negative max_rows or max_columns", where)
			}
			if st.MaxExpansionRows < 0 {
				add("%s has negative max_expansion_rows", where)
			}

			switch st.ExpansionBehavior {
			case "", ExpandPreserveBelow, ExpandOverwrite, ExpandError:
			default:
				add("%s has invalid expansion_behavior %q (want preserve_below, overwrite or error)",
					where, st.ExpansionBehavior)
			}

			validateColumnMappings(st, where, add)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateHeaderSearch(st Subtable, where string, add func(string, ...any)) {
	hs := st.HeaderSearch
	switch hs.Method {
	case MethodContainsText, MethodExactMatch, MethodRegex:
		if hs.Text == "" {
			add("%s: %s search requires a text field", where, hs.Method)
		}
		if hs.SearchRange != "" && !ValidCellRange(hs.SearchRange) {
			add("%s: invalid search_range %q", where, hs.SearchRange)
		}
		if hs.Column != "" && !ValidColumn(hs.Column) {
			add("%s: invalid search column %q", where, hs.Column)
		}
	case MethodCellAddress:
		if hs.Cell == "" {
			add("%s: cell_address search requires a cell field", where)
		} else if !ValidCellAddress(hs.Cell) {
			add("%s: invalid cell address %q", where, hs.Cell)
		}
	case "":
		add("%s is missing a header_search method", where)
	default:
		add("%s has unsupported header_search method %q", where, hs.Method)
	}
}

func validateColumnMappings(st Subtable, where string, add func(string, ...any)) {
	seen := make(map[string]bool)
	for _, cm := range st.ColumnMappings {
		if cm.Source == "" {
			add("%s has a column mapping with an empty source header", where)
			continue
		}
		if seen[cm.Source] {
			add("%s maps header %q more than once", where, cm.Source)
		}
		seen[cm.Source] = true

		switch cm.Type {
		case TypeText, TypeNumber, TypeDate, TypeBoolean, TypeImage, TypeFormula:
		default:
			add("%s: header %q has unknown value type %q", where, cm.Source, cm.Type)
		}
	}
}
