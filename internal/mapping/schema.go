// Package mapping defines the declarative configuration that drives Excel
// extraction and update: which sheets to process, how to locate each subtable,
// and how spreadsheet headers map to canonical field names.
package mapping

// Subtable kinds. The set is closed: key-value blocks are fixed-size, tables
// may grow or shrink between extraction and update.
const (
	KindKeyValuePairs = "key_value_pairs"
	KindTable         = "table"
)

// Header search methods.
const (
	MethodContainsText = "contains_text"
	MethodExactMatch   = "exact_match"
	MethodCellAddress  = "cell_address"
	MethodRegex        = "regex"
)

// Orientations.
const (
	OrientationHorizontal = "horizontal"
	OrientationVertical   = "vertical"
)

// Expansion behaviors for table subtables whose row count grows on update.
const (
	ExpandPreserveBelow = "preserve_below"
	ExpandOverwrite     = "overwrite"
	ExpandError         = "error"
)

// Processing priorities. Fixed-size subtables are written first so their
// positions are locked before any expandable table can shift rows below it.
const (
	PriorityFixed      = 1
	PriorityExpandable = 2
)

// Value types for column mappings.
const (
	TypeText    = "text"
	TypeNumber  = "number"
	TypeDate    = "date"
	TypeBoolean = "boolean"
	TypeImage   = "image"
	TypeFormula = "formula"
)

// HeaderSearch describes how to locate a subtable's anchor cell.
type HeaderSearch struct {
	Method      string `json:"method" yaml:"method"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Column      string `json:"column,omitempty" yaml:"column,omitempty"`
	SearchRange string `json:"search_range,omitempty" yaml:"search_range,omitempty"`
	Cell        string `json:"cell,omitempty" yaml:"cell,omitempty"`
}

// ColumnMapping binds one source header (or key cell text) to a canonical
// field name and value type.
type ColumnMapping struct {
	Source string
	Name   string
	Type   string
}

// ColumnMappings preserves the configuration file's declaration order, which
// is significant for output column ordering.
type ColumnMappings []ColumnMapping

// Lookup returns the mapping for a source header, matched on trimmed text.
func (m ColumnMappings) Lookup(source string) (ColumnMapping, bool) {
	for _, cm := range m {
		if cm.Source == source {
			return cm, true
		}
	}
	return ColumnMapping{}, false
}

// Subtable is a named, independently configured data region within a sheet.
type Subtable struct {
	Name             string         `json:"name" yaml:"name"`
	Kind             string         `json:"kind" yaml:"kind"`
	HeaderSearch     HeaderSearch   `json:"header_search" yaml:"header_search"`
	Orientation      string         `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	HeadersRowOffset int            `json:"headers_row_offset,omitempty" yaml:"headers_row_offset,omitempty"`
	HeadersColOffset int            `json:"headers_col_offset,omitempty" yaml:"headers_col_offset,omitempty"`
	DataRowOffset    *int           `json:"data_row_offset,omitempty" yaml:"data_row_offset,omitempty"`
	DataColOffset    *int           `json:"data_col_offset,omitempty" yaml:"data_col_offset,omitempty"`
	MaxRows          int            `json:"max_rows,omitempty" yaml:"max_rows,omitempty"`
	MaxColumns       int            `json:"max_columns,omitempty" yaml:"max_columns,omitempty"`
	EndMarker        string         `json:"end_marker,omitempty" yaml:"end_marker,omitempty"`
	ColumnMappings   ColumnMappings `json:"column_mappings,omitempty" yaml:"column_mappings,omitempty"`

	// Update-only fields.
	ProcessingPriority int    `json:"processing_priority,omitempty" yaml:"processing_priority,omitempty"`
	ExpansionBehavior  string `json:"expansion_behavior,omitempty" yaml:"expansion_behavior,omitempty"`
	MaxExpansionRows   int    `json:"max_expansion_rows,omitempty" yaml:"max_expansion_rows,omitempty"`
	CopyFirstRowStyle  *bool  `json:"copy_first_row_style,omitempty" yaml:"copy_first_row_style,omitempty"`
}

// Sheet pairs a worksheet name with its ordered subtable list. Order is the
// tiebreak within an update priority tier; extraction ignores it.
type Sheet struct {
	Name      string
	Subtables []Subtable
}

// Validation groups the strictness settings for extraction.
type Validation struct {
	StrictMode       bool     `json:"strict_mode" yaml:"strict_mode"`
	AllowEmptyValues *bool    `json:"allow_empty_values,omitempty" yaml:"allow_empty_values,omitempty"`
	RequiredFields   []string `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
}

// OutputFormatting controls value rendering in extracted output.
type OutputFormatting struct {
	DateFormat   string `json:"date_format,omitempty" yaml:"date_format,omitempty"`
	NumberFormat string `json:"number_format,omitempty" yaml:"number_format,omitempty"`
}

// GlobalSettings apply across all sheets.
type GlobalSettings struct {
	NormalizeKeys    *bool            `json:"normalize_keys,omitempty" yaml:"normalize_keys,omitempty"`
	Validation       Validation       `json:"validation" yaml:"validation"`
	OutputFormatting OutputFormatting `json:"output_formatting" yaml:"output_formatting"`
}

// Config is a complete extraction/update configuration document.
type Config struct {
	Version        string         `json:"version,omitempty" yaml:"version,omitempty"`
	GlobalSettings GlobalSettings `json:"global_settings" yaml:"global_settings"`
	Sheets         []Sheet        `json:"-" yaml:"-"`
}

// DefaultDateFormat is the Go layout used when output_formatting.date_format
// is absent.
const DefaultDateFormat = "2006-01-02"

// DefaultConsecutiveEmpty is how many fully-empty rows/columns end a region.
const DefaultConsecutiveEmpty = 2

// NormalizeKeysEnabled reports whether unmapped headers should be normalized.
// Defaults to true when unset.
func (g GlobalSettings) NormalizeKeysEnabled() bool {
	return g.NormalizeKeys == nil || *g.NormalizeKeys
}

// AllowEmpty reports whether missing data cells may yield empty values.
// Defaults to true when unset.
func (v Validation) AllowEmpty() bool {
	return v.AllowEmptyValues == nil || *v.AllowEmptyValues
}

// DateFormat returns the configured Go date layout or the default.
func (o OutputFormatting) DateLayout() string {
	if o.DateFormat != "" {
		return o.DateFormat
	}
	return DefaultDateFormat
}

// Priority resolves the subtable's processing priority: an explicit value
// wins, otherwise key-value blocks are fixed and tables are expandable.
func (s Subtable) Priority() int {
	if s.ProcessingPriority != 0 {
		return s.ProcessingPriority
	}
	if s.Kind == KindTable {
		return PriorityExpandable
	}
	return PriorityFixed
}

// Expandable reports whether the subtable may change row count on update.
func (s Subtable) Expandable() bool {
	return s.Kind == KindTable
}

// Behavior resolves the expansion behavior, defaulting to preserve_below.
func (s Subtable) Behavior() string {
	if s.ExpansionBehavior != "" {
		return s.ExpansionBehavior
	}
	return ExpandPreserveBelow
}

// DataRowOff returns the data row offset relative to the header row,
// defaulting to 1 (data starts on the row below the headers).
func (s Subtable) DataRowOff() int {
	if s.DataRowOffset != nil {
		return *s.DataRowOffset
	}
	return 1
}

// DataColOff returns the data column offset for vertical key-value layouts,
// defaulting to 1 (values sit in the column beside the keys).
func (s Subtable) DataColOff() int {
	if s.DataColOffset != nil {
		return *s.DataColOffset
	}
	return 1
}

// LimitRows returns the configured row cap or the given default.
func (s Subtable) LimitRows(def int) int {
	if s.MaxRows > 0 {
		return s.MaxRows
	}
	return def
}

// LimitColumns returns the configured column cap or the given default.
func (s Subtable) LimitColumns(def int) int {
	if s.MaxColumns > 0 {
		return s.MaxColumns
	}
	return def
}

// CopyStyle reports whether new table rows inherit the first data row's
// formatting on update. Defaults to true.
func (s Subtable) CopyStyle() bool {
	return s.CopyFirstRowStyle == nil || *s.CopyFirstRowStyle
}

// Sheet returns the configuration for a sheet by name.
func (c *Config) Sheet(name string) (*Sheet, bool) {
	for i := range c.Sheets {
		if c.Sheets[i].Name == name {
			return &c.Sheets[i], true
		}
	}
	return nil, false
}
