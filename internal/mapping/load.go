package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a configuration document from disk. The format is chosen by
// file extension: .yaml/.yml parse as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s — check that the path is correct", path)
		}
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// rawConfig mirrors the document layout, deferring sheet_configs so key
// order can be recovered from the raw token stream.
type rawConfig struct {
	Version        string          `json:"version" yaml:"version"`
	GlobalSettings GlobalSettings  `json:"global_settings" yaml:"global_settings"`
	SheetConfigs   json.RawMessage `json:"sheet_configs" yaml:"-"`
}

// ParseJSON parses a JSON configuration document. Sheet and column-mapping
// order follows the document's declaration order.
func ParseJSON(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}

	cfg := &Config{Version: raw.Version, GlobalSettings: raw.GlobalSettings}

	if len(raw.SheetConfigs) > 0 {
		sheets, err := decodeSheetConfigs(raw.SheetConfigs)
		if err != nil {
			return nil, err
		}
		cfg.Sheets = sheets
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeSheetConfigs walks the sheet_configs object token by token so the
// sheet order in the file is preserved.
func decodeSheetConfigs(raw json.RawMessage) ([]Sheet, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid sheet_configs: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("sheet_configs must be an object of sheet name to subtable list")
	}

	var sheets []Sheet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid sheet_configs: %w", err)
		}
		name := keyTok.(string)

		var body struct {
			Subtables []Subtable `json:"subtables"`
		}
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid configuration for sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Subtables: body.Subtables})
	}
	return sheets, nil
}

// UnmarshalJSON accepts both the compact form ("Header": "field_name") and
// the full form ("Header": {"name": ..., "type": ...}), preserving the
// object's key order.
func (m *ColumnMappings) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("column_mappings must be an object")
	}

	var out ColumnMappings
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		source := keyTok.(string)

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return err
		}

		cm, err := parseMappingValue(source, func(v any) error { return json.Unmarshal(val, v) })
		if err != nil {
			return err
		}
		out = append(out, cm)
	}
	*m = out
	return nil
}

// UnmarshalYAML is the yaml.v3 counterpart of UnmarshalJSON.
func (m *ColumnMappings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("column_mappings must be a mapping")
	}

	var out ColumnMappings
	for i := 0; i+1 < len(node.Content); i += 2 {
		source := node.Content[i].Value
		val := node.Content[i+1]

		cm, err := parseMappingValue(source, val.Decode)
		if err != nil {
			return err
		}
		out = append(out, cm)
	}
	*m = out
	return nil
}

// parseMappingValue decodes a single mapping value through the given decode
// function, trying the compact string form first.
func parseMappingValue(source string, decode func(any) error) (ColumnMapping, error) {
	var name string
	if err := decode(&name); err == nil {
		return ColumnMapping{Source: source, Name: name, Type: TypeText}, nil
	}

	var full struct {
		Name string `json:"name" yaml:"name"`
		Type string `json:"type" yaml:"type"`
	}
	if err := decode(&full); err != nil {
		return ColumnMapping{}, fmt.Errorf("invalid mapping for column %q: %w", source, err)
	}
	if full.Type == "" {
		full.Type = TypeText
	}
	return ColumnMapping{Source: source, Name: full.Name, Type: full.Type}, nil
}

// ParseYAML parses a YAML configuration document.
func ParseYAML(data []byte) (*Config, error) {
	var doc struct {
		Version        string         `yaml:"version"`
		GlobalSettings GlobalSettings `yaml:"global_settings"`
		SheetConfigs   yaml.Node      `yaml:"sheet_configs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid config YAML: %w", err)
	}

	cfg := &Config{Version: doc.Version, GlobalSettings: doc.GlobalSettings}

	if doc.SheetConfigs.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.SheetConfigs.Content); i += 2 {
			name := doc.SheetConfigs.Content[i].Value
			var body struct {
				Subtables []Subtable `yaml:"subtables"`
			}
			if err := doc.SheetConfigs.Content[i+1].Decode(&body); err != nil {
				return nil, fmt.Errorf("invalid configuration for sheet %q: %w", name, err)
			}
			cfg.Sheets = append(cfg.Sheets, Sheet{Name: name, Subtables: body.Subtables})
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
