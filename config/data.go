package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadData reads the values a template is rendered with. YAML files are
// decoded as YAML; .json and .jsonc files may contain comments and trailing
// commas. The top level must be a mapping.
func LoadData(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return ParseData(raw, filepath.Ext(path))
}

// ParseData decodes data in the format named by ext.
func ParseData(raw []byte, ext string) (map[string]any, error) {
	data := map[string]any{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to parse data: %w", err)
		}
	case ".json", ".jsonc":
		dec := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(bytes.NewReader(jsonc.ToJSON(raw)))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to parse data: %w", err)
		}
		for k, v := range data {
			data[k] = normalizeNumbers(v)
		}
	default:
		return nil, fmt.Errorf("unsupported data format %q (use .yaml, .yml, .json or .jsonc)", ext)
	}
	return data, nil
}

// normalizeNumbers turns JSON numbers into int where they are whole, and
// float64 otherwise, so integer values can be bound to attributes.
func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, e := range v {
			v[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range v {
			v[i] = normalizeNumbers(e)
		}
	}
	return v
}
