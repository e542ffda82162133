package serial

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Map is the decoded form of a serialized object.
type Map = map[string]any

// Serializable is implemented by values that can render themselves as a Map.
type Serializable interface {
	ToMap() (Map, error)
}

// Format identifies an on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from the file extension. Unknown
// extensions fall back to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Marshal encodes m in the requested format. JSON output is indented so files
// stay readable when inspected by hand.
func Marshal(m Map, format Format) ([]byte, error) {
	if m == nil {
		m = Map{}
	}
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("encode: unsupported format %q", format)
	}
}

// Unmarshal decodes data into a Map. Blank input yields an empty map.
func Unmarshal(data []byte, format Format) (Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Map{}, nil
	}
	var m Map
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode: unsupported format %q", format)
	}
	if m == nil {
		m = Map{}
	}
	return m, nil
}

// ReadFile loads the map stored at path.
func ReadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := Unmarshal(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// WriteFile stores m at path, creating parent directories as needed. The
// write goes through a temp file and a rename.
func WriteFile(path string, m Map) error {
	data, err := Marshal(m, FormatForPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Write serializes s and stores it at path.
func Write(path string, s Serializable) error {
	if s == nil {
		return errors.New("write: nil value")
	}
	m, err := s.ToMap()
	if err != nil {
		return err
	}
	return WriteFile(path, m)
}

// Decode copies the contents of m into the value pointed to by out using
// the JSON field rules of out's type.
func Decode(m Map, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("decode map: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode map: %w", err)
	}
	return nil
}

// Normalize converts v to its generic decoded form (maps, lists, strings,
// float64, bool, nil) so maps built from Go values compare equal to maps read
// back from disk.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Assign decodes a single decoded value into the value pointed to by out.
func Assign(value any, out any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// String returns m[key] when it holds a string.
func String(m Map, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Slice returns m[key] when it holds a list.
func Slice(m Map, key string) ([]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// AsMap converts a decoded value to a Map. YAML documents may decode nested
// objects with non-string keys; those are converted with fmt.Sprint.
func AsMap(v any) (Map, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(Map, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
