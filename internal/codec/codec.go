// Package codec decodes stored myfiles and encodes records into the
// structured output formats (JSON, YAML, TOML).
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/starford/myfview/internal/models"
)

// Extensions lists the record file extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

// Decode parses data according to the file extension ext.
func Decode(ext string, data []byte) (models.Record, error) {
	rec := models.Record{}
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("codec: decode json: %w", err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, errors.New("codec: decode json: trailing data after record")
		}
		for k, v := range raw {
			rec[k] = normalizeNumbers(v)
		}
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("codec: decode yaml: %w", err)
		}
		if raw != nil {
			m, ok := normalizeKeys(raw).(map[string]any)
			if !ok {
				return nil, fmt.Errorf("codec: decode yaml: document is a %T, not a mapping", raw)
			}
			rec = m
		}
	case ".toml":
		if err := toml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("codec: decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("codec: unsupported extension %q", ext)
	}
	if rec == nil {
		rec = models.Record{}
	}
	return rec, nil
}

// EncodeJSON serialises rec as compact JSON without HTML escaping.
func EncodeJSON(rec models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("codec: encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeYAML serialises rec as a YAML document.
func EncodeYAML(rec models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeTOML serialises rec as a TOML document. TOML has no null, so nil
// values are dropped.
func EncodeTOML(rec models.Record) ([]byte, error) {
	out, err := toml.Marshal(dropNulls(map[string]any(rec)))
	if err != nil {
		return nil, fmt.Errorf("codec: encode toml: %w", err)
	}
	return out, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeNumbers(inner)
		}
		return t
	default:
		return v
	}
}

// normalizeKeys turns YAML mappings with non-string keys into string-keyed
// maps so every record encodes as JSON and TOML.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = normalizeKeys(inner)
		}
		return out
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeKeys(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeKeys(inner)
		}
		return t
	default:
		return v
	}
}

func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = dropNulls(t)
		case []any:
			items := make([]any, 0, len(t))
			for _, item := range t {
				if item == nil {
					continue
				}
				if inner, ok := item.(map[string]any); ok {
					item = dropNulls(inner)
				}
				items = append(items, item)
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
