// Package config provides configuration file loading with environment
// variable expansion. The decoder is chosen by file extension: YAML
// (default), JSON or TOML.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a file with environment variable expansion.
// Fields absent from the file keep the values already present in target, so
// callers pass a target pre-populated with defaults.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return Decode(filename, data, target)
}

// Decode parses data as the format implied by filename and validates the result.
func Decode[T any](filename string, data []byte, target *T) error {
	expanded := []byte(os.ExpandEnv(string(data)))

	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		err = json.NewDecoder(bytes.NewReader(expanded)).Decode(target)
	case ".toml":
		err = toml.Unmarshal(expanded, target)
	default:
		err = yaml.Unmarshal(expanded, target)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
