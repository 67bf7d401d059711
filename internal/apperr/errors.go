// Package apperr defines the error kinds shared across myfview packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrWatchLost         = errors.New("watch lost")
)

// RecordError reports a record that exists but could not be read or decoded.
type RecordError struct {
	Name string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %q: %v", e.Name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ConfigParseError reports a configuration file that failed to read, decode or validate.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// RenderError reports a template or encoder failure.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
