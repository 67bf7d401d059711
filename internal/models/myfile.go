// Package models defines the domain types for myfview.
package models

import (
	"maps"
	"time"
)

// Record is a stored myfile: an open mapping of field name to value.
// Values are strings, numbers, booleans, lists or nested mappings.
type Record map[string]any

// Clone returns a shallow copy. Stored records are never mutated in place.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Name returns the optional "name" field when it is a non-empty string.
func (r Record) Name() string {
	if s, ok := r["name"].(string); ok {
		return s
	}
	return ""
}

// MyfileMetadata is a lightweight representation returned by list operations.
type MyfileMetadata struct {
	Name      string    `json:"name"`
	Ext       string    `json:"ext"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
