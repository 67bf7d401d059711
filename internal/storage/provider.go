// Package storage defines the myfile record store abstraction.
package storage

import "github.com/starford/myfview/internal/models"

// Provider is the interface for record store operations.
type Provider interface {
	// Lookup resolves an identifier to its decoded record. A missing record
	// yields apperr.ErrNotFound; an unreadable or corrupt one an *apperr.RecordError.
	Lookup(name string) (models.Record, error)
	// Read returns the raw bytes and extension of the record file for name.
	Read(name string) ([]byte, string, error)
	// List returns metadata for every record file under the store root.
	List() ([]models.MyfileMetadata, error)
	// Root returns the absolute store directory.
	Root() string
}
