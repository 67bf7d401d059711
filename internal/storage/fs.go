package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/checksum"
	"github.com/starford/myfview/internal/codec"
	"github.com/starford/myfview/internal/models"
)

// FS implements Provider backed by the local file system. Every call reads
// from disk; there is no lookup cache.
type FS struct {
	root string // absolute path to the myfiles directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute store directory.
func (f *FS) Root() string { return f.root }

// ValidateIdentifier rejects identifiers that could address anything other
// than a single file directly under the store root.
func ValidateIdentifier(name string) error {
	if name == "" || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidIdentifier, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidIdentifier, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character in %q", apperr.ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// safePath resolves name+ext against the root and rejects any result that
// escapes it (directory traversal).
func (f *FS) safePath(name, ext string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	abs := filepath.Join(f.root, name+ext)
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("%w: path escapes store root: %s", apperr.ErrInvalidIdentifier, name)
	}
	return abs, nil
}

// Read returns the raw bytes of the first existing record file for name,
// trying codec.Extensions in order.
func (f *FS) Read(name string) ([]byte, string, error) {
	for _, ext := range codec.Extensions {
		abs, err := f.safePath(name, ext)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(abs)
		if err == nil {
			return data, ext, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", &apperr.RecordError{Name: name, Err: err}
		}
	}
	return nil, "", fmt.Errorf("storage: %s: %w", name, apperr.ErrNotFound)
}

// Lookup reads and decodes the record for name.
func (f *FS) Lookup(name string) (models.Record, error) {
	data, ext, err := f.Read(name)
	if err != nil {
		return nil, err
	}
	rec, err := codec.Decode(ext, data)
	if err != nil {
		return nil, &apperr.RecordError{Name: name, Err: err}
	}
	return rec, nil
}

// List returns metadata for every record file directly under the root.
// When a name exists with several extensions only the one Read would pick
// is reported.
func (f *FS) List() ([]models.MyfileMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	seen := make(map[string]int)
	var out []models.MyfileMetadata
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ext, ok := SplitRecordFile(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		meta := models.MyfileMetadata{
			Name:      name,
			Ext:       ext,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		}
		if i, dup := seen[name]; dup {
			if extRank(ext) < extRank(out[i].Ext) {
				out[i] = meta
			}
			continue
		}
		seen[name] = len(out)
		out = append(out, meta)
	}
	return out, nil
}

// SplitRecordFile splits a file name into identifier and extension, reporting
// whether it is a record file.
func SplitRecordFile(file string) (string, string, bool) {
	ext := filepath.Ext(file)
	if extRank(ext) < 0 {
		return "", "", false
	}
	name := strings.TrimSuffix(file, ext)
	if ValidateIdentifier(name) != nil {
		return "", "", false
	}
	return name, ext, true
}

func extRank(ext string) int {
	for i, e := range codec.Extensions {
		if e == ext {
			return i
		}
	}
	return -1
}
