package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/myfview/internal/checksum"
	"github.com/starford/myfview/internal/codec"
	"github.com/starford/myfview/internal/models"
	"github.com/starford/myfview/internal/storage"
)

// FieldFilter is applied to every record before it is indexed, e.g. to drop
// private fields. A nil FieldFilter indexes records unchanged.
type FieldFilter func(models.Record) models.Record

// Sync walks the records directory and brings the index up to date:
//   - new/changed files are decoded and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, filter FieldFilter, logger *slog.Logger) error {
	return syncAll(db, store, filter, logger, false)
}

// Rebuild reindexes every record regardless of checksum. Used when the
// field filter changes, e.g. after privateFields is edited.
func Rebuild(db *DB, store storage.Provider, filter FieldFilter, logger *slog.Logger) error {
	return syncAll(db, store, filter, logger, true)
}

func syncAll(db *DB, store storage.Provider, filter FieldFilter, logger *slog.Logger, force bool) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if !force && checksums[m.Name] == m.Checksum {
			continue
		}

		if err := indexRecord(db, store, m.Name, filter); err != nil {
			logger.Warn("sync: index failed", slog.String("name", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("name", m.Name))
		}
	}

	// Remove stale entries.
	for n := range checksums {
		if _, ok := disk[n]; !ok {
			if err := db.Delete(n); err != nil {
				logger.Warn("sync: delete failed", slog.String("name", n), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("name", n))
			}
		}
	}

	return nil
}

// indexRecord reads name from the store, decodes and filters it, and upserts
// it into the DB.
func indexRecord(db *DB, store storage.Provider, name string, filter FieldFilter) error {
	data, ext, err := store.Read(name)
	if err != nil {
		return err
	}
	rec, err := codec.Decode(ext, data)
	if err != nil {
		return fmt.Errorf("index: decode %s%s: %w", name, ext, err)
	}
	if filter != nil {
		rec = filter(rec)
	}
	fields, err := codec.EncodeJSON(rec)
	if err != nil {
		return fmt.Errorf("index: encode %s: %w", name, err)
	}

	row := MyfileRow{
		Name:        name,
		DisplayName: rec.Name(),
		Ext:         ext,
		Checksum:    checksum.Sum(data),
		Fields:      string(fields),
		UpdatedAt:   time.Now().UTC(),
	}
	return db.Upsert(row)
}
