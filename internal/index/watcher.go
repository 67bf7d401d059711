package index

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/checksum"
	"github.com/starford/myfview/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the records directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation.
//
// Records live directly under the root, so subdirectories are not watched.
// Rename events trigger a reconciliation pass that removes stale index
// entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, filter FieldFilter, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, filter, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != root {
				continue
			}
			name, _, ok := storage.SplitRecordFile(filepath.Base(ev.Name))
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				refresh(db, store, name, filter, logger, cb)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The name may still resolve through another extension.
				refresh(db, store, name, filter, logger, cb)
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// refresh brings the index entry for name in line with the store: reindex
// when the file changed, delete when no file resolves any more.
func refresh(db *DB, store storage.Provider, name string, filter FieldFilter, logger *slog.Logger, cb EventCallback) {
	prev, err := db.GetChecksum(name)
	if err != nil {
		logger.Warn("watcher: checksum lookup failed", slog.String("name", name), slog.String("error", err.Error()))
		return
	}

	data, _, readErr := store.Read(name)
	if errors.Is(readErr, apperr.ErrNotFound) {
		if prev == "" {
			return
		}
		if delErr := db.Delete(name); delErr != nil {
			logger.Warn("watcher: delete failed", slog.String("name", name), slog.String("error", delErr.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("name", name))
		if cb != nil {
			cb(EventDeleted, name)
		}
		return
	}
	if readErr != nil {
		logger.Warn("watcher: read failed", slog.String("name", name), slog.String("error", readErr.Error()))
		return
	}
	if prev == checksum.Sum(data) {
		return
	}

	if idxErr := indexRecord(db, store, name, filter); idxErr != nil {
		logger.Warn("watcher: index failed", slog.String("name", name), slog.String("error", idxErr.Error()))
		return
	}
	kind := EventUpdated
	if prev == "" {
		kind = EventCreated
	}
	logger.Debug("watcher: indexed", slog.String("name", name), slog.String("op", kind))
	if cb != nil {
		cb(kind, name)
	}
}

// reconcile does a lightweight sync using batch lookups: finds index entries
// without a corresponding file on disk and removes them, and finds on-disk
// files that are not indexed (or changed) and indexes them.
func reconcile(db *DB, store storage.Provider, filter FieldFilter, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Name] = m.Checksum
	}

	for n := range checksums {
		if _, ok := disk[n]; !ok {
			if delErr := db.Delete(n); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("name", n))
				if cb != nil {
					cb(EventDeleted, n)
				}
			}
		}
	}

	for n, cs := range disk {
		prev, indexed := checksums[n]
		if prev == cs {
			continue
		}
		if idxErr := indexRecord(db, store, n, filter); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("name", n))
			if cb != nil {
				kind := EventUpdated
				if !indexed {
					kind = EventCreated
				}
				cb(kind, n)
			}
		}
	}
}
