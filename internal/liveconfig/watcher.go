package liveconfig

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/myfview/internal/apperr"
)

// DefaultDebounce coalesces the burst of write events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// ReloadCallback is called after every reload attempt; err is nil on success.
type ReloadCallback func(err error)

// Watch observes the config file at path and replaces the active snapshot in
// store after every successful reparse. A parse failure is logged and the
// previous snapshot stays active.
//
// Watch returns nil when ctx is cancelled. If the file is renamed or removed
// it logs a warning, stops watching and returns an error wrapping
// apperr.ErrWatchLost; the current snapshot stays frozen.
func Watch(ctx context.Context, path string, store *Store, logger *slog.Logger, cb ReloadCallback) error {
	return watch(ctx, path, store, logger, cb, DefaultDebounce)
}

func watch(ctx context.Context, path string, store *Store, logger *slog.Logger, cb ReloadCallback, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("liveconfig: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("liveconfig: watch %s: %w", path, err)
	}

	logger.Info("liveconfig: watching", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}
	stopTimer := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			logger.Info("liveconfig: watcher stopped")
			return nil

		case <-reloadCh:
			reload(path, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0:
				stopTimer()
				logger.Warn("liveconfig: config file was moved or removed, no longer watching",
					slog.String("path", path),
					slog.String("op", ev.Op.String()),
					slog.Uint64("frozen_version", store.Load().Version))
				return fmt.Errorf("liveconfig: %s: %w", path, apperr.ErrWatchLost)
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("liveconfig: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(path string, store *Store, logger *slog.Logger, cb ReloadCallback) {
	next, err := Load(path)
	if err != nil {
		logger.Error("liveconfig: reload failed, keeping current config",
			slog.String("path", path),
			slog.Uint64("version", store.Load().Version),
			slog.String("error", err.Error()))
		if cb != nil {
			cb(err)
		}
		return
	}
	store.Replace(next)
	logger.Info("liveconfig: config updated",
		slog.String("path", path),
		slog.Uint64("version", store.Load().Version))
	if cb != nil {
		cb(nil)
	}
}
