package render

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultTemplateDebounce is how long the watcher waits after the last
// template change before reloading.
const DefaultTemplateDebounce = 150 * time.Millisecond

// TemplateWatcher reloads an Engine when html.tmpl or cli.tmpl change in the
// watched directory. Retarget moves it to another directory, e.g. after a
// config reload changes templatesPath.
type TemplateWatcher struct {
	engine   *Engine
	logger   *slog.Logger
	debounce time.Duration
	retarget chan string
	onReload func(dir string, err error)
}

// NewTemplateWatcher creates a watcher for engine. onReload, if non-nil, is
// called after every reload attempt.
func NewTemplateWatcher(engine *Engine, logger *slog.Logger, onReload func(dir string, err error)) *TemplateWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateWatcher{
		engine:   engine,
		logger:   logger,
		debounce: DefaultTemplateDebounce,
		retarget: make(chan string, 1),
		onReload: onReload,
	}
}

// Retarget switches the watched directory and reloads the engine from it.
// Only the latest pending target is kept.
func (tw *TemplateWatcher) Retarget(dir string) {
	select {
	case <-tw.retarget:
	default:
	}
	tw.retarget <- dir
}

// Run watches the engine's current directory until ctx is cancelled.
func (tw *TemplateWatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := tw.engine.Dir()
	tw.add(w, dir)

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(tw.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(tw.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			tw.logger.Info("template watcher: stopped")
			return nil

		case next := <-tw.retarget:
			if next != dir {
				if dir != "" {
					_ = w.Remove(dir)
				}
				dir = next
				tw.add(w, dir)
			}
			tw.reload(dir)

		case <-timerCh:
			tw.reload(dir)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch filepath.Base(ev.Name) {
			case HTMLTemplate, CLITemplate:
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			tw.logger.Error("template watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (tw *TemplateWatcher) add(w *fsnotify.Watcher, dir string) {
	if dir == "" {
		return
	}
	if err := w.Add(dir); err != nil {
		tw.logger.Warn("template watcher: cannot watch directory",
			slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	tw.logger.Info("template watcher: started", slog.String("dir", dir))
}

func (tw *TemplateWatcher) reload(dir string) {
	err := tw.engine.Reload(dir)
	if err != nil {
		tw.logger.Error("template watcher: reload failed, keeping previous templates",
			slog.String("dir", dir), slog.String("error", err.Error()))
	} else {
		tw.logger.Info("template watcher: reloaded", slog.String("dir", dir))
	}
	if tw.onReload != nil {
		tw.onReload(dir, err)
	}
}
