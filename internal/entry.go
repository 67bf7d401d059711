// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/starford/myfview/internal/api"
	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/index"
	"github.com/starford/myfview/internal/liveconfig"
	"github.com/starford/myfview/internal/mcpserver"
	"github.com/starford/myfview/internal/metrics"
	"github.com/starford/myfview/internal/myfileservice"
	"github.com/starford/myfview/internal/myfview"
	"github.com/starford/myfview/internal/render"
	"github.com/starford/myfview/internal/sse"
	"github.com/starford/myfview/internal/storage"
)

const directoryThrottle = 2 * time.Second

// core holds the components shared by the HTTP server and the MCP command.
type core struct {
	logger     *slog.Logger
	live       *liveconfig.Store
	engine     *render.Engine
	dispatcher *render.Dispatcher
	store      *storage.FS
	db         *index.DB
	svc        *myfileservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the process logger: JSON for machines, tint for humans.
func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	var h slog.Handler
	if cfg.LogFormat == LogFormatText {
		h = tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: "15:04:05.000",
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		})
	}
	return slog.New(h)
}

// bootstrap loads the viewer config, opens the record store and the index,
// and runs the initial index sync. The caller closes c.db.
func bootstrap(cfg *Config, logger *slog.Logger) (*core, error) {
	settings, err := liveconfig.Load(cfg.Myfiles.ConfigPath)
	if err != nil {
		return nil, err
	}
	live := liveconfig.NewStore(settings, logger)

	engine, err := render.NewEngine(settings.TemplatesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("init templates: %w", err)
	}
	dispatcher := render.NewDispatcher(engine)

	// Ensure the record directory exists.
	if err := os.MkdirAll(cfg.Myfiles.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create myfiles dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Myfiles.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := myfileservice.NewService(store, db, live, dispatcher)

	if err := index.Sync(db, store, svc.FieldFilter(), logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &core{
		logger:     logger,
		live:       live,
		engine:     engine,
		dispatcher: dispatcher,
		store:      store,
		db:         db,
		svc:        svc,
	}, nil
}

// newRouter assembles the HTTP handler. The viewer runs as middleware ahead
// of chi's routing so "//" paths never hit the route table. m may be nil.
func newRouter(cfg *Config, c *core, broker *sse.Broker, m *metrics.ServerMetrics) (http.Handler, error) {
	var observer myfview.Observer
	if m != nil {
		observer = m
	}
	viewer, err := myfview.New(myfview.Options{
		Store:    c.store,
		Config:   c.live,
		Renderer: c.dispatcher,
		Logger:   c.logger,
		Observer: observer,
	})
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(viewer.Handler)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := c.db.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "index unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	if m != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, m.Handler())
	}

	r.Mount("/api", api.NewRouter(c.svc, cfg.App.HTTP.CORSOrigins, broker))

	return r, nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("myfiles_path", cfg.Myfiles.Path),
		slog.String("config_path", cfg.Myfiles.ConfigPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	broker := sse.NewBroker(directoryThrottle)
	defer broker.Close()

	var m *metrics.ServerMetrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.SetConfigVersion(c.live.Load().Version)
		m.RegisterGaugeFunc("myfview_sse_clients", "Connected SSE clients", func() float64 {
			return float64(broker.ClientCount())
		})
	}

	handler, err := newRouter(cfg, c, broker, m)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	settings := c.live.Load()
	if settings.Watch {
		startWatchers(gCtx, g, cfg, c, broker, m)
	} else {
		logger.Info("live reload disabled")
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams end when their channels close.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watchers stop with the server.
var errShutdown = errors.New("shutdown")

// startWatchers runs the config, template and records watchers in g. A
// watcher that fails is logged; the server keeps serving the last good state.
func startWatchers(ctx context.Context, g *errgroup.Group, cfg *Config, c *core, broker *sse.Broker, m *metrics.ServerMetrics) {
	logger := c.logger

	tw := render.NewTemplateWatcher(c.engine, logger, func(_ string, err error) {
		if m != nil {
			m.IncTemplateReload(result(err))
		}
	})

	c.live.OnChange(func(prev, next *liveconfig.Settings) {
		if prev.TemplatesPath != next.TemplatesPath {
			tw.Retarget(next.TemplatesPath)
		}
		if !slices.Equal(prev.PrivateFields, next.PrivateFields) {
			if err := index.Rebuild(c.db, c.store, c.svc.FieldFilter(), logger); err != nil {
				logger.Error("index rebuild failed", slog.String("error", err.Error()))
			}
		}
		broker.PublishConfigReloaded(next.Version)
		if m != nil {
			m.SetConfigVersion(next.Version)
		}
	})

	g.Go(func() error {
		err := liveconfig.Watch(ctx, cfg.Myfiles.ConfigPath, c.live, logger, func(err error) {
			if m != nil {
				m.IncConfigReload(result(err))
			}
		})
		if err != nil && !errors.Is(err, apperr.ErrWatchLost) {
			logger.Error("config watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		if err := tw.Run(ctx); err != nil {
			logger.Error("template watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		err := index.Watch(ctx, c.db, c.store, c.svc.FieldFilter(), logger, func(kind, name string) {
			broker.PublishMyfileEvent(kind, name)
			if m != nil {
				m.IncIndexEvent(kind)
			}
		})
		if err != nil {
			logger.Error("records watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})
}

func result(err error) string {
	if err != nil {
		return metrics.ResultFailure
	}
	return metrics.ResultSuccess
}

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config.App, app.logOutput)
	slog.SetDefault(logger)

	c, err := bootstrap(app.config, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}
