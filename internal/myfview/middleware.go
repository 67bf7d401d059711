// Package myfview serves myfile records on paths of the form "//<identifier>"
// in whichever format the request negotiates. Every other path is passed to
// the next handler untouched.
package myfview

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/liveconfig"
	"github.com/starford/myfview/internal/models"
	"github.com/starford/myfview/internal/negotiate"
	"github.com/starford/myfview/internal/render"
)

// RecordStore resolves an identifier to a record.
type RecordStore interface {
	Lookup(name string) (models.Record, error)
}

// Renderer produces a response body for a negotiated format.
type Renderer interface {
	Render(format negotiate.Format, rec models.Record, rc render.RequestContext, settings *liveconfig.Settings) (render.Result, error)
}

// Observer receives per-request outcomes, typically for metrics.
type Observer interface {
	// ObserveLookup is called with "found", "not_found", "invalid" or "error".
	ObserveLookup(result string)
	// ObserveRender is called once per activated request with the response status.
	ObserveRender(format string, status int)
}

// ErrorHandler writes the response for a failed request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Lookup results reported to the Observer.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupInvalid  = "invalid"
	LookupError    = "error"
)

// Options configures a Middleware.
type Options struct {
	Store    RecordStore
	Config   *liveconfig.Store
	Renderer Renderer
	// RenderHTML and RenderCLI, when set, replace the templates of a
	// *render.Dispatcher Renderer.
	RenderHTML render.TemplateFunc
	RenderCLI  render.TemplateFunc

	Logger       *slog.Logger
	Observer     Observer
	ErrorHandler ErrorHandler
}

// Middleware is the viewer. Create one with New.
type Middleware struct {
	store    RecordStore
	config   *liveconfig.Store
	renderer Renderer
	logger   *slog.Logger
	observer Observer
	onError  ErrorHandler
}

// New creates a Middleware. Store, Config and Renderer are required.
func New(opts Options) (*Middleware, error) {
	if opts.Store == nil || opts.Config == nil || opts.Renderer == nil {
		return nil, errors.New("myfview: Store, Config and Renderer are required")
	}
	m := &Middleware{
		store:    opts.Store,
		config:   opts.Config,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		observer: opts.Observer,
		onError:  opts.ErrorHandler,
	}
	if d, ok := opts.Renderer.(*render.Dispatcher); ok && (opts.RenderHTML != nil || opts.RenderCLI != nil) {
		cp := *d
		if opts.RenderHTML != nil {
			cp.HTML = opts.RenderHTML
		}
		if opts.RenderCLI != nil {
			cp.CLI = opts.RenderCLI
		}
		m.renderer = &cp
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	if m.onError == nil {
		m.onError = m.writeError
	}
	return m, nil
}

// Handler wraps next. Only GET and HEAD requests on "//" paths are served;
// everything else reaches next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier, subPath, ok := SplitPath(r.URL.Path)
		if !ok || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			next.ServeHTTP(w, r)
			return
		}
		if identifier == "" {
			identifier = hostname(r)
		}
		r = r.WithContext(withSubPath(r.Context(), subPath))
		m.serve(w, r, identifier)
	})
}

func (m *Middleware) serve(w http.ResponseWriter, r *http.Request, identifier string) {
	settings := m.config.Load()
	format := negotiate.Negotiate(negotiate.FromQuery(r.URL, r.UserAgent(), r.Header.Values("Accept")))
	rc := render.NewRequestContext(identifier, r.URL.Query())

	status := http.StatusOK
	rec, err := m.store.Lookup(identifier)
	switch {
	case err == nil:
		m.observer.ObserveLookup(LookupFound)
	case errors.Is(err, apperr.ErrNotFound):
		m.observer.ObserveLookup(LookupNotFound)
		status = http.StatusNotFound
		rec = models.Record{}
	case errors.Is(err, apperr.ErrInvalidIdentifier):
		m.observer.ObserveLookup(LookupInvalid)
		m.observer.ObserveRender(format.String(), http.StatusBadRequest)
		m.onError(w, r, err)
		return
	default:
		m.observer.ObserveLookup(LookupError)
		m.observer.ObserveRender(format.String(), http.StatusInternalServerError)
		m.onError(w, r, err)
		return
	}

	res, err := m.renderer.Render(format, rec, rc, settings)
	if err != nil {
		m.observer.ObserveRender(format.String(), http.StatusInternalServerError)
		m.onError(w, r, err)
		return
	}

	m.logger.Debug("myfview: rendered",
		slog.String("identifier", identifier),
		slog.String("format", format.String()),
		slog.Int("status", status))

	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Add("Vary", "Accept, User-Agent")
	w.WriteHeader(status)
	m.observer.ObserveRender(format.String(), status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(res.Body); err != nil {
		m.logger.Debug("myfview: write failed", slog.String("error", err.Error()))
	}
}

// writeError is the default ErrorHandler: a plain-text body whose status
// reflects the error kind.
func (m *Middleware) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		m.logger.Error("myfview: request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	} else {
		m.logger.Debug("myfview: request rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	http.Error(w, http.StatusText(status), status)
}

// StatusFor maps an error to the HTTP status the viewer responds with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

type nopObserver struct{}

func (nopObserver) ObserveLookup(string)      {}
func (nopObserver) ObserveRender(string, int) {}
