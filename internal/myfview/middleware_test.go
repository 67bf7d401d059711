package myfview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/liveconfig"
	"github.com/starford/myfview/internal/models"
	"github.com/starford/myfview/internal/render"
)

type mapStore map[string]models.Record

func (s mapStore) Lookup(name string) (models.Record, error) {
	switch name {
	case "broken":
		return nil, &apperr.RecordError{Name: name, Err: errors.New("unexpected EOF")}
	case "bad..name":
		return nil, apperr.ErrInvalidIdentifier
	}
	rec, ok := s[name]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return rec, nil
}

type recordingObserver struct {
	mu      sync.Mutex
	lookups []string
	renders []int
}

func (o *recordingObserver) ObserveLookup(result string) {
	o.mu.Lock()
	o.lookups = append(o.lookups, result)
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveRender(_ string, status int) {
	o.mu.Lock()
	o.renders = append(o.renders, status)
	o.mu.Unlock()
}

func stubTemplates() *render.Dispatcher {
	return &render.Dispatcher{
		HTML: func(rr render.RenderRecord) (string, error) {
			if rr.DarkFlag {
				return "<html dark>" + rr.DisplayName, nil
			}
			return "<html>" + rr.DisplayName, nil
		},
		CLI: func(rr render.RenderRecord) (string, error) { return "cli " + rr.DisplayName, nil },
	}
}

type fixture struct {
	handler  http.Handler
	config   *liveconfig.Store
	observer *recordingObserver
	nextHit  bool
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		config:   liveconfig.NewStore(liveconfig.Defaults(), nil),
		observer: &recordingObserver{},
	}
	o := Options{
		Store: mapStore{
			"ada":         {"name": "Ada", "email": "ada@example.com"},
			"example.com": {"name": "Example Inc"},
		},
		Config:   f.config,
		Renderer: stubTemplates(),
		Observer: f.observer,
	}
	for _, fn := range opts {
		fn(&o)
	}
	m, err := New(o)
	require.NoError(t, err)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.nextHit = true
		w.WriteHeader(http.StatusTeapot)
	})
	f.handler = m.Handler(next)
	return f
}

func (f *fixture) do(method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "http://example.com"+target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path, id, sub string
		ok            bool
	}{
		{"//ada", "ada", "", true},
		{"//ada//notes", "ada", "notes", true},
		{"//ada//notes//2024", "ada", "notes2024", true},
		{"//", "", "", true},
		{"///x", "/x", "", true},
		{"/ada", "", "", false},
		{"/", "", "", false},
	}
	for _, tc := range cases {
		id, sub, ok := SplitPath(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.id, id, tc.path)
		assert.Equal(t, tc.sub, sub, tc.path)
	}
}

func TestFallthroughForOtherPaths(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/", "/ada", "/api/myfiles", "/health/live"} {
		f.nextHit = false
		res := f.do(http.MethodGet, p, nil)
		assert.True(t, f.nextHit, p)
		assert.Equal(t, http.StatusTeapot, res.Code, p)
	}
	assert.Empty(t, f.observer.lookups)
}

func TestFallthroughForOtherMethods(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodPost, "//ada", nil)
	assert.True(t, f.nextHit)
	assert.Equal(t, http.StatusTeapot, res.Code)
}

func TestYAMLScenario(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Store = mapStore{"ada": {"name": "Ada"}}
	})

	res := f.do(http.MethodGet, "//ada?type=yaml", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/x-yaml", res.Header().Get("Content-Type"))
	assert.Equal(t, "name: Ada\n", res.Body.String())

	forced := f.do(http.MethodGet, "//ada?type=yaml&forcerender", nil)
	assert.Equal(t, "text/plain; charset=utf-8", forced.Header().Get("Content-Type"))
	assert.Equal(t, res.Body.String(), forced.Body.String())
}

func TestRedactionUsesLiveConfig(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodGet, "//ada?json", nil)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com"}`, res.Body.String())

	next := liveconfig.Defaults()
	next.PrivateFields = []string{"email"}
	f.config.Replace(next)

	res = f.do(http.MethodGet, "//ada?json", nil)
	assert.JSONEq(t, `{"name":"Ada"}`, res.Body.String())

	res = f.do(http.MethodGet, "//ada?html", nil)
	assert.Equal(t, "<html>Ada", res.Body.String())
}

func TestNegotiationFromHeaders(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodGet, "//ada", map[string]string{"User-Agent": "curl/8.4.0"})
	assert.Equal(t, "cli Ada", res.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", res.Header().Get("Content-Type"))

	res = f.do(http.MethodGet, "//ada", map[string]string{"Accept": "text/html,application/xhtml+xml"})
	assert.Equal(t, "<html>Ada", res.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))

	res = f.do(http.MethodGet, "//ada", map[string]string{"Accept": "application/json"})
	assert.Equal(t, "application/json; charset=utf-8", res.Header().Get("Content-Type"))

	res = f.do(http.MethodGet, "//ada?type=nonsense", map[string]string{"Accept": "text/html"})
	assert.Equal(t, "application/json; charset=utf-8", res.Header().Get("Content-Type"))

	assert.Equal(t, "Accept, User-Agent", res.Header().Get("Vary"))
}

func TestDarkFlag(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "<html dark>Ada", f.do(http.MethodGet, "//ada?html&dark", nil).Body.String())
	assert.Equal(t, "<html dark>Ada", f.do(http.MethodGet, "//ada?html&theme=dark", nil).Body.String())

	next := liveconfig.Defaults()
	next.ForceDark = true
	f.config.Replace(next)
	assert.Equal(t, "<html dark>Ada", f.do(http.MethodGet, "//ada?html", nil).Body.String())
}

func TestNotFoundRendersEmptyRecord(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodGet, "//ghost?json", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "{}\n", res.Body.String())

	res = f.do(http.MethodGet, "//ghost?cli", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "cli ghost", res.Body.String())

	assert.Equal(t, []string{LookupNotFound, LookupNotFound}, f.observer.lookups)
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound}, f.observer.renders)
}

func TestHostFallback(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "http://example.com:8080//?cli", nil)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "cli Example Inc", res.Body.String())
}

func TestRecordErrorIsServerError(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodGet, "//broken?json", nil)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "EOF")
	assert.Equal(t, []string{LookupError}, f.observer.lookups)
}

func TestInvalidIdentifierIsBadRequest(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodGet, "//bad..name", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, []string{LookupInvalid}, f.observer.lookups)
}

func TestTemplateErrorIsServerError(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.RenderHTML = func(render.RenderRecord) (string, error) {
			return "", &apperr.RenderError{Template: "html.tmpl", Err: errors.New("boom")}
		}
	})
	res := f.do(http.MethodGet, "//ada?html", nil)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, []int{http.StatusInternalServerError}, f.observer.renders)
}

func TestCustomErrorHandler(t *testing.T) {
	var got error
	f := newFixture(t, func(o *Options) {
		o.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	res := f.do(http.MethodGet, "//broken", nil)
	assert.Equal(t, http.StatusBadGateway, res.Code)
	var recErr *apperr.RecordError
	assert.True(t, errors.As(got, &recErr))
}

func TestHeadHasNoBody(t *testing.T) {
	f := newFixture(t)
	res := f.do(http.MethodHead, "//ada?json", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/json; charset=utf-8", res.Header().Get("Content-Type"))
	assert.Empty(t, res.Body.String())
}

func TestSubPathOnContext(t *testing.T) {
	var sub string
	var ok bool
	f := newFixture(t, func(o *Options) {
		o.ErrorHandler = func(w http.ResponseWriter, r *http.Request, _ error) {
			sub, ok = SubPath(r.Context())
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	f.do(http.MethodGet, "//broken//notes//2024", nil)
	assert.True(t, ok)
	assert.Equal(t, "notes2024", sub)

	_, ok = SubPath(context.Background())
	assert.False(t, ok)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.ErrInvalidIdentifier))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(&apperr.RenderError{Err: errors.New("x")}))
}
