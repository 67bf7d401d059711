package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/metrics"
	"github.com/starford/myfview/internal/sse"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig lays out a records directory, a viewer config file and a
// database path under a temp dir.
func testConfig(t *testing.T, settings map[string]any) *Config {
	t.Helper()
	root := t.TempDir()

	cfg := NewDefaultConfig()
	cfg.Myfiles.Path = filepath.Join(root, "myfiles")
	cfg.Myfiles.ConfigPath = filepath.Join(root, "config.json")
	cfg.SQLite.Path = filepath.Join(root, "index.db")

	if settings == nil {
		settings = map[string]any{}
	}
	if _, ok := settings["templatesPath"]; !ok {
		settings["templatesPath"] = t.TempDir()
	}
	data, err := json.Marshal(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Myfiles.ConfigPath, data, 0o644))
	return cfg
}

func testServer(t *testing.T, cfg *Config, records map[string]string) http.Handler {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.Myfiles.Path, 0o755))
	for file, content := range records {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Myfiles.Path, file), []byte(content), 0o644))
	}

	c, err := bootstrap(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.db.Close() })

	broker := sse.NewBroker(0)
	t.Cleanup(broker.Close)

	h, err := newRouter(cfg, c, broker, metrics.New())
	require.NoError(t, err)
	return h
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouterServesViewerAndAPI(t *testing.T) {
	cfg := testConfig(t, map[string]any{"privateFields": []string{"email"}})
	h := testServer(t, cfg, map[string]string{
		"ada.json": `{"name": "Ada Lovelace", "email": "ada@example.com", "lang": "en"}`,
	})

	res := get(h, "//ada?type=yaml")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/x-yaml", res.Header().Get("Content-Type"))
	assert.Contains(t, res.Body.String(), "name: Ada Lovelace")
	assert.NotContains(t, res.Body.String(), "ada@example.com")

	missing := get(h, "//nobody?json")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "application/json; charset=utf-8", missing.Header().Get("Content-Type"))

	list := get(h, "/api/myfiles")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"ada"`)
	assert.NotContains(t, list.Body.String(), "ada@example.com")
}

func TestRouterHealth(t *testing.T) {
	h := testServer(t, testConfig(t, nil), nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		res := get(h, path)
		assert.Equal(t, http.StatusOK, res.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, res.Body.String(), path)
	}
}

func TestRouterMetrics(t *testing.T) {
	h := testServer(t, testConfig(t, nil), map[string]string{
		"bob.toml": "name = \"Bob\"\n",
	})

	require.Equal(t, http.StatusOK, get(h, "//bob?type=toml").Code)

	res := get(h, "/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, `myfview_renders_total{format="toml",status="200"} 1`)
	assert.Contains(t, body, `myfview_lookups_total{result="found"} 1`)
	assert.Contains(t, body, `route="//{identifier}"`)
}

func TestRouterNonViewerFallsThrough(t *testing.T) {
	h := testServer(t, testConfig(t, nil), nil)

	res := get(h, "/nothing-here")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.NotContains(t, res.Header().Get("Vary"), "Accept")
}

func TestBootstrapRejectsBadViewerConfig(t *testing.T) {
	cfg := testConfig(t, nil)
	require.NoError(t, os.WriteFile(cfg.Myfiles.ConfigPath, []byte(`{"watch": `), 0o644))

	_, err := bootstrap(cfg, quietLogger())
	var parseErr *apperr.ConfigParseError
	require.True(t, errors.As(err, &parseErr), "err = %v", err)
	assert.Equal(t, cfg.Myfiles.ConfigPath, parseErr.Path)
}

func TestBootstrapCreatesRecordDir(t *testing.T) {
	cfg := testConfig(t, nil)

	c, err := bootstrap(cfg, quietLogger())
	require.NoError(t, err)
	defer c.db.Close()

	info, err := os.Stat(cfg.Myfiles.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(ApplicationConfig{LogLevel: slog.LevelInfo, LogFormat: LogFormatJSON}, &buf).Info("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])

	buf.Reset()
	newLogger(ApplicationConfig{LogLevel: slog.LevelWarn, LogFormat: LogFormatText}, &buf).Info("dropped")
	assert.Empty(t, buf.String())

	newLogger(ApplicationConfig{LogLevel: slog.LevelInfo, LogFormat: LogFormatText}, &buf).Info("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestRunRequiresConfig(t *testing.T) {
	err := Run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}
