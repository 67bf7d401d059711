package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/myfview/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.App.HTTP.Address() != ":3000" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestApplicationConfig_EmptyLogFormatDefaultsJSON(t *testing.T) {
	cfg := ApplicationConfig{HTTP: HTTPConfig{Port: 80}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty format should default: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("format = %q, want %q", cfg.LogFormat, LogFormatJSON)
	}
}

func TestApplicationConfig_LogFormatCaseInsensitive(t *testing.T) {
	cfg := ApplicationConfig{LogFormat: "TEXT", HTTP: HTTPConfig{Port: 80}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("TEXT should be accepted: %v", err)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("format = %q", cfg.LogFormat)
	}
}

func TestApplicationConfig_InvalidLogFormat(t *testing.T) {
	cfg := ApplicationConfig{LogFormat: "xml", HTTP: HTTPConfig{Port: 80}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("xml log format should fail validation")
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestHTTPConfig_EmptyCORSOrigin(t *testing.T) {
	cfg := HTTPConfig{Port: 80, CORSOrigins: []string{"https://a.example", ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty origin should fail validation")
	}
}

func TestMyfilesConfig_Required(t *testing.T) {
	cfg := MyfilesConfig{Path: "./records"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing config_path should fail validation")
	}
}

func TestMetricsConfig(t *testing.T) {
	cases := []struct {
		cfg     MetricsConfig
		wantErr bool
	}{
		{MetricsConfig{Enabled: false}, false},
		{MetricsConfig{Enabled: true, Path: "/metrics"}, false},
		{MetricsConfig{Enabled: true}, true},
		{MetricsConfig{Enabled: true, Path: "metrics"}, true},
		{MetricsConfig{Enabled: true, Path: "//metrics"}, true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%+v: err = %v, wantErr %v", tc.cfg, err, tc.wantErr)
		}
	}
}

func TestFullConfig_MetricsValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch metrics error")
	}
}

func TestLoadProcessConfigYAML(t *testing.T) {
	t.Setenv("MYFVIEW_TEST_PORT", "8081")
	p := filepath.Join(t.TempDir(), "config.yaml")
	content := `app:
  log_level: debug
  log_format: text
  http:
    port: ${MYFVIEW_TEST_PORT}
    cors_origins: ["https://a.example"]
myfiles:
  path: ./data/myfiles
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.App.HTTP.Port != 8081 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Myfiles.Path != "./data/myfiles" {
		t.Errorf("myfiles path = %q", cfg.Myfiles.Path)
	}
	if !strings.HasSuffix(cfg.Myfiles.ConfigPath, "config.json") {
		t.Errorf("config path default lost: %q", cfg.Myfiles.ConfigPath)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics default lost")
	}
}
