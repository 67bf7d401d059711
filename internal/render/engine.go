package render

import (
	"bytes"
	"embed"
	"errors"
	htmltemplate "html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	texttemplate "text/template"

	"github.com/starford/myfview/internal/apperr"
)

// Template file names looked up in the templates directory.
const (
	HTMLTemplate = "html.tmpl"
	CLITemplate  = "cli.tmpl"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

type templateSet struct {
	dir  string
	html *htmltemplate.Template
	cli  *texttemplate.Template
}

// Engine renders the html and cli templates. Reload swaps the parsed set
// atomically; a failed reload keeps the previous set.
type Engine struct {
	active atomic.Pointer[templateSet]
	logger *slog.Logger
}

// NewEngine parses the templates in dir. Templates missing from dir fall
// back to the built-in defaults.
func NewEngine(dir string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	if err := e.Reload(dir); err != nil {
		return nil, err
	}
	return e, nil
}

// Dir returns the directory of the active template set.
func (e *Engine) Dir() string {
	return e.active.Load().dir
}

// Reload parses the templates in dir and makes them active.
func (e *Engine) Reload(dir string) error {
	htmlSrc, err := e.source(dir, HTMLTemplate)
	if err != nil {
		return err
	}
	cliSrc, err := e.source(dir, CLITemplate)
	if err != nil {
		return err
	}

	html, err := htmltemplate.New(HTMLTemplate).Funcs(funcs()).Parse(string(htmlSrc))
	if err != nil {
		return &apperr.RenderError{Template: HTMLTemplate, Err: err}
	}
	cli, err := texttemplate.New(CLITemplate).Funcs(funcs()).Parse(string(cliSrc))
	if err != nil {
		return &apperr.RenderError{Template: CLITemplate, Err: err}
	}

	e.active.Store(&templateSet{dir: dir, html: html, cli: cli})
	return nil
}

func (e *Engine) source(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &apperr.RenderError{Template: name, Err: err}
		}
		e.logger.Debug("render: template not found, using built-in default",
			slog.String("dir", dir), slog.String("template", name))
	}
	data, err := defaultTemplates.ReadFile("templates/" + name)
	if err != nil {
		return nil, &apperr.RenderError{Template: name, Err: err}
	}
	return data, nil
}

// RenderHTML executes the html template.
func (e *Engine) RenderHTML(rr RenderRecord) (string, error) {
	var buf bytes.Buffer
	if err := e.active.Load().html.Execute(&buf, rr); err != nil {
		return "", &apperr.RenderError{Template: HTMLTemplate, Err: err}
	}
	return buf.String(), nil
}

// RenderCLI executes the cli template.
func (e *Engine) RenderCLI(rr RenderRecord) (string, error) {
	var buf bytes.Buffer
	if err := e.active.Load().cli.Execute(&buf, rr); err != nil {
		return "", &apperr.RenderError{Template: CLITemplate, Err: err}
	}
	return buf.String(), nil
}
