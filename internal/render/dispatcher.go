package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/myfview/internal/codec"
	"github.com/starford/myfview/internal/liveconfig"
	"github.com/starford/myfview/internal/models"
	"github.com/starford/myfview/internal/negotiate"
)

// Content types written for each format.
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeYAML = "application/x-yaml"
	ContentTypeTOML = "application/toml"
)

// RequestContext carries the per-request hints that affect rendering.
type RequestContext struct {
	// Identifier is the user as it appears in the URL (or the host fallback).
	Identifier string
	// Dark is set by ?dark or ?theme=dark.
	Dark bool
	// NoColor is set by ?nc or ?nocolor.
	NoColor bool
	// PlainText is set by ?nd or ?forcerender and serves yaml/toml as text/plain.
	PlainText bool
}

// NewRequestContext reads the rendering hints from a query string.
func NewRequestContext(identifier string, q url.Values) RequestContext {
	return RequestContext{
		Identifier: identifier,
		Dark:       flag(q, "dark") || q.Get("theme") == "dark",
		NoColor:    flag(q, "nc") || flag(q, "nocolor"),
		PlainText:  flag(q, "nd") || flag(q, "forcerender"),
	}
}

// flag reports whether key is present, either bare (?dark) or with a value
// other than an explicit negative.
func flag(q url.Values, key string) bool {
	vs, ok := q[key]
	if !ok {
		return false
	}
	if len(vs) == 0 {
		return true
	}
	switch strings.ToLower(vs[0]) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}

// Result is a rendered response body and its content type.
type Result struct {
	ContentType string
	Body        []byte
}

// TemplateFunc renders a RenderRecord to text.
type TemplateFunc func(RenderRecord) (string, error)

// Dispatcher produces the body for a negotiated format. HTML and CLI default
// to the Engine's templates and may be replaced by the host application.
type Dispatcher struct {
	HTML TemplateFunc
	CLI  TemplateFunc
}

// NewDispatcher returns a Dispatcher rendering through engine.
func NewDispatcher(engine *Engine) *Dispatcher {
	return &Dispatcher{HTML: engine.RenderHTML, CLI: engine.RenderCLI}
}

// Render serialises rec in format. Structured formats are redacted using
// settings.PrivateFields; html and cli see the full record.
func (d *Dispatcher) Render(format negotiate.Format, rec models.Record, rc RequestContext, settings *liveconfig.Settings) (Result, error) {
	if rec == nil {
		rec = models.Record{}
	}
	switch format {
	case negotiate.HTML:
		body, err := d.HTML(NewHTMLRecord(rec, rc.Identifier, settings.ForceDark || rc.Dark))
		if err != nil {
			return Result{}, err
		}
		return Result{ContentType: ContentTypeHTML, Body: []byte(body)}, nil

	case negotiate.CLI:
		body, err := d.CLI(NewCLIRecord(rec, rc.Identifier, rc.NoColor))
		if err != nil {
			return Result{}, err
		}
		return Result{ContentType: ContentTypeText, Body: []byte(body)}, nil
	}

	redacted := Redact(rec, settings.PrivateFields)
	var (
		body []byte
		ct   string
		err  error
	)
	switch format {
	case negotiate.YAML:
		body, err = codec.EncodeYAML(redacted)
		ct = ContentTypeYAML
	case negotiate.TOML:
		body, err = codec.EncodeTOML(redacted)
		ct = ContentTypeTOML
	case negotiate.JSON:
		body, err = codec.EncodeJSON(redacted)
		ct = ContentTypeJSON
	default:
		return Result{}, fmt.Errorf("render: unknown format %d", format)
	}
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", format, err)
	}
	if rc.PlainText && (format == negotiate.YAML || format == negotiate.TOML) {
		ct = ContentTypeText
	}
	return Result{ContentType: ct, Body: body}, nil
}
